package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"

	"access-grants/internal/adapters/audit"
	adaptermiddleware "access-grants/internal/adapters/http/middleware"
	adapterlogger "access-grants/internal/adapters/logger"
	"access-grants/internal/adapters/notify"
	"access-grants/internal/application"
	"access-grants/internal/infrastructure/auth"
	"access-grants/internal/infrastructure/dynamodb"
	"access-grants/internal/infrastructure/policyfile"
	httpiface "access-grants/internal/interfaces/http"
	"access-grants/internal/platform/lambda"
)

func main() {
	logger := adapterlogger.New()
	ctx := context.Background()

	tableName := os.Getenv("TABLE_NAME")
	region := os.Getenv("AWS_REGION")
	policyFile := os.Getenv("POLICY_FILE")
	if policyFile == "" {
		policyFile = "config/approval_policy.yml"
	}
	if tableName == "" || region == "" {
		logger.Error(ctx, "missing required environment variables")
		os.Exit(1)
	}
	xray.Configure(xray.Config{LogLevel: "error"})

	policyCfg, err := policyfile.Load(policyFile)
	if err != nil {
		logger.Error(ctx, "failed to load approval policy", "path", policyFile, "error", err)
		os.Exit(1)
	}

	ddbClient, err := dynamodb.NewClient(ctx, region, tableName)
	if err != nil {
		logger.Error(ctx, "failed to initialize dynamodb client", "error", err)
		os.Exit(1)
	}
	requestRepo := dynamodb.NewRequestRepository(ddbClient)
	grantRepo := dynamodb.NewGrantRepository(ddbClient)
	assignmentRepo := dynamodb.NewAssignmentRepository(ddbClient)
	resourceRepo := dynamodb.NewResourceRepository(ddbClient)

	notifier, err := notify.NewAMQPPublisher(os.Getenv("AMQP_URI"), logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	auditSink := audit.NewLogSink(logger)

	scopeSvc := application.NewScopeService(assignmentRepo, resourceRepo, policyCfg.UnrestrictedRoles, logger)
	grantSvc := application.NewGrantService(grantRepo, requestRepo, notifier, auditSink, logger)
	requestSvc := application.NewRequestService(requestRepo, grantSvc, scopeSvc, policyCfg.Policy, notifier, auditSink, logger)
	assignmentSvc := application.NewAssignmentService(assignmentRepo, resourceRepo, auditSink, logger)

	var oidcHandler echo.MiddlewareFunc
	if jwksURL := os.Getenv("OIDC_JWKS_URL"); jwksURL != "" {
		oidcHandler = auth.NewOIDCMiddleware(jwksURL).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(oidcHandler)
	if err != nil {
		logger.Error(ctx, "failed to initialize auth middleware", "error", err)
		os.Exit(1)
	}
	mw := httpiface.Middleware{
		Auth:          authMiddleware,
		RequestLogger: adaptermiddleware.RequestLogger(logger),
	}

	e := httpiface.NewMainRouter(
		httpiface.NewRequestsHandler(requestSvc, logger),
		httpiface.NewGrantsHandler(grantSvc, logger),
		httpiface.NewAssignmentsHandler(assignmentSvc, logger),
		httpiface.NewScopeHandler(scopeSvc, logger),
		mw,
	)
	awslambda.Start(lambda.NewHandler(e))
}

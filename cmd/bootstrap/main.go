package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/joho/godotenv"
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
)

type config struct {
	TableName  string
	Region     string
	PolicyFile string
	AMQPURI    string
	JWKSURL    string
	AuthMode   adaptermiddleware.Mode
	Port       string
}

func loadConfig() (config, error) {
	authMode, err := adaptermiddleware.ParseAuthMode()
	if err != nil {
		return config{}, err
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	policyFile := os.Getenv("POLICY_FILE")
	if policyFile == "" {
		policyFile = "config/approval_policy.yml"
	}
	cfg := config{
		TableName:  os.Getenv("TABLE_NAME"),
		Region:     os.Getenv("AWS_REGION"),
		PolicyFile: policyFile,
		AMQPURI:    os.Getenv("AMQP_URI"),
		JWKSURL:    os.Getenv("OIDC_JWKS_URL"),
		AuthMode:   authMode,
		Port:       port,
	}
	if cfg.TableName == "" || cfg.Region == "" {
		return config{}, errors.New("missing required environment variables")
	}
	if cfg.AuthMode == adaptermiddleware.ModeOIDC && cfg.JWKSURL == "" {
		return config{}, errors.New("OIDC_JWKS_URL is required for oidc auth mode")
	}
	return cfg, nil
}

func main() {
	_ = godotenv.Load()
	logger := adapterlogger.New()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error(ctx, "configuration error", "error", err)
		os.Exit(1)
	}
	xray.Configure(xray.Config{LogLevel: "error"})

	// An unparseable or incomplete policy is a deployment defect. Refusing
	// to start keeps every later evaluation total.
	policyCfg, err := policyfile.Load(cfg.PolicyFile)
	if err != nil {
		logger.Error(ctx, "failed to load approval policy", "path", cfg.PolicyFile, "error", err)
		os.Exit(1)
	}

	ddbClient, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName)
	if err != nil {
		logger.Error(ctx, "failed to initialize dynamodb client", "error", err)
		os.Exit(1)
	}
	requestRepo := dynamodb.NewRequestRepository(ddbClient)
	grantRepo := dynamodb.NewGrantRepository(ddbClient)
	assignmentRepo := dynamodb.NewAssignmentRepository(ddbClient)
	resourceRepo := dynamodb.NewResourceRepository(ddbClient)

	notifier, err := notify.NewAMQPPublisher(cfg.AMQPURI, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	defer notifier.Close()
	auditSink := audit.NewLogSink(logger)

	scopeSvc := application.NewScopeService(assignmentRepo, resourceRepo, policyCfg.UnrestrictedRoles, logger)
	grantSvc := application.NewGrantService(grantRepo, requestRepo, notifier, auditSink, logger)
	requestSvc := application.NewRequestService(requestRepo, grantSvc, scopeSvc, policyCfg.Policy, notifier, auditSink, logger)
	assignmentSvc := application.NewAssignmentService(assignmentRepo, resourceRepo, auditSink, logger)

	var oidcHandler echo.MiddlewareFunc
	if cfg.AuthMode == adaptermiddleware.ModeOIDC {
		oidcHandler = auth.NewOIDCMiddleware(cfg.JWKSURL).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(oidcHandler)
	if err != nil {
		logger.Error(ctx, "failed to initialize auth middleware", "error", err)
		os.Exit(1)
	}
	mw := httpiface.Middleware{
		Auth:          authMiddleware,
		XRay:          adaptermiddleware.XRayMiddleware("access-grants-http"),
		RequestLogger: adaptermiddleware.RequestLogger(logger),
	}

	e := httpiface.NewMainRouter(
		httpiface.NewRequestsHandler(requestSvc, logger),
		httpiface.NewGrantsHandler(grantSvc, logger),
		httpiface.NewAssignmentsHandler(assignmentSvc, logger),
		httpiface.NewScopeHandler(scopeSvc, logger),
		mw,
	)
	logger.Info(ctx, "starting http server", "port", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

package http

import (
	stdhttp "net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
}

type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(stdhttp.StatusBadRequest, err.Error())
	}
	return nil
}

func NewMainRouter(
	requests *RequestsHandler,
	grants *GrantsHandler,
	assignments *AssignmentsHandler,
	scope *ScopeHandler,
	m Middleware,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &payloadValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if m.XRay != nil {
		e.Use(m.XRay)
	}
	if m.RequestLogger != nil {
		e.Use(m.RequestLogger)
	}
	if m.Auth != nil {
		e.Use(m.Auth)
	}

	e.POST("/requests", requests.Create)
	e.GET("/requests", requests.List)
	e.GET("/requests/:id", requests.Get)
	e.POST("/requests/:id/approve", requests.Approve)
	e.POST("/requests/:id/reject", requests.Reject)
	e.POST("/requests/:id/cancel", requests.Cancel)
	e.DELETE("/requests/:id", requests.Delete)

	e.GET("/grants/expiring", grants.Expiring)
	e.POST("/grants/sweep", grants.Sweep)
	e.POST("/grants/bulk-extend", grants.BulkExtend)
	e.GET("/grants/:id", grants.Get)
	e.POST("/grants/:id/extend", grants.Extend)
	e.POST("/grants/:id/revoke", grants.Revoke)

	e.GET("/users/:user_id/grants", grants.ListByUser)
	e.POST("/users/:user_id/assignments", assignments.Assign)
	e.GET("/users/:user_id/assignments", assignments.ListByUser)
	e.POST("/role-changes/validate", assignments.ValidateRoleChange)

	e.GET("/scope/resources", scope.AccessibleResources)
	e.GET("/scope/resources/:id", scope.CanAccess)

	return e
}

package http

import (
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/labstack/echo/v4"

	"access-grants/internal/application"
	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

func handleError(c echo.Context, logger ports.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrMissingReason),
		errors.Is(err, domain.ErrUnknownRole):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrInsufficientPrivilege),
		errors.Is(err, domain.ErrSelfDemotion):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrInvalidState):
		return c.JSON(stdhttp.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logger.Error(c.Request().Context(), "unhandled error", "error", err)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// actorFrom reads the caller identity placed on the context by the auth
// middleware. The X-Actor-* headers are honored only when no middleware set
// an identity, which happens in AUTH_MODE=none deployments and tests.
func actorFrom(c echo.Context) (domain.User, error) {
	id, _ := c.Get("user_id").(string)
	roleRaw, _ := c.Get("user_role").(string)
	if id == "" {
		id = c.Request().Header.Get("X-Actor-Id")
		roleRaw = c.Request().Header.Get("X-Actor-Role")
	}
	if id == "" {
		return domain.User{}, domain.ErrInvalidInput
	}
	role, err := domain.ParseRole(roleRaw)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: id, Role: role, Active: true}, nil
}

type RequestsHandler struct {
	service *application.RequestService
	logger  ports.Logger
}

func NewRequestsHandler(service *application.RequestService, logger ports.Logger) *RequestsHandler {
	return &RequestsHandler{service: service, logger: logger}
}

func (h *RequestsHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		ResourceID      string `json:"resource_id" validate:"required"`
		TargetPrincipal string `json:"target_principal" validate:"required"`
		Level           string `json:"level" validate:"required"`
		Justification   string `json:"justification" validate:"required"`
		DurationDays    int    `json:"duration_days" validate:"required,gt=0"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	level, err := domain.ParsePermissionLevel(req.Level)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	created, err := h.service.Create(c.Request().Context(), application.CreateRequestInput{
		Requester:       actor,
		ResourceID:      req.ResourceID,
		TargetPrincipal: req.TargetPrincipal,
		Level:           level,
		Justification:   req.Justification,
		DurationDays:    req.DurationDays,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusCreated, created)
}

func (h *RequestsHandler) Get(c echo.Context) error {
	req, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, req)
}

func (h *RequestsHandler) List(c echo.Context) error {
	requesterID := c.QueryParam("requester_id")
	if requesterID == "" {
		actor, err := actorFrom(c)
		if err != nil {
			return handleError(c, h.logger, err)
		}
		requesterID = actor.ID
	}
	requests, err := h.service.ListByRequester(c.Request().Context(), requesterID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, requests)
}

func (h *RequestsHandler) Approve(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	approved, err := h.service.Approve(c.Request().Context(), c.Param("id"), actor, req.Notes)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, approved)
}

func (h *RequestsHandler) Reject(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	rejected, err := h.service.Reject(c.Request().Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, rejected)
}

func (h *RequestsHandler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	cancelled, err := h.service.Cancel(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, cancelled)
}

func (h *RequestsHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), actor); err != nil {
		return handleError(c, h.logger, err)
	}
	return c.NoContent(stdhttp.StatusNoContent)
}

type GrantsHandler struct {
	service *application.GrantService
	logger  ports.Logger
}

func NewGrantsHandler(service *application.GrantService, logger ports.Logger) *GrantsHandler {
	return &GrantsHandler{service: service, logger: logger}
}

func (h *GrantsHandler) Get(c echo.Context) error {
	grant, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, grant)
}

func (h *GrantsHandler) ListByUser(c echo.Context) error {
	grants, err := h.service.ListByUser(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, grants)
}

func (h *GrantsHandler) Extend(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		AdditionalDays int    `json:"additional_days" validate:"required,gt=0"`
		Reason         string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	grant, err := h.service.Extend(c.Request().Context(), c.Param("id"), req.AdditionalDays, actor, req.Reason)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, grant)
}

func (h *GrantsHandler) BulkExtend(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		GrantIDs       []string `json:"grant_ids" validate:"required,min=1"`
		AdditionalDays int      `json:"additional_days" validate:"required,gt=0"`
		Reason         string   `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result := h.service.BulkExtend(c.Request().Context(), req.GrantIDs, req.AdditionalDays, actor, req.Reason)
	return c.JSON(stdhttp.StatusOK, result)
}

func (h *GrantsHandler) Revoke(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	grant, err := h.service.Revoke(c.Request().Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, grant)
}

func (h *GrantsHandler) Expiring(c echo.Context) error {
	expiring, err := h.service.NotifyExpiring(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, expiring)
}

// Sweep scans active grants for expired ones, then transitions each. A grant
// that loses the transition race to a concurrent revoke is skipped, not
// reported as a failure.
func (h *GrantsHandler) Sweep(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()
	expired, err := h.service.SweepExpirations(ctx, now)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	marked := make([]string, 0, len(expired))
	for _, grantID := range expired {
		if err := h.service.MarkExpired(ctx, grantID, now); err != nil {
			h.logger.Warn(ctx, "failed to mark grant expired", "grant_id", grantID, "error", err)
			continue
		}
		marked = append(marked, grantID)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{"expired": marked})
}

type AssignmentsHandler struct {
	service *application.AssignmentService
	logger  ports.Logger
}

func NewAssignmentsHandler(service *application.AssignmentService, logger ports.Logger) *AssignmentsHandler {
	return &AssignmentsHandler{service: service, logger: logger}
}

func (h *AssignmentsHandler) Assign(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		ResourceID string `json:"resource_id" validate:"required"`
		Status     string `json:"status"`
		ExpiresAt  string `json:"expires_at"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "expires_at must be RFC3339"})
		}
		expiresAt = &parsed
	}
	assignment, err := h.service.AssignResource(c.Request().Context(), actor, domain.ResourceAssignment{
		UserID:     c.Param("user_id"),
		ResourceID: req.ResourceID,
		Status:     domain.AssignmentStatus(req.Status),
		ExpiresAt:  expiresAt,
		Notes:      req.Notes,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusCreated, assignment)
}

func (h *AssignmentsHandler) ListByUser(c echo.Context) error {
	assignments, err := h.service.ListByUser(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, assignments)
}

func (h *AssignmentsHandler) ValidateRoleChange(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	var req struct {
		TargetUserID string `json:"target_user_id" validate:"required"`
		TargetRole   string `json:"target_role" validate:"required"`
		NewRole      string `json:"new_role" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	targetRole, err := domain.ParseRole(req.TargetRole)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	newRole, err := domain.ParseRole(req.NewRole)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	target := domain.User{ID: req.TargetUserID, Role: targetRole, Active: true}
	if err := h.service.ValidateRoleChange(c.Request().Context(), actor, target, newRole); err != nil {
		if errors.Is(err, domain.ErrInsufficientPrivilege) || errors.Is(err, domain.ErrSelfDemotion) {
			return c.JSON(stdhttp.StatusOK, map[string]any{"allowed": false, "reason": err.Error()})
		}
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{"allowed": true})
}

type ScopeHandler struct {
	service *application.ScopeService
	logger  ports.Logger
}

func NewScopeHandler(service *application.ScopeService, logger ports.Logger) *ScopeHandler {
	return &ScopeHandler{service: service, logger: logger}
}

func (h *ScopeHandler) AccessibleResources(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	accessible, err := h.service.AccessibleResources(c.Request().Context(), actor)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	ids := make([]string, 0, len(accessible))
	for id := range accessible {
		ids = append(ids, id)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{"resource_ids": ids})
}

func (h *ScopeHandler) CanAccess(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	allowed, err := h.service.CanAccess(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]bool{"allowed": allowed})
}

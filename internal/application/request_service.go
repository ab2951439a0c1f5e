package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

// RequestService owns the request state machine: creation with scope and
// duplicate checks, auto-approval dispatch, and the approve/reject/cancel
// transitions. Grant activation is handed off to GrantService.
type RequestService struct {
	requests ports.RequestRepository
	grants   *GrantService
	scope    *ScopeService
	policy   *domain.ApprovalPolicy
	notifier ports.Notifier
	audit    ports.AuditSink
	logger   ports.Logger
}

func NewRequestService(requests ports.RequestRepository, grants *GrantService, scope *ScopeService, policy *domain.ApprovalPolicy, notifier ports.Notifier, audit ports.AuditSink, logger ports.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		grants:   grants,
		scope:    scope,
		policy:   policy,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

type CreateRequestInput struct {
	Requester       domain.User
	ResourceID      string
	TargetPrincipal string
	Level           domain.PermissionLevel
	Justification   string
	DurationDays    int
}

func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (domain.PermissionRequest, error) {
	if in.Requester.ID == "" || in.ResourceID == "" || strings.TrimSpace(in.TargetPrincipal) == "" || strings.TrimSpace(in.Justification) == "" {
		return domain.PermissionRequest{}, domain.ErrInvalidInput
	}
	if in.DurationDays <= 0 {
		return domain.PermissionRequest{}, fmt.Errorf("%w: %d days", domain.ErrInvalidDuration, in.DurationDays)
	}

	canAccess, err := s.scope.CanAccess(ctx, in.Requester, in.ResourceID)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if !canAccess {
		return domain.PermissionRequest{}, fmt.Errorf("%w: requester %s has no scope on resource %s", domain.ErrAccessDenied, in.Requester.ID, in.ResourceID)
	}

	decision, err := s.policy.Evaluate(in.Requester.Role, in.Level)
	if err != nil {
		return domain.PermissionRequest{}, err
	}

	now := time.Now().UTC()
	req := domain.PermissionRequest{
		ID:                   uuid.NewString(),
		RequesterID:          in.Requester.ID,
		RequesterRole:        in.Requester.Role,
		ResourceID:           in.ResourceID,
		TargetPrincipal:      strings.TrimSpace(in.TargetPrincipal),
		Level:                in.Level,
		Justification:        strings.TrimSpace(in.Justification),
		DurationDays:         in.DurationDays,
		Status:               domain.RequestPending,
		AutoApproved:         decision.AutoApproved,
		DecisionReason:       decision.Reason,
		RequiredApproverRole: decision.RequiredApproverRole,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	// The repository enforces the one-active-request invariant atomically.
	if err := s.requests.Create(ctx, req); err != nil {
		return domain.PermissionRequest{}, err
	}
	s.publish(ctx, domain.Event{
		Type:            domain.EventRequestCreated,
		ActorID:         req.RequesterID,
		RequestID:       req.ID,
		ResourceID:      req.ResourceID,
		TargetPrincipal: req.TargetPrincipal,
		OccurredAt:      now,
	})
	s.recordAudit(ctx, req.RequesterID, "request.create", req.ResourceID, "", string(domain.RequestPending), now)

	if !decision.AutoApproved {
		return req, nil
	}

	// Auto-approval is an instantaneous pending -> approved transition so
	// history reads the same as a manual approval.
	grant, err := s.grants.Activate(ctx, req)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := req.Approve(req.RequesterID, decision.Reason, grant.ID, time.Now().UTC()); err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.requests.Update(ctx, req, domain.RequestPending); err != nil {
		s.discardGrant(ctx, grant)
		return domain.PermissionRequest{}, err
	}
	s.notifyProcessed(ctx, req, domain.EventRequestApproved, decision.Reason)
	s.recordAudit(ctx, req.RequesterID, "request.auto_approve", req.ResourceID, string(domain.RequestPending), string(domain.RequestApproved), req.UpdatedAt)
	return req, nil
}

func (s *RequestService) GetByID(ctx context.Context, id string) (domain.PermissionRequest, error) {
	if id == "" {
		return domain.PermissionRequest{}, domain.ErrInvalidInput
	}
	return s.requests.GetByID(ctx, id)
}

func (s *RequestService) ListByRequester(ctx context.Context, requesterID string) ([]domain.PermissionRequest, error) {
	if requesterID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.requests.ListByRequester(ctx, requesterID)
}

// Approve processes a pending request and activates its grant. The approver
// must hold the required approver role or above.
func (s *RequestService) Approve(ctx context.Context, requestID string, approver domain.User, notes string) (domain.PermissionRequest, error) {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.checkApproverRank(approver, req); err != nil {
		return domain.PermissionRequest{}, err
	}

	grant, err := s.grants.Activate(ctx, req)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	now := time.Now().UTC()
	if err := req.Approve(approver.ID, notes, grant.ID, now); err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.requests.Update(ctx, req, domain.RequestPending); err != nil {
		s.discardGrant(ctx, grant)
		return domain.PermissionRequest{}, err
	}
	s.notifyProcessed(ctx, req, domain.EventRequestApproved, notes)
	s.recordAudit(ctx, approver.ID, "request.approve", req.ResourceID, string(domain.RequestPending), string(domain.RequestApproved), now)
	return req, nil
}

// Reject refuses a pending request. The reason is surfaced back to the
// requester, so it is mandatory.
func (s *RequestService) Reject(ctx context.Context, requestID string, approver domain.User, reason string) (domain.PermissionRequest, error) {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.checkApproverRank(approver, req); err != nil {
		return domain.PermissionRequest{}, err
	}

	now := time.Now().UTC()
	if err := req.Reject(approver.ID, reason, now); err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.requests.Update(ctx, req, domain.RequestPending); err != nil {
		return domain.PermissionRequest{}, err
	}
	s.clearTuple(ctx, req)
	s.notifyProcessed(ctx, req, domain.EventRequestRejected, reason)
	s.recordAudit(ctx, approver.ID, "request.reject", req.ResourceID, string(domain.RequestPending), string(domain.RequestRejected), now)
	return req, nil
}

// Cancel withdraws a pending request. Only the original requester, or an
// actor outranking them, may cancel.
func (s *RequestService) Cancel(ctx context.Context, requestID string, actor domain.User) (domain.PermissionRequest, error) {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.checkRequesterOrOutranking(actor, req); err != nil {
		return domain.PermissionRequest{}, err
	}

	now := time.Now().UTC()
	if err := req.Cancel(actor.ID, now); err != nil {
		return domain.PermissionRequest{}, err
	}
	if err := s.requests.Update(ctx, req, domain.RequestPending); err != nil {
		return domain.PermissionRequest{}, err
	}
	s.clearTuple(ctx, req)
	s.recordAudit(ctx, actor.ID, "request.cancel", req.ResourceID, string(domain.RequestPending), string(domain.RequestCancelled), now)
	return req, nil
}

// Delete removes a request record entirely. Processed requests are retained
// for audit, so deletion is only permitted while still pending.
func (s *RequestService) Delete(ctx context.Context, requestID string, actor domain.User) error {
	req, err := s.getPending(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.checkRequesterOrOutranking(actor, req); err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, req); err != nil {
		return err
	}
	s.clearTuple(ctx, req)
	s.recordAudit(ctx, actor.ID, "request.delete", req.ResourceID, string(domain.RequestPending), "", time.Now().UTC())
	return nil
}

func (s *RequestService) getPending(ctx context.Context, requestID string) (domain.PermissionRequest, error) {
	if requestID == "" {
		return domain.PermissionRequest{}, domain.ErrInvalidInput
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if req.Status != domain.RequestPending {
		return domain.PermissionRequest{}, fmt.Errorf("%w: request is %s", domain.ErrInvalidState, req.Status)
	}
	return req, nil
}

func (s *RequestService) checkApproverRank(approver domain.User, req domain.PermissionRequest) error {
	atLeast, err := domain.AtLeast(approver.Role, req.RequiredApproverRole)
	if err != nil {
		return err
	}
	if !atLeast {
		return fmt.Errorf("%w: %s may not process a request requiring %s", domain.ErrInsufficientPrivilege, approver.Role, req.RequiredApproverRole)
	}
	return nil
}

func (s *RequestService) checkRequesterOrOutranking(actor domain.User, req domain.PermissionRequest) error {
	if actor.ID == req.RequesterID {
		return nil
	}
	outranks, err := domain.Outranks(actor.Role, req.RequesterRole)
	if err != nil {
		return err
	}
	if !outranks {
		return fmt.Errorf("%w: only the requester or an outranking role may act on this request", domain.ErrInsufficientPrivilege)
	}
	return nil
}

// discardGrant removes a grant whose request transition lost its CAS race,
// so the loser leaves no live access behind.
func (s *RequestService) discardGrant(ctx context.Context, grant domain.PermissionGrant) {
	if err := s.grants.Discard(ctx, grant); err != nil {
		s.logger.Error(ctx, "failed to discard orphaned grant", "grant_id", grant.ID, "error", err)
	}
}

func (s *RequestService) clearTuple(ctx context.Context, req domain.PermissionRequest) {
	if err := s.requests.ClearActiveTuple(ctx, req.RequesterID, req.ResourceID, req.TargetPrincipal); err != nil {
		s.logger.Warn(ctx, "failed to release request tuple", "request_id", req.ID, "error", err)
	}
}

func (s *RequestService) notifyProcessed(ctx context.Context, req domain.PermissionRequest, eventType domain.EventType, reason string) {
	s.publish(ctx, domain.Event{
		Type:            eventType,
		ActorID:         req.ProcessedBy,
		RequestID:       req.ID,
		GrantID:         req.GrantID,
		ResourceID:      req.ResourceID,
		TargetPrincipal: req.TargetPrincipal,
		Reason:          reason,
		OccurredAt:      req.UpdatedAt,
	})
}

func (s *RequestService) publish(ctx context.Context, event domain.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (s *RequestService) recordAudit(ctx context.Context, actor, action, resource, before, after string, now time.Time) {
	record := domain.AuditRecord{
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		BeforeState: before,
		AfterState:  after,
		Timestamp:   now,
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.logger.Warn(ctx, "failed to record audit entry", "action", action, "error", err)
	}
}

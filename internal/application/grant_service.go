package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

// GrantService owns the post-approval lifecycle: activation, extension,
// revocation and expiry detection. State transitions are delegated to the
// domain type; persistence uses compare-and-set updates so concurrent
// processors resolve to exactly one winner.
type GrantService struct {
	grants   ports.GrantRepository
	requests ports.RequestRepository
	notifier ports.Notifier
	audit    ports.AuditSink
	logger   ports.Logger
}

func NewGrantService(grants ports.GrantRepository, requests ports.RequestRepository, notifier ports.Notifier, audit ports.AuditSink, logger ports.Logger) *GrantService {
	return &GrantService{grants: grants, requests: requests, notifier: notifier, audit: audit, logger: logger}
}

// Activate creates the active grant for an approved request.
func (s *GrantService) Activate(ctx context.Context, req domain.PermissionRequest) (domain.PermissionGrant, error) {
	if req.DurationDays <= 0 {
		return domain.PermissionGrant{}, domain.ErrInvalidDuration
	}
	now := time.Now().UTC()
	expires := now.AddDate(0, 0, req.DurationDays)
	grant := domain.PermissionGrant{
		ID:                uuid.NewString(),
		RequestID:         req.ID,
		UserID:            req.RequesterID,
		ResourceID:        req.ResourceID,
		TargetPrincipal:   req.TargetPrincipal,
		Level:             req.Level,
		Status:            domain.GrantActive,
		GrantedAt:         now,
		ExpiresAt:         expires,
		OriginalExpiresAt: expires,
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		return domain.PermissionGrant{}, err
	}
	s.recordAudit(ctx, req.RequesterID, "grant.activate", grant.ResourceID, "", string(domain.GrantActive), now)
	return grant, nil
}

func (s *GrantService) GetByID(ctx context.Context, grantID string) (domain.PermissionGrant, error) {
	if grantID == "" {
		return domain.PermissionGrant{}, domain.ErrInvalidInput
	}
	return s.grants.GetByID(ctx, grantID)
}

func (s *GrantService) ListByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.grants.ListByUser(ctx, userID)
}

// Extend pushes an active grant's expiry out by additionalDays.
func (s *GrantService) Extend(ctx context.Context, grantID string, additionalDays int, actor domain.User, reason string) (domain.PermissionGrant, error) {
	if grantID == "" {
		return domain.PermissionGrant{}, domain.ErrInvalidInput
	}
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return domain.PermissionGrant{}, err
	}
	before := grant.Status
	if err := grant.Extend(additionalDays); err != nil {
		return domain.PermissionGrant{}, err
	}
	if err := s.grants.Update(ctx, grant, before); err != nil {
		return domain.PermissionGrant{}, err
	}
	now := time.Now().UTC()
	s.recordAudit(ctx, actor.ID, "grant.extend", grant.ResourceID, string(before), string(grant.Status), now)
	s.logger.Info(ctx, "grant extended",
		"grant_id", grant.ID,
		"actor_id", actor.ID,
		"additional_days", additionalDays,
		"extension_count", grant.ExtensionCount,
		"reason", reason,
	)
	return grant, nil
}

type BulkFailure struct {
	GrantID string `json:"grant_id"`
	Err     error  `json:"-"`
	Message string `json:"error"`
}

type BulkExtendResult struct {
	Extended []domain.PermissionGrant `json:"extended"`
	Failed   []BulkFailure            `json:"failed"`
}

// BulkExtend applies Extend to each id independently. Partial success is the
// expected outcome; one bad id never aborts the batch.
func (s *GrantService) BulkExtend(ctx context.Context, grantIDs []string, additionalDays int, actor domain.User, reason string) BulkExtendResult {
	result := BulkExtendResult{}
	for _, id := range grantIDs {
		grant, err := s.Extend(ctx, id, additionalDays, actor, reason)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{GrantID: id, Err: err, Message: err.Error()})
			continue
		}
		result.Extended = append(result.Extended, grant)
	}
	return result
}

// Revoke terminates an active grant and releases the request tuple so the
// same access can be requested again.
func (s *GrantService) Revoke(ctx context.Context, grantID string, actor domain.User, reason string) (domain.PermissionGrant, error) {
	if grantID == "" {
		return domain.PermissionGrant{}, domain.ErrInvalidInput
	}
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return domain.PermissionGrant{}, err
	}
	before := grant.Status
	now := time.Now().UTC()
	if err := grant.Revoke(actor.ID, reason, now); err != nil {
		return domain.PermissionGrant{}, err
	}
	if err := s.grants.Update(ctx, grant, before); err != nil {
		return domain.PermissionGrant{}, err
	}
	s.clearTuple(ctx, grant)
	s.publish(ctx, domain.Event{
		Type:            domain.EventGrantRevoked,
		ActorID:         actor.ID,
		GrantID:         grant.ID,
		ResourceID:      grant.ResourceID,
		TargetPrincipal: grant.TargetPrincipal,
		Reason:          reason,
		OccurredAt:      now,
	})
	s.recordAudit(ctx, actor.ID, "grant.revoke", grant.ResourceID, string(before), string(grant.Status), now)
	return grant, nil
}

// Discard revokes a grant that never became reachable through an approved
// request: its owning transition lost the CAS race to a concurrent
// processor. The request tuple stays locked for the winner and no revoke
// event is published.
func (s *GrantService) Discard(ctx context.Context, grant domain.PermissionGrant) error {
	now := time.Now().UTC()
	if err := grant.Revoke("system", "superseded by concurrent transition", now); err != nil {
		return err
	}
	if err := s.grants.Update(ctx, grant, domain.GrantActive); err != nil {
		return err
	}
	s.recordAudit(ctx, "system", "grant.discard", grant.ResourceID, string(domain.GrantActive), string(domain.GrantRevoked), now)
	return nil
}

// SweepExpirations returns the ids of every active grant whose expiry has
// passed. It never mutates state; scheduling and the MarkExpired step belong
// to the caller, so the scan can run on any cadence.
func (s *GrantService) SweepExpirations(ctx context.Context, now time.Time) ([]string, error) {
	active, err := s.grants.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var expired []string
	for _, grant := range active {
		if !grant.ExpiresAt.After(now) {
			expired = append(expired, grant.ID)
		}
	}
	return expired, nil
}

// MarkExpired finalizes a grant found by a sweep. No-op when the grant is
// already expired, so repeated sweeps stay harmless.
func (s *GrantService) MarkExpired(ctx context.Context, grantID string, now time.Time) error {
	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.Status == domain.GrantExpired {
		return nil
	}
	before := grant.Status
	if err := grant.MarkExpired(now); err != nil {
		return err
	}
	if err := s.grants.Update(ctx, grant, before); err != nil {
		// Lost the race to another sweeper; the grant is already expired.
		if errors.Is(err, domain.ErrInvalidState) {
			return nil
		}
		return err
	}
	s.clearTuple(ctx, grant)
	s.recordAudit(ctx, "system", "grant.expire", grant.ResourceID, string(before), string(domain.GrantExpired), now)
	return nil
}

type ExpiringGrant struct {
	Grant   domain.PermissionGrant `json:"grant"`
	Urgency domain.Urgency         `json:"urgency"`
}

// NotifyExpiring classifies every active grant by urgency, publishes a
// grant_expiring event for each one inside the warning window, and returns
// the classification for reporting.
func (s *GrantService) NotifyExpiring(ctx context.Context, now time.Time) ([]ExpiringGrant, error) {
	active, err := s.grants.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []ExpiringGrant
	for _, grant := range active {
		urgency := grant.Urgency(now)
		if urgency == domain.UrgencyNone {
			continue
		}
		out = append(out, ExpiringGrant{Grant: grant, Urgency: urgency})
		s.publish(ctx, domain.Event{
			Type:            domain.EventGrantExpiring,
			GrantID:         grant.ID,
			ResourceID:      grant.ResourceID,
			TargetPrincipal: grant.TargetPrincipal,
			Reason:          string(urgency),
			OccurredAt:      now,
		})
	}
	return out, nil
}

func (s *GrantService) clearTuple(ctx context.Context, grant domain.PermissionGrant) {
	if err := s.requests.ClearActiveTuple(ctx, grant.UserID, grant.ResourceID, grant.TargetPrincipal); err != nil {
		s.logger.Warn(ctx, "failed to release request tuple", "grant_id", grant.ID, "error", err)
	}
}

func (s *GrantService) publish(ctx context.Context, event domain.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (s *GrantService) recordAudit(ctx context.Context, actor, action, resource, before, after string, now time.Time) {
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

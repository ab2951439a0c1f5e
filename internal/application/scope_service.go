package application

import (
	"context"
	"time"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

// ScopeService computes the set of resources a user may act on. Resolution
// is read-only and idempotent; callers may probe it speculatively.
//
// Precedence: a suspended assignment is an explicit deny that always wins;
// an active unexpired assignment is an explicit grant; otherwise membership
// in an unrestricted role tier grants every active resource. Inactive
// resources are excluded in all three cases.
type ScopeService struct {
	assignments  ports.AssignmentRepository
	resources    ports.ResourceRepository
	unrestricted map[domain.Role]bool
	logger       ports.Logger
}

func NewScopeService(assignments ports.AssignmentRepository, resources ports.ResourceRepository, unrestrictedRoles []domain.Role, logger ports.Logger) *ScopeService {
	unrestricted := make(map[domain.Role]bool, len(unrestrictedRoles))
	for _, role := range unrestrictedRoles {
		unrestricted[role] = true
	}
	return &ScopeService{assignments: assignments, resources: resources, unrestricted: unrestricted, logger: logger}
}

func (s *ScopeService) AccessibleResources(ctx context.Context, user domain.User) (map[string]struct{}, error) {
	if user.ID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !user.Role.Valid() {
		return nil, domain.ErrUnknownRole
	}

	active, err := s.resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	activeIDs := make(map[string]struct{}, len(active))
	for _, res := range active {
		activeIDs[res.ID] = struct{}{}
	}

	assignments, err := s.assignments.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	denied := map[string]bool{}
	granted := map[string]bool{}
	for _, a := range assignments {
		switch a.Status {
		case domain.AssignmentSuspended:
			denied[a.ResourceID] = true
		case domain.AssignmentActive:
			if a.ExpiresAt == nil || a.ExpiresAt.After(now) {
				granted[a.ResourceID] = true
			}
		}
	}

	out := make(map[string]struct{})
	for id := range activeIDs {
		if denied[id] {
			continue
		}
		if granted[id] || s.unrestricted[user.Role] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *ScopeService) CanAccess(ctx context.Context, user domain.User, resourceID string) (bool, error) {
	if resourceID == "" {
		return false, domain.ErrInvalidInput
	}
	accessible, err := s.AccessibleResources(ctx, user)
	if err != nil {
		return false, err
	}
	_, ok := accessible[resourceID]
	return ok, nil
}

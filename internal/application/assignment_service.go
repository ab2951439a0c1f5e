package application

import (
	"context"
	"fmt"
	"time"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

// AssignmentService manages resource assignments and validates role changes
// on behalf of the user-management collaborator. It knows nothing about
// requests or grants.
type AssignmentService struct {
	assignments ports.AssignmentRepository
	resources   ports.ResourceRepository
	audit       ports.AuditSink
	logger      ports.Logger
}

func NewAssignmentService(assignments ports.AssignmentRepository, resources ports.ResourceRepository, audit ports.AuditSink, logger ports.Logger) *AssignmentService {
	return &AssignmentService{assignments: assignments, resources: resources, audit: audit, logger: logger}
}

// ValidateRoleChange guards a proposed role change. Pure check; the identity
// subsystem applies the change itself. The validation is audited either way
// so disputed escalation attempts leave a trace.
func (s *AssignmentService) ValidateRoleChange(ctx context.Context, actor domain.User, target domain.User, newRole domain.Role) error {
	err := domain.ValidateRoleAssignment(actor, target, newRole)
	outcome := "allowed"
	if err != nil {
		outcome = "denied"
	}
	s.recordAudit(ctx, actor.ID, "role.validate_change", target.ID, string(target.Role), string(newRole)+":"+outcome)
	return err
}

// AssignResource establishes or replaces the single assignment for a
// (user, resource) pair. The actor needs manager rank or above.
func (s *AssignmentService) AssignResource(ctx context.Context, actor domain.User, assignment domain.ResourceAssignment) (domain.ResourceAssignment, error) {
	if assignment.UserID == "" || assignment.ResourceID == "" {
		return domain.ResourceAssignment{}, domain.ErrInvalidInput
	}
	atLeast, err := domain.AtLeast(actor.Role, domain.RoleManager)
	if err != nil {
		return domain.ResourceAssignment{}, err
	}
	if !atLeast {
		return domain.ResourceAssignment{}, fmt.Errorf("%w: %s may not manage assignments", domain.ErrInsufficientPrivilege, actor.Role)
	}
	if assignment.Status == "" {
		assignment.Status = domain.AssignmentActive
	}
	switch assignment.Status {
	case domain.AssignmentActive, domain.AssignmentInactive, domain.AssignmentSuspended:
	default:
		return domain.ResourceAssignment{}, fmt.Errorf("%w: assignment status %q", domain.ErrInvalidInput, assignment.Status)
	}
	if _, err := s.resources.GetByID(ctx, assignment.ResourceID); err != nil {
		return domain.ResourceAssignment{}, err
	}

	now := time.Now().UTC()
	assignment.AssignedBy = actor.ID
	assignment.UpdatedAt = now
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	if err := s.assignments.Put(ctx, assignment); err != nil {
		return domain.ResourceAssignment{}, err
	}
	s.recordAudit(ctx, actor.ID, "assignment.put", assignment.ResourceID, "", string(assignment.Status))
	return assignment, nil
}

func (s *AssignmentService) ListByUser(ctx context.Context, userID string) ([]domain.ResourceAssignment, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.assignments.ListByUser(ctx, userID)
}

func (s *AssignmentService) recordAudit(ctx context.Context, actor, action, resource, before, after string) {
	record := domain.AuditRecord{
		Actor:       actor,
		Action:      action,
		Resource:    resource,
		BeforeState: before,
		AfterState:  after,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.logger.Warn(ctx, "failed to record audit entry", "action", action, "error", err)
	}
}

package ports

import (
	"context"

	"access-grants/internal/domain"
)

// RequestRepository persists permission requests. Create must atomically
// enforce the one-active-request invariant per (requester, resource, target
// principal) tuple, returning domain.ErrDuplicateRequest on conflict.
// Update is a compare-and-set on the current status: a stale fromStatus
// returns domain.ErrInvalidState so concurrent processors race safely.
type RequestRepository interface {
	Create(ctx context.Context, req domain.PermissionRequest) error
	GetByID(ctx context.Context, id string) (domain.PermissionRequest, error)
	Update(ctx context.Context, req domain.PermissionRequest, fromStatus domain.RequestStatus) error
	Delete(ctx context.Context, req domain.PermissionRequest) error
	ListByRequester(ctx context.Context, requesterID string) ([]domain.PermissionRequest, error)
	// ClearActiveTuple releases the uniqueness hold so the same tuple can be
	// requested again after a rejection, cancellation, revocation or expiry.
	ClearActiveTuple(ctx context.Context, requesterID, resourceID, targetPrincipal string) error
}

// GrantRepository persists permission grants. Update is a compare-and-set
// on the current status, same contract as RequestRepository.Update.
type GrantRepository interface {
	Create(ctx context.Context, grant domain.PermissionGrant) error
	GetByID(ctx context.Context, id string) (domain.PermissionGrant, error)
	Update(ctx context.Context, grant domain.PermissionGrant, fromStatus domain.GrantStatus) error
	ListActive(ctx context.Context) ([]domain.PermissionGrant, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error)
}

type AssignmentRepository interface {
	Put(ctx context.Context, assignment domain.ResourceAssignment) error
	Get(ctx context.Context, userID, resourceID string) (domain.ResourceAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ResourceAssignment, error)
}

type ResourceRepository interface {
	Put(ctx context.Context, resource domain.Resource) error
	GetByID(ctx context.Context, id string) (domain.Resource, error)
	ListActive(ctx context.Context) ([]domain.Resource, error)
}

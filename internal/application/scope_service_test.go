package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"access-grants/internal/domain"
)

func newScopeFixture(t *testing.T) (*ScopeService, *assignmentRepoMock, *resourceRepoMock) {
	t.Helper()
	assignments := new(assignmentRepoMock)
	resources := new(resourceRepoMock)
	svc := NewScopeService(assignments, resources, []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}, nopLogger{})
	return svc, assignments, resources
}

func activeResources(ids ...string) []domain.Resource {
	out := make([]domain.Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Resource{ID: id, Status: domain.ResourceActive})
	}
	return out
}

func TestAccessibleResources_UnrestrictedTierSeesAllActive(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1", "res-2"), nil)
	assignments.On("ListByUser", mock.Anything, "admin-1").Return([]domain.ResourceAssignment{}, nil)

	got, err := svc.AccessibleResources(context.Background(), domain.User{ID: "admin-1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "res-1")
	assert.Contains(t, got, "res-2")
}

func TestAccessibleResources_AssignmentScoped(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1", "res-2"), nil)
	assignments.On("ListByUser", mock.Anything, "u1").Return([]domain.ResourceAssignment{
		{UserID: "u1", ResourceID: "res-1", Status: domain.AssignmentActive},
		{UserID: "u1", ResourceID: "res-2", Status: domain.AssignmentInactive},
	}, nil)

	got, err := svc.AccessibleResources(context.Background(), domain.User{ID: "u1", Role: domain.RoleRequester})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "res-1")
}

func TestAccessibleResources_ExpiredAssignmentExcluded(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1", "res-2"), nil)
	assignments.On("ListByUser", mock.Anything, "u1").Return([]domain.ResourceAssignment{
		{UserID: "u1", ResourceID: "res-1", Status: domain.AssignmentActive, ExpiresAt: &past},
		{UserID: "u1", ResourceID: "res-2", Status: domain.AssignmentActive, ExpiresAt: &future},
	}, nil)

	got, err := svc.AccessibleResources(context.Background(), domain.User{ID: "u1", Role: domain.RoleRequester})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "res-2")
}

func TestAccessibleResources_InactiveResourceAlwaysWins(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	// res-2 is inactive and absent from the active listing despite an
	// active assignment pointing at it.
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1"), nil)
	assignments.On("ListByUser", mock.Anything, "u1").Return([]domain.ResourceAssignment{
		{UserID: "u1", ResourceID: "res-2", Status: domain.AssignmentActive},
	}, nil)

	got, err := svc.AccessibleResources(context.Background(), domain.User{ID: "u1", Role: domain.RoleRequester})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAccessibleResources_SuspendedDenyBeatsUnrestrictedTier(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1", "res-2"), nil)
	assignments.On("ListByUser", mock.Anything, "admin-1").Return([]domain.ResourceAssignment{
		{UserID: "admin-1", ResourceID: "res-1", Status: domain.AssignmentSuspended},
	}, nil)

	got, err := svc.AccessibleResources(context.Background(), domain.User{ID: "admin-1", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "res-2")
}

func TestAccessibleResources_Idempotent(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1", "res-2"), nil)
	assignments.On("ListByUser", mock.Anything, "u1").Return([]domain.ResourceAssignment{
		{UserID: "u1", ResourceID: "res-1", Status: domain.AssignmentActive},
	}, nil)

	user := domain.User{ID: "u1", Role: domain.RoleRequester}
	first, err := svc.AccessibleResources(context.Background(), user)
	require.NoError(t, err)
	second, err := svc.AccessibleResources(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCanAccess(t *testing.T) {
	svc, assignments, resources := newScopeFixture(t)
	resources.On("ListActive", mock.Anything).Return(activeResources("res-1"), nil)
	assignments.On("ListByUser", mock.Anything, "u1").Return([]domain.ResourceAssignment{
		{UserID: "u1", ResourceID: "res-1", Status: domain.AssignmentActive},
	}, nil)

	user := domain.User{ID: "u1", Role: domain.RoleRequester}
	ok, err := svc.CanAccess(context.Background(), user, "res-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAccess(context.Background(), user, "res-9")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CanAccess(context.Background(), user, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAccessibleResources_UnknownRole(t *testing.T) {
	svc, _, _ := newScopeFixture(t)
	_, err := svc.AccessibleResources(context.Background(), domain.User{ID: "u1", Role: domain.Role("owner")})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

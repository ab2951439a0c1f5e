package application

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"access-grants/internal/domain"
)

type requestRepoMock struct{ mock.Mock }

func (m *requestRepoMock) Create(ctx context.Context, req domain.PermissionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *requestRepoMock) GetByID(ctx context.Context, id string) (domain.PermissionRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PermissionRequest), args.Error(1)
}

func (m *requestRepoMock) Update(ctx context.Context, req domain.PermissionRequest, fromStatus domain.RequestStatus) error {
	args := m.Called(ctx, req, fromStatus)
	return args.Error(0)
}

func (m *requestRepoMock) Delete(ctx context.Context, req domain.PermissionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *requestRepoMock) ListByRequester(ctx context.Context, requesterID string) ([]domain.PermissionRequest, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.PermissionRequest), args.Error(1)
}

func (m *requestRepoMock) ClearActiveTuple(ctx context.Context, requesterID, resourceID, targetPrincipal string) error {
	args := m.Called(ctx, requesterID, resourceID, targetPrincipal)
	return args.Error(0)
}

type grantRepoMock struct{ mock.Mock }

func (m *grantRepoMock) Create(ctx context.Context, grant domain.PermissionGrant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *grantRepoMock) GetByID(ctx context.Context, id string) (domain.PermissionGrant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PermissionGrant), args.Error(1)
}

func (m *grantRepoMock) Update(ctx context.Context, grant domain.PermissionGrant, fromStatus domain.GrantStatus) error {
	args := m.Called(ctx, grant, fromStatus)
	return args.Error(0)
}

func (m *grantRepoMock) ListActive(ctx context.Context) ([]domain.PermissionGrant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.PermissionGrant), args.Error(1)
}

func (m *grantRepoMock) ListByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.PermissionGrant), args.Error(1)
}

type assignmentRepoMock struct{ mock.Mock }

func (m *assignmentRepoMock) Put(ctx context.Context, assignment domain.ResourceAssignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *assignmentRepoMock) Get(ctx context.Context, userID, resourceID string) (domain.ResourceAssignment, error) {
	args := m.Called(ctx, userID, resourceID)
	return args.Get(0).(domain.ResourceAssignment), args.Error(1)
}

func (m *assignmentRepoMock) ListByUser(ctx context.Context, userID string) ([]domain.ResourceAssignment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.ResourceAssignment), args.Error(1)
}

type resourceRepoMock struct{ mock.Mock }

func (m *resourceRepoMock) Put(ctx context.Context, resource domain.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *resourceRepoMock) GetByID(ctx context.Context, id string) (domain.Resource, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Resource), args.Error(1)
}

func (m *resourceRepoMock) ListActive(ctx context.Context) ([]domain.Resource, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Resource), args.Error(1)
}

// notifierStub and auditStub record what the services emit; hook failures
// must never fail an operation, so no error injection is needed here.
type notifierStub struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *notifierStub) Publish(_ context.Context, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *notifierStub) eventTypes() []domain.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]domain.EventType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type auditStub struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (a *auditStub) Record(_ context.Context, record domain.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

func (a *auditStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]string, 0, len(a.records))
	for _, r := range a.records {
		actions = append(actions, r.Action)
	}
	return actions
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

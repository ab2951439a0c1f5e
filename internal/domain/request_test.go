package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRequest() PermissionRequest {
	now := time.Now().UTC()
	return PermissionRequest{
		ID:              "req-1",
		RequesterID:     "u1",
		RequesterRole:   RoleRequester,
		ResourceID:      "res-1",
		TargetPrincipal: "analyst@example.com",
		Level:           LevelViewer,
		DurationDays:    30,
		Status:          RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestRequestApprove(t *testing.T) {
	req := pendingRequest()
	now := time.Now().UTC()

	require.NoError(t, req.Approve("approver-1", "ok", "grant-1", now))
	assert.Equal(t, RequestApproved, req.Status)
	assert.Equal(t, "approver-1", req.ProcessedBy)
	assert.Equal(t, "grant-1", req.GrantID)
	require.NotNil(t, req.ProcessedAt)
}

func TestRequestReject_RequiresReason(t *testing.T) {
	req := pendingRequest()
	now := time.Now().UTC()

	err := req.Reject("approver-1", "  ", now)
	assert.ErrorIs(t, err, ErrMissingReason)
	assert.Equal(t, RequestPending, req.Status)

	require.NoError(t, req.Reject("approver-1", "no business need", now))
	assert.Equal(t, RequestRejected, req.Status)
	assert.Equal(t, "no business need", req.ProcessingNotes)
}

func TestRequestCancel(t *testing.T) {
	req := pendingRequest()
	require.NoError(t, req.Cancel("u1", time.Now().UTC()))
	assert.Equal(t, RequestCancelled, req.Status)
}

func TestRequest_NoTransitionOutOfTerminalStates(t *testing.T) {
	now := time.Now().UTC()
	for _, terminal := range []RequestStatus{RequestApproved, RequestRejected, RequestCancelled} {
		req := pendingRequest()
		req.Status = terminal

		assert.ErrorIs(t, req.Approve("a", "", "g", now), ErrInvalidState, "approve from %s", terminal)
		assert.ErrorIs(t, req.Reject("a", "reason", now), ErrInvalidState, "reject from %s", terminal)
		assert.ErrorIs(t, req.Cancel("a", now), ErrInvalidState, "cancel from %s", terminal)
		assert.Equal(t, terminal, req.Status)
	}
}

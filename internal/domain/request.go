package domain

import (
	"fmt"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// PermissionRequest tracks a single ask for access on behalf of a target
// principal. The transition methods below are the only legal mutators of
// Status; pending is the sole non-terminal state.
type PermissionRequest struct {
	ID                   string          `json:"id"`
	RequesterID          string          `json:"requester_id"`
	RequesterRole        Role            `json:"requester_role"`
	ResourceID           string          `json:"resource_id"`
	TargetPrincipal      string          `json:"target_principal"`
	Level                PermissionLevel `json:"level"`
	Justification        string          `json:"justification"`
	DurationDays         int             `json:"duration_days"`
	Status               RequestStatus   `json:"status"`
	AutoApproved         bool            `json:"auto_approved"`
	DecisionReason       string          `json:"decision_reason,omitempty"`
	RequiredApproverRole Role            `json:"required_approver_role,omitempty"`
	ProcessedBy          string          `json:"processed_by,omitempty"`
	ProcessingNotes      string          `json:"processing_notes,omitempty"`
	ProcessedAt          *time.Time      `json:"processed_at,omitempty"`
	GrantID              string          `json:"grant_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (r *PermissionRequest) guardPending() error {
	if r.Status != RequestPending {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, r.Status)
	}
	return nil
}

// Approve moves the request to its approved terminal state and links the
// activated grant. Privilege checks against the required approver role are
// the caller's responsibility.
func (r *PermissionRequest) Approve(approverID, notes, grantID string, now time.Time) error {
	if err := r.guardPending(); err != nil {
		return err
	}
	r.Status = RequestApproved
	r.ProcessedBy = approverID
	r.ProcessingNotes = notes
	r.ProcessedAt = &now
	r.GrantID = grantID
	r.UpdatedAt = now
	return nil
}

// Reject refuses the request. The reason is the primary audit signal when a
// decision is disputed, so an empty reason is refused.
func (r *PermissionRequest) Reject(approverID, reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	if err := r.guardPending(); err != nil {
		return err
	}
	r.Status = RequestRejected
	r.ProcessedBy = approverID
	r.ProcessingNotes = reason
	r.ProcessedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel withdraws a still-pending request.
func (r *PermissionRequest) Cancel(actorID string, now time.Time) error {
	if err := r.guardPending(); err != nil {
		return err
	}
	r.Status = RequestCancelled
	r.ProcessedBy = actorID
	r.ProcessedAt = &now
	r.UpdatedAt = now
	return nil
}

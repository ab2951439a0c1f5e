package domain

import "time"

// User is the engine's view of an authenticated principal. Identity is owned
// by the identity subsystem; only the opaque id and primary role matter here.
type User struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

type ResourceStatus string

const (
	ResourceActive   ResourceStatus = "active"
	ResourceInactive ResourceStatus = "inactive"
)

// Resource is an external analytics property access is granted on.
type Resource struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    ResourceStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentInactive  AssignmentStatus = "inactive"
	AssignmentSuspended AssignmentStatus = "suspended"
)

// ResourceAssignment establishes that a user may act on a resource. At most
// one assignment exists per (user, resource) pair; its status field carries
// the active/inactive/suspended state. A suspended assignment is an explicit
// deny override that beats role-tier defaults.
type ResourceAssignment struct {
	UserID     string           `json:"user_id"`
	ResourceID string           `json:"resource_id"`
	Status     AssignmentStatus `json:"status"`
	AssignedBy string           `json:"assigned_by"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type EventType string

const (
	EventRequestCreated  EventType = "request_created"
	EventRequestApproved EventType = "request_approved"
	EventRequestRejected EventType = "request_rejected"
	EventGrantExpiring   EventType = "grant_expiring"
	EventGrantRevoked    EventType = "grant_revoked"
)

// Event is the abstract lifecycle notification handed to the notification
// collaborator. The engine never formats messages or picks channels.
type Event struct {
	Type            EventType `json:"type"`
	ActorID         string    `json:"actor_id,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	GrantID         string    `json:"grant_id,omitempty"`
	ResourceID      string    `json:"resource_id,omitempty"`
	TargetPrincipal string    `json:"target_principal,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// AuditRecord is emitted on every state-changing operation. Persistence of
// audit history belongs to the audit collaborator.
type AuditRecord struct {
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	BeforeState string    `json:"before_state"`
	AfterState  string    `json:"after_state"`
	Timestamp   time.Time `json:"timestamp"`
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

type GrantStatus string

const (
	GrantActive  GrantStatus = "active"
	GrantExpired GrantStatus = "expired"
	GrantRevoked GrantStatus = "revoked"
)

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyNone     Urgency = "none"
)

// PermissionGrant is the active, time-bounded access record produced by an
// approved request. Expired and revoked are terminal; neither permits a
// further extension.
type PermissionGrant struct {
	ID                string          `json:"id"`
	RequestID         string          `json:"request_id,omitempty"`
	UserID            string          `json:"user_id"`
	ResourceID        string          `json:"resource_id"`
	TargetPrincipal   string          `json:"target_principal"`
	Level             PermissionLevel `json:"level"`
	Status            GrantStatus     `json:"status"`
	GrantedAt         time.Time       `json:"granted_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
	OriginalExpiresAt time.Time       `json:"original_expires_at"`
	ExtensionCount    int             `json:"extension_count"`
	RevokedAt         *time.Time      `json:"revoked_at,omitempty"`
	RevokedBy         string          `json:"revoked_by,omitempty"`
	RevokeReason      string          `json:"revoke_reason,omitempty"`
}

// Extend pushes the expiry out by additionalDays. Extensions are strictly
// additive and only valid while the grant is active.
func (g *PermissionGrant) Extend(additionalDays int) error {
	if g.Status != GrantActive {
		return fmt.Errorf("%w: grant is %s", ErrInvalidState, g.Status)
	}
	if additionalDays <= 0 {
		return fmt.Errorf("%w: %d days", ErrInvalidDuration, additionalDays)
	}
	g.ExpiresAt = g.ExpiresAt.AddDate(0, 0, additionalDays)
	g.ExtensionCount++
	return nil
}

// Revoke terminates the grant, recording who pulled it and why.
func (g *PermissionGrant) Revoke(actorID, reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	if g.Status != GrantActive {
		return fmt.Errorf("%w: grant is %s", ErrInvalidState, g.Status)
	}
	g.Status = GrantRevoked
	g.RevokedAt = &now
	g.RevokedBy = actorID
	g.RevokeReason = reason
	return nil
}

// MarkExpired transitions an active grant whose expiry has passed. Calling
// it on an already-expired grant is a no-op so sweeps can be re-run freely.
func (g *PermissionGrant) MarkExpired(now time.Time) error {
	switch g.Status {
	case GrantExpired:
		return nil
	case GrantRevoked:
		return fmt.Errorf("%w: grant is revoked", ErrInvalidState)
	}
	if g.ExpiresAt.After(now) {
		return fmt.Errorf("%w: grant has not expired yet", ErrInvalidState)
	}
	g.Status = GrantExpired
	return nil
}

// Urgency buckets an active grant by days until expiry. Reporting only;
// nothing in the lifecycle branches on it.
func (g PermissionGrant) Urgency(now time.Time) Urgency {
	if g.Status != GrantActive {
		return UrgencyNone
	}
	remaining := g.ExpiresAt.Sub(now)
	switch {
	case remaining < 24*time.Hour:
		return UrgencyCritical
	case remaining < 3*24*time.Hour:
		return UrgencyHigh
	case remaining < 7*24*time.Hour:
		return UrgencyMedium
	default:
		return UrgencyNone
	}
}

package ports

import (
	"context"

	"access-grants/internal/domain"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

// Notifier receives abstract lifecycle events. Message formatting and
// delivery channels belong to the notification collaborator.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}

// AuditSink receives one record per state-changing operation.
type AuditSink interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

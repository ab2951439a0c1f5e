// Package audit ships the default audit sink: one structured log line per
// state-changing operation. Durable audit storage belongs to a downstream
// collector consuming these records.
package audit

import (
	"context"

	"access-grants/internal/domain"
	"access-grants/internal/ports"
)

type LogSink struct {
	logger ports.Logger
}

func NewLogSink(logger ports.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, record domain.AuditRecord) error {
	s.logger.Info(ctx, "audit",
		"actor", record.Actor,
		"action", record.Action,
		"resource", record.Resource,
		"before_state", record.BeforeState,
		"after_state", record.AfterState,
		"timestamp", record.Timestamp,
	)
	return nil
}

package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/you/clientcore/domain"
)

// AuditLogger writes audit events as structured log lines
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger creates an audit logger on top of logger
func NewAuditLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "audit").Logger()}
}

// LogEvent implements domain.AuditLogger
func (a *AuditLogger) LogEvent(_ context.Context, event *domain.AuditEvent) {
	if event == nil {
		return
	}

	var e *zerolog.Event
	if event.Success {
		e = a.logger.Info()
	} else {
		e = a.logger.Warn().Str("error", event.ErrorMsg)
	}

	e = e.Str("event_type", string(event.EventType)).
		Time("event_time", event.Timestamp).
		Bool("success", event.Success)
	if event.Subject != "" {
		e = e.Str("subject", event.Subject)
	}
	if event.Email != "" {
		e = e.Str("email", event.Email)
	}
	if event.SessionID != "" {
		e = e.Str("sid", event.SessionID)
	}
	if len(event.Metadata) > 0 {
		e = e.Fields(event.Metadata)
	}
	e.Msg("audit")
}

// Compile-time interface compliance verification
var _ domain.AuditLogger = (*AuditLogger)(nil)

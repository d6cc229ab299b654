package sessionauth

import (
	"context"
	"io"
	"log/slog"

	"github.com/fundn3xus/sessionauth/internal/audit"
)

// AuditEvent is one audit record emitted by the Manager.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel.
type ChannelSink = audit.ChannelSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = audit.JSONWriterSink

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// SlogSink logs events through slog.
type SlogSink = audit.SlogSink

// NewSlogSink returns a sink logging through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}

const (
	AuditEventSessionIssued           = "session_issued"
	AuditEventIssueFailed             = "issue_failed"
	AuditEventAccessRefreshed         = "access_refreshed"
	AuditEventRefreshRejected         = "refresh_rejected"
	AuditEventSessionInvalidated      = "session_invalidated"
	AuditEventUserSessionsInvalidated = "user_sessions_invalidated"
	AuditEventSessionsSwept           = "sessions_swept"
)

// AuditErrorCode is the stable error label recorded on failed events.
type AuditErrorCode string

const (
	auditErrInvalidInput    AuditErrorCode = "invalid_input"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrExpired         AuditErrorCode = "token_expired"
	auditErrSessionNotFound AuditErrorCode = "session_not_found"
	auditErrWrongTokenType  AuditErrorCode = "wrong_token_type"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	userID    string
	sessionID string
	code      AuditErrorCode
	count     int
	metadata  map[string]string
}

func (m *Manager) emitAudit(ctx context.Context, rec auditRecord) {
	if m == nil || m.audit == nil {
		return
	}

	m.audit.Emit(ctx, AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: rec.eventType,
		UserID:    rec.userID,
		SessionID: rec.sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   rec.success,
		Error:     string(rec.code),
		Count:     rec.count,
		Metadata:  rec.metadata,
	})
}

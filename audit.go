package taskAuth

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/taskAuth/internal/audit"
)

// AuditEvent is one security-relevant engine event.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events on a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink logs audit events through a slog.Logger.
type SlogSink = audit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink returns a sink that logs to logger, or slog.Default when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }

// Audit event types emitted by the Engine.
const (
	AuditEventLoginSuccess         = "login_success"
	AuditEventLoginFailure         = "login_failure"
	AuditEventRefreshSuccess       = "refresh_success"
	AuditEventRefreshFailure       = "refresh_failure"
	AuditEventRateLimitTriggered   = "rate_limit_triggered"
	AuditEventUserAccessRejected   = "user_access_rejected"
	AuditEventTaskAccessRejected   = "task_access_rejected"
	AuditEventOwnershipLookupError = "ownership_lookup_error"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrMalformed         AuditErrorCode = "malformed"
	auditErrSignatureInvalid  AuditErrorCode = "signature_invalid"
	auditErrTokenExpired      AuditErrorCode = "token_expired"
	auditErrAccessDenied      AuditErrorCode = "access_denied"
	auditErrPrincipalNotFound AuditErrorCode = "principal_not_found"
	auditErrAuthFailed        AuditErrorCode = "auth_failed"
	auditErrRejected          AuditErrorCode = "rejected"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID int64,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		Username:    username,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, username string, principalID int64) {
	e.emitAudit(ctx, AuditEventRateLimitTriggered, false, principalID, username, nil, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrSignatureInvalid):
		return auditErrSignatureInvalid
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrAccessDenied):
		return auditErrAccessDenied
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	case errors.Is(err, ErrAuthFailed):
		return auditErrAuthFailed
	case errors.Is(err, ErrRejected):
		return auditErrRejected
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	default:
		return auditErrInternal
	}
}

package authflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshFailed      = "refresh_failed"
	auditEventUnauthenticated    = "unauthenticated"
	auditEventSessionInvalidated = "session_invalidated"
	auditEventCredentialRejected = "credential_rejected"
	auditEventRetryAfterRefresh  = "retry_after_refresh"
	auditEventRetryExhausted     = "retry_exhausted"
	auditEventProactiveRefresh   = "proactive_refresh"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	endpoint string,
	err error,
	metadata func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventID:   uuid.NewString(),
		EventType: eventType,
		Endpoint:  endpoint,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	c.audit.Emit(ctx, event)
}

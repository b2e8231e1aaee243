package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent records one security-relevant action for the caller's audit
// trail.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Origin    string            `json:"origin,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the engine's dispatcher. Emit must
// not block indefinitely; slow sinks cause events to be dropped when the
// dispatcher buffer fills.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events on a channel for the caller to drain.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON line per event.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

const (
	auditEventRegisterSuccess     = "register_success"
	auditEventRegisterDuplicate   = "register_duplicate"
	auditEventRegisterFailure     = "register_failure"
	auditEventVerifySuccess       = "email_verify_success"
	auditEventVerifyFailure       = "email_verify_failure"
	auditEventVerifyResend        = "email_verify_resend"
	auditEventVerifyRateLimited   = "email_verify_rate_limited"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginLocked         = "login_locked"
	auditEventLockoutTripped      = "lockout_tripped"
	auditEventResetRequest        = "password_reset_request"
	auditEventResetRateLimited    = "password_reset_rate_limited"
	auditEventResetSuccess        = "password_reset_success"
	auditEventResetFailure        = "password_reset_failure"
	auditEventSessionRefresh      = "session_refresh"
	auditEventSessionRefreshDeny  = "session_refresh_denied"
	auditEventTokensPurged        = "tokens_purged"
	auditEventNotificationFailure = "notification_failure"
)

package authcore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/efarm-app/authcore/internal/limiters"
	"github.com/efarm-app/authcore/internal/stores"
	"github.com/efarm-app/authcore/password"
	"github.com/efarm-app/authcore/token"
)

// Engine is the credential lifecycle engine. Construct it with [New] and
// the Builder; the zero value is not usable.
//
// Engine instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise. All methods
// are safe for concurrent use.
type Engine struct {
	config   Config
	accounts AccountStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	tokens *token.Manager
	hasher *password.Hasher

	verification        *stores.VerificationStore
	reset               *stores.ResetStore
	verificationLimiter *limiters.VerificationLimiter
	resetLimiter        *limiters.ResetLimiter
	lockouts            *lockoutTracker
	audit               *auditDispatcher
}

// Close releases background resources. It drains the audit dispatcher;
// a standalone [Sweeper] is stopped separately.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// notify delivers msg on a bounded clock, detached from the caller's
// cancellation so that an aborted request cannot strand a committed
// state change without its notification. Failures are logged and
// audited, never returned.
func (e *Engine) notify(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Notify.Timeout)
	defer cancel()

	if err := e.notifier.Send(sendCtx, msg); err != nil {
		e.logger.Warn("notification send failed",
			zap.String("kind", msg.Kind.String()),
			zap.String("recipient", msg.Recipient),
			zap.Error(err),
		)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventNotificationFailure,
			Email:     msg.Recipient,
			Error:     err.Error(),
			Metadata:  map[string]string{"kind": msg.Kind.String()},
		})
	}
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	event.Success = event.Error == ""
	e.audit.Emit(ctx, event)
}

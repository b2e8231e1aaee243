package authcore

import (
	"context"

	"go.uber.org/zap"
)

// NoopNotifier silently accepts every message. Useful in tests and in
// deployments where delivery is handled out of band.
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Message) error { return nil }

// LogNotifier writes each outbound message to a structured log instead of
// delivering it. It stands in for a mail transport during development,
// where operators read codes out of the log stream.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("kind", msg.Kind.String()),
		zap.String("recipient", msg.Recipient),
	}
	if msg.Code != "" {
		fields = append(fields,
			zap.String("code", msg.Code),
			zap.Duration("expires_in", msg.ExpiresIn),
		)
	}
	n.logger.Info("outbound notification", fields...)
	return nil
}

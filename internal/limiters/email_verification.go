package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrVerificationRateLimited = errors.New("verification rate limited")

// VerificationCounter reports how many verification codes were issued to
// an email at or after since.
type VerificationCounter interface {
	CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error)
}

type VerificationConfig struct {
	MaxPerWindow int
	Window       time.Duration
}

// VerificationLimiter caps how many verification codes one email can
// request inside a sliding window.
type VerificationLimiter struct {
	counter VerificationCounter
	config  VerificationConfig
	now     func() time.Time
}

func NewVerificationLimiter(counter VerificationCounter, cfg VerificationConfig, now func() time.Time) *VerificationLimiter {
	if now == nil {
		now = time.Now
	}
	return &VerificationLimiter{
		counter: counter,
		config:  cfg,
		now:     now,
	}
}

// Enforce returns ErrVerificationRateLimited once the email has already
// received its windowed quota of codes. A zero or negative MaxPerWindow
// disables the limit.
func (l *VerificationLimiter) Enforce(ctx context.Context, email string) error {
	if l.config.MaxPerWindow <= 0 {
		return nil
	}

	since := l.now().Add(-l.config.Window)
	count, err := l.counter.CountIssuedSince(ctx, email, since)
	if err != nil {
		return fmt.Errorf("count verification issuances: %w", err)
	}

	if count >= l.config.MaxPerWindow {
		return ErrVerificationRateLimited
	}
	return nil
}

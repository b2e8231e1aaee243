package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrResetRateLimited = errors.New("password reset rate limited")

// ResetCounter reports prior reset code issuances by email and by the
// requesting origin address.
type ResetCounter interface {
	CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error)
	CountIssuedByOriginSince(ctx context.Context, origin string, since time.Time) (int, error)
}

type ResetConfig struct {
	MaxPerEmail  int
	MaxPerOrigin int
	Window       time.Duration
}

// ResetLimiter caps reset code requests on two independent dimensions:
// per target email and per requesting address. Either cap alone blocks
// the request.
type ResetLimiter struct {
	counter ResetCounter
	config  ResetConfig
	now     func() time.Time
}

func NewResetLimiter(counter ResetCounter, cfg ResetConfig, now func() time.Time) *ResetLimiter {
	if now == nil {
		now = time.Now
	}
	return &ResetLimiter{
		counter: counter,
		config:  cfg,
		now:     now,
	}
}

// Enforce returns ErrResetRateLimited when either the email or the
// origin has exhausted its windowed quota. An empty origin skips the
// origin check; a zero or negative cap disables that dimension.
func (l *ResetLimiter) Enforce(ctx context.Context, email, origin string) error {
	since := l.now().Add(-l.config.Window)

	if l.config.MaxPerEmail > 0 {
		count, err := l.counter.CountIssuedSince(ctx, email, since)
		if err != nil {
			return fmt.Errorf("count reset issuances by email: %w", err)
		}
		if count >= l.config.MaxPerEmail {
			return ErrResetRateLimited
		}
	}

	if l.config.MaxPerOrigin > 0 && origin != "" {
		count, err := l.counter.CountIssuedByOriginSince(ctx, origin, since)
		if err != nil {
			return fmt.Errorf("count reset issuances by origin: %w", err)
		}
		if count >= l.config.MaxPerOrigin {
			return ErrResetRateLimited
		}
	}

	return nil
}

package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efarm-app/authcore/internal/codes"
)

// ResetStore manages one-time password reset codes in Redis. Issuance is
// recorded under both the email and the requesting origin address so that
// limits can be enforced on either dimension.
type ResetStore struct {
	rdb    redis.UniversalClient
	prefix string
	digits int
	ttl    time.Duration
	window time.Duration
	now    func() time.Time
}

// ResetConfig carries the tunables for a ResetStore.
type ResetConfig struct {
	Prefix string
	Digits int
	TTL    time.Duration
	Window time.Duration
	Now    func() time.Time
}

// NewResetStore builds a store over an existing Redis client.
func NewResetStore(rdb redis.UniversalClient, cfg ResetConfig) *ResetStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ResetStore{
		rdb:    rdb,
		prefix: cfg.Prefix,
		digits: cfg.Digits,
		ttl:    cfg.TTL,
		window: cfg.Window,
		now:    now,
	}
}

func (s *ResetStore) recordKey(email string) string { return s.prefix + ":rt:" + email }
func (s *ResetStore) indexKey() string              { return s.prefix + ":rtx" }
func (s *ResetStore) emailHistoryKey(email string) string {
	return s.prefix + ":rth:e:" + email
}
func (s *ResetStore) originHistoryKey(origin string) string {
	return s.prefix + ":rth:a:" + origin
}

// Issue mints a fresh reset code for email, invalidating any code issued
// before it. origin identifies the requester (an address) and may be
// empty, in which case only the email history is recorded.
func (s *ResetStore) Issue(ctx context.Context, email, origin string) (string, error) {
	code, err := codes.Numeric(s.digits)
	if err != nil {
		return "", fmt.Errorf("mint reset code: %w", err)
	}

	now := s.now()
	rec := Record{
		Code:      code,
		Email:     email,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
		Origin:    origin,
	}

	args, err := issueArgs(rec, s.window)
	if err != nil {
		return "", fmt.Errorf("encode reset record: %w", err)
	}

	keys := []string{s.recordKey(email), s.indexKey(), s.emailHistoryKey(email)}
	if origin != "" {
		keys = append(keys, s.originHistoryKey(origin))
	}
	if err := issueLua.Run(ctx, s.rdb, keys, args...).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code, nil
}

// Redeem consumes the code for email if it matches, is unused, and is
// unexpired. A mismatched code bumps the attempt counter on the stored
// record before reporting failure.
func (s *ResetStore) Redeem(ctx context.Context, email, code string) (bool, error) {
	return runRedeem(ctx, s.rdb, s.recordKey(email), code, s.now(), true)
}

// CountIssuedSince reports how many reset codes were issued to email at
// or after since.
func (s *ResetStore) CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error) {
	return countHistorySince(ctx, s.rdb, s.emailHistoryKey(email), since)
}

// CountIssuedByOriginSince reports how many reset codes were requested
// from origin at or after since, across all emails.
func (s *ResetStore) CountIssuedByOriginSince(ctx context.Context, origin string, since time.Time) (int, error) {
	return countHistorySince(ctx, s.rdb, s.originHistoryKey(origin), since)
}

// PurgeExpired removes every expired reset record and returns the number
// removed.
func (s *ResetStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return runPurge(ctx, s.rdb, s.indexKey(), s.prefix+":rt:", now)
}

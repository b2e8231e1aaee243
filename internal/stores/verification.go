package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efarm-app/authcore/internal/codes"
)

// VerificationStore manages one-time email verification codes in Redis.
// One valid code per email; issuing replaces any prior code.
type VerificationStore struct {
	rdb    redis.UniversalClient
	prefix string
	digits int
	ttl    time.Duration
	window time.Duration
	now    func() time.Time
}

// VerificationConfig carries the tunables for a VerificationStore.
type VerificationConfig struct {
	Prefix string
	Digits int
	TTL    time.Duration
	Window time.Duration
	Now    func() time.Time
}

// NewVerificationStore builds a store over an existing Redis client.
func NewVerificationStore(rdb redis.UniversalClient, cfg VerificationConfig) *VerificationStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &VerificationStore{
		rdb:    rdb,
		prefix: cfg.Prefix,
		digits: cfg.Digits,
		ttl:    cfg.TTL,
		window: cfg.Window,
		now:    now,
	}
}

func (s *VerificationStore) recordKey(email string) string { return s.prefix + ":vt:" + email }
func (s *VerificationStore) indexKey() string              { return s.prefix + ":vtx" }
func (s *VerificationStore) historyKey(email string) string {
	return s.prefix + ":vth:" + email
}

// Issue mints a fresh verification code for email, invalidating any code
// issued before it, and returns the code for delivery.
func (s *VerificationStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := codes.Numeric(s.digits)
	if err != nil {
		return "", fmt.Errorf("mint verification code: %w", err)
	}

	now := s.now()
	rec := Record{
		Code:      code,
		Email:     email,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	args, err := issueArgs(rec, s.window)
	if err != nil {
		return "", fmt.Errorf("encode verification record: %w", err)
	}

	keys := []string{s.recordKey(email), s.indexKey(), s.historyKey(email)}
	if err := issueLua.Run(ctx, s.rdb, keys, args...).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code, nil
}

// Redeem consumes the code for email if it matches, is unused, and is
// unexpired. It returns false for any invalid code without revealing why.
func (s *VerificationStore) Redeem(ctx context.Context, email, code string) (bool, error) {
	return runRedeem(ctx, s.rdb, s.recordKey(email), code, s.now(), false)
}

// CountIssuedSince reports how many codes were issued to email at or
// after since.
func (s *VerificationStore) CountIssuedSince(ctx context.Context, email string, since time.Time) (int, error) {
	return countHistorySince(ctx, s.rdb, s.historyKey(email), since)
}

// PurgeExpired removes every expired verification record and returns the
// number removed.
func (s *VerificationStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return runPurge(ctx, s.rdb, s.indexKey(), s.prefix+":vt:", now)
}

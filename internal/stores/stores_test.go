package stores

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRecordValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		Code:      "1234",
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(15 * time.Minute).Unix(),
	}

	if !rec.Valid(now) {
		t.Fatal("fresh record must be valid")
	}
	if rec.Valid(now.Add(15 * time.Minute)) {
		t.Fatal("record at expiry instant must be invalid")
	}

	rec.IsUsed = true
	if rec.Valid(now) {
		t.Fatal("used record must be invalid")
	}
}

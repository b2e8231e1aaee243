package authcore

import (
	"context"
	"testing"
	"time"
)

func TestSweeperRemovesExpiredCodes(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	env.register(t, "stale@example.com", "secret123")
	env.registerVerified(t, "resetme@example.com", "secret123")
	if err := env.engine.ForgotPassword(ctx, "resetme@example.com", ""); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	sweeper := env.engine.NewSweeper()

	// Nothing is expired yet.
	removed, err := sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed %d records before expiry", removed)
	}
	if !env.redis.Exists("ac:vt:stale@example.com") {
		t.Fatal("verification record missing before expiry")
	}

	// Past both TTLs everything goes: both verification records, used
	// or not, and the reset record.
	env.clock.Advance(31 * time.Minute)
	removed, err = sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed %d records, want 3", removed)
	}
	if env.redis.Exists("ac:vt:stale@example.com") {
		t.Fatal("expired verification record not purged")
	}
	if env.redis.Exists("ac:rt:resetme@example.com") {
		t.Fatal("expired reset record not purged")
	}

	// A second pass finds nothing; the purge is idempotent.
	removed, err = sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second pass removed %d records", removed)
	}
}

func TestSweeperRemovesUsedRecordsOnceExpired(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	// A redeemed code stays on disk until its expiry passes, then the
	// sweeper takes it.
	env.registerVerified(t, "used@example.com", "secret123")
	if !env.redis.Exists("ac:vt:used@example.com") {
		t.Fatal("used record should persist until expiry")
	}

	env.clock.Advance(16 * time.Minute)
	removed, err := env.engine.NewSweeper().RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d records, want 1", removed)
	}
}

func TestSweeperStartStop(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.Sweeper.Interval = 10 * time.Millisecond
	})

	sweeper := env.engine.NewSweeper()
	sweeper.Start()
	time.Sleep(50 * time.Millisecond)
	sweeper.Stop()

	// Stop is safe to call again.
	sweeper.Stop()
}

func TestSweeperSurvivesBackendFailure(t *testing.T) {
	env := newTestEngine(t, nil)

	env.redis.Close()

	removed, err := env.engine.NewSweeper().RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error with the backend down")
	}
	if removed != 0 {
		t.Fatalf("removed %d records with the backend down", removed)
	}
}

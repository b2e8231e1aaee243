package authcore

import (
	"testing"
	"time"
)

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Secret = testSecret

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.Session.Secret = nil }},
		{"short secret", func(c *Config) { c.Session.Secret = []byte("short") }},
		{"zero access TTL", func(c *Config) { c.Session.AccessTTL = 0 }},
		{"zero refresh multiplier", func(c *Config) { c.Session.RefreshMultiplier = 0 }},
		{"narrow verification code", func(c *Config) { c.Verification.CodeDigits = 3 }},
		{"zero verification TTL", func(c *Config) { c.Verification.TTL = 0 }},
		{"zero resend budget", func(c *Config) { c.Verification.ResendMax = 0 }},
		{"wide reset code", func(c *Config) { c.Reset.CodeDigits = 11 }},
		{"zero reset window", func(c *Config) { c.Reset.Window = 0 }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"negative lockout duration", func(c *Config) { c.Lockout.Duration = -time.Minute }},
		{"zero sweep interval", func(c *Config) { c.Sweeper.Interval = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Session.Secret = testSecret
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithSecret(testSecret).WithAccountStore(newMockAccountStore()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithSecret(testSecret).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without account store")
	}
	if _, err := New().WithRedis(rdb).WithAccountStore(newMockAccountStore()).Build(); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)

	b := New().WithSecret(testSecret).WithRedis(rdb).WithAccountStore(newMockAccountStore())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

package authcore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigFromEnv builds a Config from AUTHCORE_* environment variables
// layered over [DefaultConfig]. A .env file in the working directory is
// loaded first when present; real environment variables win over it.
//
// Recognized variables:
//
//	AUTHCORE_SECRET                 signing key, required, >= 32 bytes
//	AUTHCORE_ISSUER                 token issuer
//	AUTHCORE_ACCESS_TTL             e.g. "24h"
//	AUTHCORE_REFRESH_MULTIPLIER     integer
//	AUTHCORE_VERIFICATION_TTL       e.g. "15m"
//	AUTHCORE_VERIFICATION_RESEND_MAX integer per window
//	AUTHCORE_RESET_TTL              e.g. "30m"
//	AUTHCORE_RESET_MAX_PER_EMAIL    integer per window
//	AUTHCORE_RESET_MAX_PER_ORIGIN   integer per window
//	AUTHCORE_LOCKOUT_THRESHOLD      integer
//	AUTHCORE_LOCKOUT_DURATION       e.g. "30m"
//	AUTHCORE_DEFAULT_ROLES          comma separated
//	AUTHCORE_SWEEP_INTERVAL         e.g. "30m"
//	AUTHCORE_REDIS_PREFIX           key namespace
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	secret := os.Getenv("AUTHCORE_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("AUTHCORE_SECRET is required")
	}
	cfg.Session.Secret = []byte(secret)

	if v := os.Getenv("AUTHCORE_ISSUER"); v != "" {
		cfg.Session.Issuer = v
	}
	if v := os.Getenv("AUTHCORE_REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}
	if v := os.Getenv("AUTHCORE_DEFAULT_ROLES"); v != "" {
		roles := strings.Split(v, ",")
		for i := range roles {
			roles[i] = strings.TrimSpace(roles[i])
		}
		cfg.Account.DefaultRoles = roles
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"AUTHCORE_ACCESS_TTL", &cfg.Session.AccessTTL},
		{"AUTHCORE_VERIFICATION_TTL", &cfg.Verification.TTL},
		{"AUTHCORE_RESET_TTL", &cfg.Reset.TTL},
		{"AUTHCORE_LOCKOUT_DURATION", &cfg.Lockout.Duration},
		{"AUTHCORE_SWEEP_INTERVAL", &cfg.Sweeper.Interval},
	}
	for _, d := range durations {
		v := os.Getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	integers := []struct {
		name string
		dst  *int
	}{
		{"AUTHCORE_REFRESH_MULTIPLIER", &cfg.Session.RefreshMultiplier},
		{"AUTHCORE_VERIFICATION_RESEND_MAX", &cfg.Verification.ResendMax},
		{"AUTHCORE_RESET_MAX_PER_EMAIL", &cfg.Reset.MaxPerEmail},
		{"AUTHCORE_RESET_MAX_PER_ORIGIN", &cfg.Reset.MaxPerOrigin},
		{"AUTHCORE_LOCKOUT_THRESHOLD", &cfg.Lockout.Threshold},
	}
	for _, n := range integers {
		v := os.Getenv(n.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", n.name, err)
		}
		*n.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

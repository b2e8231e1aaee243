package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are constructed once at process start and treated as
// immutable afterwards; business logic never reads ambient state.
type Config struct {
	Session      SessionConfig
	Verification VerificationConfig
	Reset        ResetConfig
	Lockout      LockoutConfig
	Password     PasswordConfig
	Account      AccountConfig
	Notify       NotifyConfig
	Sweeper      SweeperConfig
	Redis        RedisConfig
	Audit        AuditConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls signed session tokens.
type SessionConfig struct {
	// Secret is the HMAC signing key. Required, at least 32 bytes.
	Secret []byte
	// AccessTTL is the session token lifetime. Default 24h.
	AccessTTL time.Duration
	// RefreshMultiplier scales AccessTTL for the refresh artifact.
	// Default 7.
	RefreshMultiplier int
	Issuer            string
	// Leeway tolerated when checking exp/iat, for clock skew.
	Leeway time.Duration
}

/*
====================================
ONE-TIME CODE CONFIG
====================================
*/

// VerificationConfig controls email verification codes.
type VerificationConfig struct {
	// CodeDigits is the width of the numeric code. Default 4.
	CodeDigits int
	// TTL is the code lifetime. Default 15m.
	TTL time.Duration
	// ResendWindow and ResendMax bound issuance per email.
	// Defaults: 5 per rolling hour.
	ResendWindow time.Duration
	ResendMax    int
}

// ResetConfig controls password reset codes. Reset issuance is limited on
// two dimensions, requester email and origin address, and both must pass.
type ResetConfig struct {
	// CodeDigits is the width of the numeric code. Default 6.
	CodeDigits int
	// TTL is the code lifetime. Default 30m.
	TTL time.Duration
	// Window bounds both issuance counters. Default 1h.
	Window time.Duration
	// MaxPerEmail default 3, MaxPerOrigin default 10.
	MaxPerEmail  int
	MaxPerOrigin int
}

// LockoutConfig controls the failed-login lockout state machine.
type LockoutConfig struct {
	// Threshold is the failure count that trips a lock. Default 5.
	Threshold int
	// Duration is how long a tripped lock holds. Default 30m.
	Duration time.Duration
}

// PasswordConfig carries argon2id parameters plus the policy minimum.
type PasswordConfig struct {
	MinLength   int
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AccountConfig controls account creation defaults.
type AccountConfig struct {
	// DefaultRoles is the role snapshot assigned at registration.
	DefaultRoles []string
}

// NotifyConfig bounds outbound notification calls.
type NotifyConfig struct {
	// Timeout caps every Notifier.Send call. Default 10s.
	Timeout time.Duration
	AppName string
	BaseURL string
}

// SweeperConfig controls the expired-token sweeper.
type SweeperConfig struct {
	// Interval between purge passes. Default 30m.
	Interval time.Duration
}

// RedisConfig controls the key layout of the token stores.
type RedisConfig struct {
	// Prefix namespaces every key. Default "ac".
	Prefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the production defaults. The signing secret is the
// one field without a usable default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			AccessTTL:         24 * time.Hour,
			RefreshMultiplier: 7,
			Issuer:            "efarm",
			Leeway:            30 * time.Second,
		},
		Verification: VerificationConfig{
			CodeDigits:   4,
			TTL:          15 * time.Minute,
			ResendWindow: time.Hour,
			ResendMax:    5,
		},
		Reset: ResetConfig{
			CodeDigits:   6,
			TTL:          30 * time.Minute,
			Window:       time.Hour,
			MaxPerEmail:  3,
			MaxPerOrigin: 10,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Password: PasswordConfig{
			MinLength:   6,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Account: AccountConfig{
			DefaultRoles: []string{"caretaker"},
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
			AppName: "eFarm",
		},
		Sweeper: SweeperConfig{
			Interval: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Prefix: "ac",
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Session.Secret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.Session.AccessTTL <= 0 {
		return errors.New("session access TTL must be positive")
	}
	if c.Session.RefreshMultiplier < 1 {
		return errors.New("session refresh multiplier must be at least 1")
	}
	if c.Verification.CodeDigits < 4 || c.Verification.CodeDigits > 10 {
		return errors.New("verification code digits must be between 4 and 10")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if c.Verification.ResendMax < 1 || c.Verification.ResendWindow <= 0 {
		return errors.New("verification resend budget must be positive")
	}
	if c.Reset.CodeDigits < 4 || c.Reset.CodeDigits > 10 {
		return errors.New("reset code digits must be between 4 and 10")
	}
	if c.Reset.TTL <= 0 {
		return errors.New("reset TTL must be positive")
	}
	if c.Reset.MaxPerEmail < 1 || c.Reset.MaxPerOrigin < 1 || c.Reset.Window <= 0 {
		return errors.New("reset issuance budget must be positive")
	}
	if c.Lockout.Threshold < 1 {
		return errors.New("lockout threshold must be at least 1")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.Password.MinLength < 1 {
		return errors.New("password minimum length must be at least 1")
	}
	if c.Sweeper.Interval <= 0 {
		return errors.New("sweeper interval must be positive")
	}
	return nil
}

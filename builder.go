package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/efarm-app/authcore/internal/limiters"
	"github.com/efarm-app/authcore/internal/stores"
	"github.com/efarm-app/authcore/password"
	"github.com/efarm-app/authcore/token"
)

// Builder assembles an Engine. Configure it with the With methods and
// call Build once; a Builder is not reusable.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts  AccountStore
	notifier  Notifier
	auditSink AuditSink
	logger    *zap.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithSecret sets the session signing key without replacing the rest of
// the configuration.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.Session.Secret = secret
	return b
}

// WithRedis sets the Redis client backing the one-time code stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the caller's account persistence.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithNotifier sets the outbound message transport. Defaults to a
// [LogNotifier] over the configured logger.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event receiver. Audit emission also
// requires Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the engine's time source. Tests use this to walk
// codes and lockouts across their expiry boundaries.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration, wires the internal stores and
// limiters, and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config

	now := b.clock
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	tokens, err := token.NewManager(token.Config{
		Secret:            cfg.Session.Secret,
		AccessTTL:         cfg.Session.AccessTTL,
		RefreshMultiplier: cfg.Session.RefreshMultiplier,
		Issuer:            cfg.Session.Issuer,
		Leeway:            cfg.Session.Leeway,
		Now:               now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	verification := stores.NewVerificationStore(b.redis, stores.VerificationConfig{
		Prefix: cfg.Redis.Prefix,
		Digits: cfg.Verification.CodeDigits,
		TTL:    cfg.Verification.TTL,
		Window: cfg.Verification.ResendWindow,
		Now:    now,
	})
	reset := stores.NewResetStore(b.redis, stores.ResetConfig{
		Prefix: cfg.Redis.Prefix,
		Digits: cfg.Reset.CodeDigits,
		TTL:    cfg.Reset.TTL,
		Window: cfg.Reset.Window,
		Now:    now,
	})

	engine := &Engine{
		config:       cfg,
		accounts:     b.accounts,
		notifier:     notifier,
		logger:       logger,
		now:          now,
		tokens:       tokens,
		hasher:       hasher,
		verification: verification,
		reset:        reset,
		verificationLimiter: limiters.NewVerificationLimiter(verification, limiters.VerificationConfig{
			MaxPerWindow: cfg.Verification.ResendMax,
			Window:       cfg.Verification.ResendWindow,
		}, now),
		resetLimiter: limiters.NewResetLimiter(reset, limiters.ResetConfig{
			MaxPerEmail:  cfg.Reset.MaxPerEmail,
			MaxPerOrigin: cfg.Reset.MaxPerOrigin,
			Window:       cfg.Reset.Window,
		}, now),
		lockouts: &lockoutTracker{
			accounts: b.accounts,
			config:   cfg.Lockout,
			now:      now,
		},
		audit: newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	b.built = true
	return engine, nil
}

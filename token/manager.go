// Package token signs and verifies the self-contained session credentials
// issued by the engine. Tokens are HS256 JWTs: tamper-evident, not
// encrypted — claims carry no secrets. Verification is deterministic and
// stateless; callers needing account freshness re-fetch the account
// separately.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// KindAccess marks a session token.
	KindAccess = "access"
	// KindRefresh marks the longer-lived refresh artifact.
	KindRefresh = "refresh"
)

var (
	// ErrExpired is returned once now >= expires_at.
	ErrExpired = errors.New("token expired")
	// ErrSignatureInvalid is returned when the signature does not verify
	// under the configured secret.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrMalformed is returned for tokens that do not parse at all or
	// carry the wrong shape of claims.
	ErrMalformed = errors.New("token malformed")
)

// Config defines the signing discipline for one Manager.
type Config struct {
	// Secret is the shared HMAC key. At least 32 bytes.
	Secret []byte
	// AccessTTL is the session token lifetime.
	AccessTTL time.Duration
	// RefreshMultiplier scales AccessTTL for refresh tokens.
	RefreshMultiplier int
	Issuer            string
	// Leeway tolerated on exp/iat checks.
	Leeway time.Duration
	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// Claims is the signed payload of a session or refresh token.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Kind  string   `json:"kind"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the config and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be positive")
	}
	if cfg.RefreshMultiplier < 1 {
		cfg.RefreshMultiplier = 1
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("leeway out of range")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL reports the configured session lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// SignAccess issues a session token for the subject.
func (m *Manager) SignAccess(subject, email string, roles []string) (string, error) {
	return m.sign(subject, email, roles, KindAccess, m.config.AccessTTL)
}

// SignRefresh issues the refresh artifact, RefreshMultiplier times longer
// lived than a session token, under the same signing discipline.
func (m *Manager) SignRefresh(subject, email string, roles []string) (string, error) {
	ttl := m.config.AccessTTL * time.Duration(m.config.RefreshMultiplier)
	return m.sign(subject, email, roles, KindRefresh, ttl)
}

func (m *Manager) sign(subject, email string, roles []string, kind string, ttl time.Duration) (string, error) {
	now := m.config.Now()
	claims := Claims{
		Email: email,
		Roles: roles,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies signature and expiry and returns the claims. Failures map
// onto [ErrExpired], [ErrSignatureInvalid], and [ErrMalformed].
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrMalformed
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

package authcore

import (
	"context"
	"errors"

	"github.com/efarm-app/authcore/token"
)

// ValidateSession verifies a session token and returns its decoded
// claims. Validation is stateless: it proves the token was issued by this
// engine and has not expired, but does not observe account changes made
// after issuance. Callers gating sensitive operations should re-fetch the
// account through their own store.
func (e *Engine) ValidateSession(tokenStr string) (Session, error) {
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return Session{}, err
	}
	if claims.Kind != token.KindAccess {
		return Session{}, ErrTokenMalformed
	}

	return Session{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RefreshSession exchanges a valid refresh token for a fresh token pair.
// Unlike [Engine.ValidateSession] this path re-fetches the account, so a
// deactivation or lockout applied since issuance does block the refresh.
func (e *Engine) RefreshSession(ctx context.Context, refreshToken string) (LoginResult, error) {
	claims, err := e.tokens.Parse(refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	if claims.Kind != token.KindRefresh {
		return LoginResult{}, ErrTokenMalformed
	}

	account, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSessionRefreshDeny,
			AccountID: claims.Subject,
			Error:     err.Error(),
		})
		if errors.Is(err, ErrAccountNotFound) {
			return LoginResult{}, ErrAccountNotFound
		}
		return LoginResult{}, storageErr(err)
	}

	if !account.Active || !account.EmailVerified {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSessionRefreshDeny,
			AccountID: account.ID,
			Email:     account.Email,
			Error:     ErrAccountDisabled.Error(),
		})
		return LoginResult{}, ErrAccountDisabled
	}
	if until := e.lockouts.activeLock(account); !until.IsZero() {
		return LoginResult{}, &LockedError{Until: until}
	}

	access, err := e.tokens.SignAccess(account.ID, account.Email, account.Roles)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := e.tokens.SignRefresh(account.ID, account.Email, account.Roles)
	if err != nil {
		return LoginResult{}, err
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSessionRefresh,
		AccountID: account.ID,
		Email:     account.Email,
	})

	return LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Profile: Profile{
			ID:        account.ID,
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
			Roles:     append([]string(nil), account.Roles...),
		},
	}, nil
}

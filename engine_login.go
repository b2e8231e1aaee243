package authcore

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Login authenticates email and password and returns signed session
// tokens. Unknown emails and wrong passwords are indistinguishable to the
// caller. Repeated failures trip a temporary lockout.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (LoginResult, error) {
	email = normalizeEmail(email)
	if !validEmail(email) || plaintext == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, storageErr(err)
	}

	if !account.Active && account.EmailVerified {
		return LoginResult{}, ErrAccountDisabled
	}
	if !account.EmailVerified {
		return LoginResult{}, ErrAccountNotVerified
	}

	if until := e.lockouts.activeLock(account); !until.IsZero() {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventLoginLocked,
			AccountID: account.ID,
			Email:     email,
			Error:     ErrAccountLocked.Error(),
		})
		return LoginResult{}, &LockedError{Until: until}
	}

	match, verr := e.hasher.Verify(plaintext, account.PasswordHash)
	if verr != nil || !match {
		// A malformed stored hash counts as a failed attempt too;
		// lockout bookkeeping must not be bypassable by bad data.
		remaining, lockedUntil, lerr := e.lockouts.recordFailure(ctx, account.ID)
		if lerr != nil {
			return LoginResult{}, lerr
		}
		if verr != nil {
			e.logger.Error("password hash verification failed",
				zap.String("account_id", account.ID),
				zap.Error(verr),
			)
		}

		if !lockedUntil.IsZero() {
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventLockoutTripped,
				AccountID: account.ID,
				Email:     email,
				Error:     ErrAccountLocked.Error(),
			})
			return LoginResult{}, &LockedError{Until: lockedUntil}
		}

		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventLoginFailure,
			AccountID: account.ID,
			Email:     email,
			Error:     ErrInvalidCredentials.Error(),
		})
		return LoginResult{}, &CredentialsError{Remaining: remaining}
	}

	if err := e.lockouts.reset(ctx, account.ID); err != nil {
		return LoginResult{}, err
	}
	if err := e.accounts.RecordLogin(ctx, account.ID, e.now()); err != nil {
		return LoginResult{}, storageErr(err)
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
		EventType: auditEventLoginSuccess,
		AccountID: account.ID,
		Email:     email,
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

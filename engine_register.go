package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/efarm-app/authcore/internal/limiters"
)

// Register creates a new account in the pending-verification state and
// emails its first verification code. The account cannot log in until
// [Engine.VerifyEmail] succeeds.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if verr := e.validateRegister(req); verr != nil {
		return RegisterResult{}, verr
	}

	email := normalizeEmail(req.Email)

	// Enforced before any write so a rejected registration leaves no
	// account and no code behind.
	if err := e.verificationLimiter.Enforce(ctx, email); err != nil {
		if errors.Is(err, limiters.ErrVerificationRateLimited) {
			return RegisterResult{}, ErrRateLimited
		}
		return RegisterResult{}, storageErr(err)
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Roles:        append([]string(nil), e.config.Account.DefaultRoles...),
		CreatedAt:    e.now(),
	}

	if err := e.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventRegisterDuplicate,
				Email:     email,
				Error:     err.Error(),
			})
			return RegisterResult{}, ErrDuplicateEmail
		}
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventRegisterFailure,
			Email:     email,
			Error:     err.Error(),
		})
		return RegisterResult{}, storageErr(err)
	}

	code, err := e.verification.Issue(ctx, email)
	if err != nil {
		// Account exists but has no pending code; the caller retries
		// through ResendVerification.
		return RegisterResult{}, storageErr(err)
	}

	e.notify(ctx, Message{
		Kind:      MessageVerificationCode,
		Recipient: email,
		Name:      account.FullName(),
		Code:      code,
		ExpiresIn: e.config.Verification.TTL,
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRegisterSuccess,
		AccountID: account.ID,
		Email:     email,
	})

	return RegisterResult{
		AccountID:           account.ID,
		PendingVerification: true,
	}, nil
}

// ResendVerification mints a fresh verification code for an unverified
// account, invalidating the previous code. Issuance is capped per email
// inside a sliding window.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return &InputError{Fields: map[string]string{"email": "must be a valid email address"}}
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return storageErr(err)
	}
	if account.EmailVerified {
		return ErrAlreadyVerified
	}

	if err := e.verificationLimiter.Enforce(ctx, email); err != nil {
		if errors.Is(err, limiters.ErrVerificationRateLimited) {
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventVerifyRateLimited,
				AccountID: account.ID,
				Email:     email,
				Error:     err.Error(),
			})
			return ErrRateLimited
		}
		return storageErr(err)
	}

	code, err := e.verification.Issue(ctx, email)
	if err != nil {
		return storageErr(err)
	}

	e.notify(ctx, Message{
		Kind:      MessageVerificationCode,
		Recipient: email,
		Name:      account.FullName(),
		Code:      code,
		ExpiresIn: e.config.Verification.TTL,
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventVerifyResend,
		AccountID: account.ID,
		Email:     email,
	})

	return nil
}

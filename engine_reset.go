package authcore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/efarm-app/authcore/internal/limiters"
)

// ForgotPassword issues a one-time reset code for email and sends it.
// origin identifies the requesting address for rate limiting and may be
// empty. The call reports success for unknown emails too, so a caller
// cannot probe which addresses have accounts. Unverified and disabled
// accounts are refused; their owners cannot receive or use the code.
func (e *Engine) ForgotPassword(ctx context.Context, email, origin string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return &InputError{Fields: map[string]string{"email": "must be a valid email address"}}
	}

	if err := e.resetLimiter.Enforce(ctx, email, origin); err != nil {
		if errors.Is(err, limiters.ErrResetRateLimited) {
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventResetRateLimited,
				Email:     email,
				Origin:    origin,
				Error:     err.Error(),
			})
			return ErrRateLimited
		}
		return storageErr(err)
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Uniform response. The miss is only visible in logs.
			e.logger.Info("reset requested for unknown email",
				zap.String("origin", origin),
			)
			return nil
		}
		return storageErr(err)
	}

	if !account.EmailVerified {
		return ErrAccountNotVerified
	}
	if !account.Active {
		return ErrAccountDisabled
	}

	code, err := e.reset.Issue(ctx, email, origin)
	if err != nil {
		return storageErr(err)
	}

	e.notify(ctx, Message{
		Kind:      MessageResetCode,
		Recipient: email,
		Name:      account.FullName(),
		Code:      code,
		ExpiresIn: e.config.Reset.TTL,
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetRequest,
		AccountID: account.ID,
		Email:     email,
		Origin:    origin,
	})

	return nil
}

// ResetPassword redeems a reset code and installs the new password. The
// code is consumed exactly once; a mismatch is recorded on the stored
// code and returns [ErrInvalidOrExpiredCode]. A successful reset clears
// any pending lockout. Existing session tokens remain valid until they
// expire.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if verr := e.validateResetPassword(req); verr != nil {
		return verr
	}

	email := normalizeEmail(req.Email)

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return storageErr(err)
	}

	ok, err := e.reset.Redeem(ctx, email, req.Code)
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventResetFailure,
			AccountID: account.ID,
			Email:     email,
			Error:     ErrInvalidOrExpiredCode.Error(),
		})
		return ErrInvalidOrExpiredCode
	}

	hash, err := e.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := e.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return storageErr(err)
	}

	// A completed reset also clears failure counters and any active lock.
	if err := e.lockouts.reset(ctx, account.ID); err != nil {
		return err
	}

	e.notify(ctx, Message{
		Kind:      MessagePasswordChanged,
		Recipient: email,
		Name:      account.FullName(),
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetSuccess,
		AccountID: account.ID,
		Email:     email,
	})

	return nil
}

package authcore

import (
	"context"
	"errors"
)

// VerifyEmail redeems a verification code. On success the account is
// activated and a welcome notification is sent. A code redeems at most
// once; any mismatch, reuse, or expiry returns [ErrInvalidOrExpiredCode].
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return &InputError{Fields: map[string]string{"email": "must be a valid email address"}}
	}
	if !codeDigitsOnly(code) {
		return &InputError{Fields: map[string]string{"code": "must be numeric"}}
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

	ok, err := e.verification.Redeem(ctx, email, code)
	if err != nil {
		return storageErr(err)
	}
	if !ok {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventVerifyFailure,
			AccountID: account.ID,
			Email:     email,
			Error:     ErrInvalidOrExpiredCode.Error(),
		})
		return ErrInvalidOrExpiredCode
	}

	// The code is consumed at this point. A failure below leaves the
	// account unverified with no valid code; recovery is a resend.
	if err := e.accounts.MarkVerified(ctx, account.ID, e.now()); err != nil {
		return storageErr(err)
	}

	e.notify(ctx, Message{
		Kind:      MessageWelcome,
		Recipient: email,
		Name:      account.FullName(),
	})
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventVerifySuccess,
		AccountID: account.ID,
		Email:     email,
	})

	return nil
}

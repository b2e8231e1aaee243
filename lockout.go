package authcore

import (
	"context"
	"time"
)

// lockoutTracker implements the failed-login state machine over the
// caller's account store. Counting and locking live on the account row,
// so a lock survives restarts and is shared by every engine instance.
type lockoutTracker struct {
	accounts AccountStore
	config   LockoutConfig
	now      func() time.Time
}

// activeLock returns the unlock time when the account is currently
// locked and the zero time otherwise. An expired lock is treated as
// absent; clearing the stale row is deferred to the next successful
// login.
func (t *lockoutTracker) activeLock(account Account) time.Time {
	if account.Locked(t.now()) {
		return *account.LockedUntil
	}
	return time.Time{}
}

// recordFailure bumps the failure counter and trips a lock once the
// threshold is reached. It returns the remaining attempt budget and, when
// this failure tripped the lock, the unlock time.
func (t *lockoutTracker) recordFailure(ctx context.Context, accountID string) (remaining int, lockedUntil time.Time, err error) {
	count, err := t.accounts.IncrementFailedLogins(ctx, accountID)
	if err != nil {
		return 0, time.Time{}, storageErr(err)
	}

	if count >= t.config.Threshold {
		until := t.now().Add(t.config.Duration)
		if err := t.accounts.SetLockedUntil(ctx, accountID, until); err != nil {
			return 0, time.Time{}, storageErr(err)
		}
		return 0, until, nil
	}

	return t.config.Threshold - count, time.Time{}, nil
}

// reset clears the counter and any lock after a successful login.
func (t *lockoutTracker) reset(ctx context.Context, accountID string) error {
	if err := t.accounts.ResetLockout(ctx, accountID); err != nil {
		return storageErr(err)
	}
	return nil
}

package authcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/efarm-app/authcore/token"
)

var (
	// ErrInvalidInput reports a validation failure. The concrete error is
	// usually an [*InputError] carrying a field-keyed reason map.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateEmail is returned by Register when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountNotFound is returned by account lookups, and by operations
	// that are allowed to reveal account existence (never by Login).
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNotVerified is returned when an operation requires a
	// verified email address.
	ErrAccountNotVerified = errors.New("account email not verified")
	// ErrAccountDisabled is returned for deactivated accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is returned while a lockout is in effect. The
	// concrete error is a [*LockedError] carrying the unlock time.
	ErrAccountLocked = errors.New("account locked")
	// ErrAlreadyVerified is returned when verifying or resending a code
	// for an account whose email is already verified.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the two cases are deliberately indistinguishable. On a wrong
	// password the concrete error is a [*CredentialsError] with the
	// remaining attempt budget.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidOrExpiredCode is returned when a one-time code does not
	// match, was already used, or has expired.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrRateLimited is returned when an issuance budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrStorageUnavailable wraps backend failures from Redis or the
	// account store. Backend detail stays in the wrapped cause and is
	// never part of the sentinel text.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Session token failures are defined by the token package; aliased here so
// callers can match the whole taxonomy against authcore.
var (
	// ErrTokenExpired is an exported constant or variable used by the engine.
	ErrTokenExpired = token.ErrExpired
	// ErrTokenSignatureInvalid is an exported constant or variable used by the engine.
	ErrTokenSignatureInvalid = token.ErrSignatureInvalid
	// ErrTokenMalformed is an exported constant or variable used by the engine.
	ErrTokenMalformed = token.ErrMalformed
)

// InputError is a validation failure with one reason per offending field.
// It matches [ErrInvalidInput] under errors.Is.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("invalid input: ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// LockedError reports an active lockout and when it lifts.
// It matches [ErrAccountLocked] under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// CredentialsError reports a failed password check and how many attempts
// remain before lockout. It matches [ErrInvalidCredentials] under errors.Is.
type CredentialsError struct {
	Remaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid email or password, %d attempts remaining", e.Remaining)
}

func (e *CredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

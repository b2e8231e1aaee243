package authcore

import (
	"context"
	"time"
)

// Account is the identity unit the engine authenticates. The caller owns
// persistence; the engine mutates accounts only through [AccountStore].
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        []string

	// Active and EmailVerified must both be true for login to succeed.
	// Both start false and flip together on verification redemption.
	Active        bool
	EmailVerified bool

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
}

// Locked reports whether the account is locked at the given instant.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// FullName joins the display name fields for notification templates.
func (a Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// AccountStore is the persistence collaborator the caller must implement to
// integrate authcore with their database. Lookup misses return
// [ErrAccountNotFound]; Create returns [ErrDuplicateEmail] on an email
// collision. Emails passed in are already case-normalized.
//
// IncrementFailedLogins must be an atomic increment-and-fetch on the
// account row: two racing failures may not observe the same count.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, account Account) error

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// MarkVerified sets email_verified and active in one write.
	MarkVerified(ctx context.Context, id string, at time.Time) error
	// RecordLogin sets last_login.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	SetLockedUntil(ctx context.Context, id string, until time.Time) error
	// ResetLockout zeroes failed_login_attempts and clears locked_until.
	ResetLockout(ctx context.Context, id string) error
}

// MessageKind identifies a notification template.
type MessageKind int

const (
	// MessageVerificationCode carries an email verification code.
	MessageVerificationCode MessageKind = iota
	// MessageResetCode carries a password reset code.
	MessageResetCode
	// MessageWelcome is sent after successful verification.
	MessageWelcome
	// MessagePasswordChanged confirms a completed password reset.
	MessagePasswordChanged
)

func (k MessageKind) String() string {
	switch k {
	case MessageVerificationCode:
		return "verification_code"
	case MessageResetCode:
		return "reset_code"
	case MessageWelcome:
		return "welcome"
	case MessagePasswordChanged:
		return "password_changed"
	default:
		return "unknown"
	}
}

// Message is an outbound notification payload.
type Message struct {
	Kind      MessageKind
	Recipient string
	Name      string
	// Code is set for MessageVerificationCode and MessageResetCode.
	Code string
	// ExpiresIn is the code lifetime, for "expires in N minutes" copy.
	ExpiresIn time.Duration
}

// Notifier delivers outbound notifications. The engine always calls the
// interface; absence of a real mail transport is expressed by wiring
// [NoopNotifier] or [LogNotifier], never by a nil check in business logic.
// Every call is made with a bounded timeout and, except where documented,
// is best-effort: a send failure never rolls back committed state.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	AccountID string
	// PendingVerification is always true on success: new accounts start
	// inactive until the emailed code is redeemed.
	PendingVerification bool
}

// Profile is the public projection of an account returned on login.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Profile      Profile
}

// ResetPasswordRequest is the input for [Engine.ResetPassword].
type ResetPasswordRequest struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// Session is the result of validating a session token. It is decoded from
// the token alone; see [Engine.ValidateSession] for the freshness
// trade-off.
type Session struct {
	AccountID string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

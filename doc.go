// Package authcore is the credential and token lifecycle engine for the
// eFarm backend. It authenticates end users and governs every short-lived
// secret the product hands out: signed session tokens, one-time email
// verification codes, and one-time password reset codes.
//
// The package is an embeddable library, not a service. Account persistence
// stays behind the caller-implemented [AccountStore] interface and outbound
// mail behind [Notifier]; the ephemeral token state the engine itself owns
// (verification codes, reset codes, issuance history for rate limiting)
// lives in Redis so that single-valid-token and redeem-exactly-once
// invariants hold across processes.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Config], the
// [AccountStore] and [Notifier] collaborator interfaces, and the error
// taxonomy. Token store coordination, Lua atomicity, and sliding-window
// rate accounting live under internal/ and are never exported.
//
// Engine methods are safe for concurrent use after construction through
// [New]. Session validation is stateless: signature and expiry checks
// never touch Redis or the account store.
package authcore

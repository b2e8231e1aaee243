// Package limiters enforces sliding-window issuance limits for one-time
// codes. Limits are derived by counting prior issuances rather than by
// keeping separate counters, so a limiter can never drift from the token
// history it guards.
package limiters

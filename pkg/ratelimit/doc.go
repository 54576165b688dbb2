// Package ratelimit guards the login endpoint against credential stuffing.
//
// Failed attempts are counted per key in a fixed window. Exceeding the
// window's budget places the key in a timed lockout during which every
// attempt is rejected with a Retry-After hint. A successful login resets
// the key so legitimate users who eventually remember their password are
// not penalized by stale counters.
//
// The middleware fails open: if the backing store is unreachable, login
// traffic passes through rather than locking every user out of the
// product because Redis restarted.
package ratelimit

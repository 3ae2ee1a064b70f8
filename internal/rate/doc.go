// Package rate provides the Redis-backed login throttle used by the engine.
//
// # Window semantics
//
// Fixed-window counters bumped by one Lua script (INCR, then PEXPIRE on the
// first hit) so the login and IP counters move in a single round trip. Checks
// read both with MGET. Key prefixes:
//   - al:u:  login attempts per login name
//   - al:ip: login attempts per client IP (optional)
//
// A counter above MaxLoginAttempts blocks further attempts until its window
// expires. A successful login or password change clears the counters.
//
// # What this package must NOT do
//
//   - Decide which engine outcome a limit maps to.
//   - Be imported outside the authcore module.
package rate

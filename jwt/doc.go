// Package jwt issues and verifies short-lived signed access tokens.
//
// Tokens carry the subject, a token type ("access" or "change-password"), a
// random jti and an expiry. Verification distinguishes expired, not-yet-valid
// and malformed tokens so callers can report them separately. Revocation is
// the caller's concern.
package jwt

// Package refresh implements the Redis-backed store of opaque, single-use
// refresh tokens.
//
// # Token format
//
// A refresh token is 64 bytes from crypto/rand encoded as unpadded base64url.
// Only its SHA-256 hex digest is persisted: the record lives under
// "<prefix><digest>" with a TTL equal to the refresh lifetime and holds a
// small binary envelope (version, user id, created-at, expires-at). A per-user
// set indexes live digests for bulk revocation.
//
// # Single use
//
// [Store.Redeem] reads and deletes the record in one Lua script, so of any
// number of concurrent redeemers of the same token at most one succeeds.
//
// # What this package must NOT do
//
//   - Store raw tokens or log them.
//   - Issue access tokens or consult the credential store.
package refresh

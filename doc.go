// Package authcore is the authentication and session-lifecycle core: it
// checks credentials, issues short-lived JWT access tokens, rotates single-use
// opaque refresh tokens held in Redis and keeps a self-expiring deny-list of
// revoked access-token ids.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Session lifecycle
//
//	Unauthenticated --Login--> AwaitingPasswordChange   (MustChangePassword)
//	Unauthenticated --Login--> Authenticated
//	AwaitingPasswordChange --ChangePassword--> Unauthenticated
//	Authenticated --Refresh--> Authenticated            (old refresh token consumed)
//	Authenticated --Logout--> Unauthenticated
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the
// [CredentialStore] collaborator interface and value types. Token signing
// lives in jwt/, hashing in password/, Redis persistence in refresh/ and
// revocation/; throttling and audit buffering live under internal/.
//
// # What this package must NOT do
//
//   - Store or log raw refresh tokens or plaintext passwords.
//   - Cache refresh or revocation records in process.
//   - Hold a lock across Redis or credential store I/O.
//   - Read or write user records other than through [CredentialStore].
package authcore

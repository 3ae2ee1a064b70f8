// Package middleware exposes HTTP middleware that authenticates bearer tokens
// through authcore.Engine.
//
// # Guards
//
//   - [Guard], [GuardWith]: configurable token types and error rendering.
//   - [RequireAccess]: only full access tokens pass.
//   - [AllowChangePassword]: access and change-password tokens pass.
//
// Each guard reads the Authorization header, calls Engine.Authenticate, and
// injects the resulting *authcore.AuthResult into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Authenticate.
package middleware

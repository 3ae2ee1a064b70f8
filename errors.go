package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown login and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOldPassword is an exported constant or variable used by the authentication engine.
	ErrInvalidOldPassword = errors.New("invalid old password")
	// ErrPasswordMismatch is returned when the new password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords are not the same")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrTokenInvalid covers malformed tokens, bad signatures and unknown token types.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotYetValid is an exported constant or variable used by the authentication engine.
	ErrTokenNotYetValid = errors.New("token is not active")
	// ErrTokenRevoked is returned for a token whose id is on the deny-list.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenTypeNotAllowed is returned when a valid token of the wrong type is
	// presented, e.g. a change-password token on an access-only route.
	ErrTokenTypeNotAllowed = errors.New("token type not allowed")
	// ErrInvalidRefreshToken is returned for refresh tokens that were never
	// issued, have expired or were already redeemed.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrCredentialNotFound is returned by CredentialStore implementations when
	// no record matches.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrServiceUnavailable wraps failures of Redis or the credential store.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrEngineNotReady is returned when a nil or partially built Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
)

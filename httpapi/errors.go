package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

var (
	errInvalidInput   = errors.New("invalid input data")
	errNoRefreshToken = errors.New("no refresh token provided")
	errNoToken        = errors.New("no token provided")
)

// StatusFor maps an engine error to an HTTP status and client-facing message.
// Unknown errors map to 500 without exposing their text.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidInput):
		return http.StatusBadRequest, "Invalid input data"
	case errors.Is(err, errNoRefreshToken):
		return http.StatusUnauthorized, "No refresh token provided"
	case errors.Is(err, errNoToken):
		return http.StatusUnauthorized, "No token provided"
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, authcore.ErrInvalidOldPassword):
		return http.StatusUnauthorized, "Invalid old password"
	case errors.Is(err, authcore.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, authcore.ErrTokenRevoked):
		return http.StatusUnauthorized, "Token revoked"
	case errors.Is(err, authcore.ErrTokenNotYetValid):
		return http.StatusUnauthorized, "Token is not active"
	case errors.Is(err, authcore.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, authcore.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, authcore.ErrTokenTypeNotAllowed):
		return http.StatusForbidden, "Token type not allowed"
	case errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, authcore.ErrPasswordMismatch):
		return http.StatusBadRequest, "Passwords are not the same"
	case errors.Is(err, authcore.ErrPasswordPolicy):
		return http.StatusBadRequest, "Password does not meet the length policy"
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "Too many login attempts"
	case errors.Is(err, authcore.ErrServiceUnavailable), errors.Is(err, authcore.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result injected by a guard.
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// ErrorHandler renders a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Guard rejects requests without a valid bearer token of an allowed type.
// With no types listed only access tokens pass.
func Guard(engine *authcore.Engine, allowed ...authcore.TokenType) func(http.Handler) http.Handler {
	return GuardWith(engine, nil, allowed...)
}

// GuardWith is Guard with a custom error renderer. A nil onError writes a
// plain-text status.
func GuardWith(engine *authcore.Engine, onError ErrorHandler, allowed ...authcore.TokenType) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultOnError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, authcore.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				onError(w, r, authcore.ErrTokenInvalid)
				return
			}

			res, err := engine.Authenticate(r.Context(), token, allowed...)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccess admits only full access tokens.
func RequireAccess(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.TokenAccess)
}

// AllowChangePassword also admits change-password tokens, for the routes a
// user must reach while a password change is pending.
func AllowChangePassword(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.TokenAccess, authcore.TokenChangePassword)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(r *http.Request) (string, bool) {
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func defaultOnError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, authcore.ErrTokenTypeNotAllowed):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, authcore.ErrServiceUnavailable), errors.Is(err, authcore.ErrEngineNotReady):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

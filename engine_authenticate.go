package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// Authenticate verifies a presented token, consults the deny-list and checks
// the token type against allowed. With no allowed types only access tokens
// pass.
//
// Errors: ErrTokenInvalid, ErrTokenExpired, ErrTokenNotYetValid, ErrTokenRevoked,
// ErrTokenTypeNotAllowed, ErrServiceUnavailable.
func (e *Engine) Authenticate(ctx context.Context, token string, allowed ...TokenType) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	start := time.Now()
	claims, err := e.authenticate(ctx, token, allowed)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	return authResultFromClaims(claims), nil
}

func (e *Engine) authenticate(ctx context.Context, token string, allowed []TokenType) (*jwt.Claims, error) {
	claims, err := e.verifyToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := e.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if !typeAllowed(claims.Type, allowed) {
		return nil, ErrTokenTypeNotAllowed
	}
	return claims, nil
}

func (e *Engine) verifyToken(token string) (*jwt.Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := e.tokens.Verify(token)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

// isRevoked is the only read the engine retries: one extra attempt after
// Store.RetryBackoff.
func (e *Engine) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := e.checkRevoked(ctx, tokenID)
	if err == nil {
		return revoked, nil
	}

	if backoff := e.config.Store.RetryBackoff; backoff > 0 {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.metricInc(MetricRevocationCheckFailure)
			return false, unavailable(ctx.Err())
		case <-timer.C:
		}
	}

	revoked, err = e.checkRevoked(ctx, tokenID)
	if err != nil {
		e.metricInc(MetricRevocationCheckFailure)
		return false, unavailable(err)
	}
	return revoked, nil
}

func (e *Engine) checkRevoked(ctx context.Context, tokenID string) (bool, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	return e.revocations.IsRevoked(opCtx, tokenID)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrNotYetValid):
		return ErrTokenNotYetValid
	default:
		return ErrTokenInvalid
	}
}

func typeAllowed(typ TokenType, allowed []TokenType) bool {
	if len(allowed) == 0 {
		return typ == TokenAccess
	}
	for _, a := range allowed {
		if a == typ {
			return true
		}
	}
	return false
}

func authResultFromClaims(claims *jwt.Claims) *AuthResult {
	res := &AuthResult{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		TokenType: claims.Type,
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res
}

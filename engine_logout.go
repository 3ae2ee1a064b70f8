package authcore

import (
	"context"
	"errors"
	"time"
)

// Logout describes the logout operation and its observable behavior.
//
// Both credentials are optional. A valid access token is put on the deny-list
// for its remaining lifetime; expired or already revoked tokens count as
// logged out. The refresh session is always deleted, and failures doing so
// are logged and swallowed.
//
// Logout returns ErrTokenInvalid for a malformed access token and
// ErrServiceUnavailable when the deny-list write fails. In both cases the
// refresh session has already been handled and callers should still clear
// client-side state.
func (e *Engine) Logout(ctx context.Context, accessToken, rawRefresh string) error {
	if err := e.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	userID, tokenID, revokeErr := e.revokePresented(ctx, accessToken)

	if rawRefresh != "" {
		opCtx, cancel := e.opContext(ctx)
		if err := e.refresh.Delete(opCtx, rawRefresh); err != nil {
			e.log.Warn("authcore: refresh session delete failed on logout", "user_id", userID, "error", err)
		}
		cancel()
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, revokeErr == nil, userID, tokenID, revokeErr, nil)

	return revokeErr
}

func (e *Engine) revokePresented(ctx context.Context, accessToken string) (string, string, error) {
	if accessToken == "" {
		return "", "", nil
	}

	claims, err := e.verifyToken(accessToken)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		return "", "", nil
	case errors.Is(err, ErrTokenNotYetValid):
		// Issued by an instance whose clock runs ahead. It becomes usable
		// here later, so it still has to be denied.
		if claims, err = e.tokens.VerifySignature(accessToken); err != nil {
			return "", "", ErrTokenInvalid
		}
	default:
		return "", "", ErrTokenInvalid
	}

	if err := e.revoke(ctx, claims.Subject, claims.ID, claims.ExpiresAt.Time); err != nil {
		return claims.Subject, claims.ID, err
	}
	return claims.Subject, claims.ID, nil
}

// revoke puts tokenID on the deny-list until exp. A token past exp needs no entry.
func (e *Engine) revoke(ctx context.Context, userID, tokenID string, exp time.Time) error {
	remaining := exp.Sub(e.now())
	if remaining <= 0 {
		return nil
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	if err := e.revocations.Revoke(opCtx, tokenID, remaining); err != nil {
		return unavailable(err)
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, userID, tokenID, nil, nil)
	return nil
}

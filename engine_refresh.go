package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/refresh"
)

// Refresh describes the refresh operation and its observable behavior.
//
// The presented token is consumed atomically; of two concurrent calls with the
// same raw token exactly one succeeds. The user record is read before any new
// token is minted, so a deleted account yields ErrUserNotFound without leaving
// a fresh refresh session behind.
func (e *Engine) Refresh(ctx context.Context, rawRefresh string) (*RefreshResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	session, err := e.redeem(ctx, rawRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return nil, err
	}

	user, err := e.findByID(ctx, session.UserID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, session.UserID, "", err, nil)
		return nil, err
	}

	// A pending password change invalidates sessions minted before the flag was set.
	if user.MustChangePassword {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, "", ErrInvalidRefreshToken,
			auditMetadata(auditMetaReason, auditReasonPasswordChangeRequired))
		return nil, ErrInvalidRefreshToken
	}

	access, claims, err := e.tokens.Issue(user.ID, TokenAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("authcore: issue access token: %w", err)
	}

	rawNext, err := e.issueRefresh(ctx, user.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.ID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, claims.ID, nil, nil)

	return &RefreshResult{
		AccessToken:  access,
		ExpiresAt:    claims.ExpiresAt.Time,
		RefreshToken: rawNext,
		UserID:       user.ID,
		Login:        user.Login,
		Role:         user.Role,
	}, nil
}

func (e *Engine) redeem(ctx context.Context, rawRefresh string) (*refresh.Session, error) {
	if rawRefresh == "" {
		return nil, ErrInvalidRefreshToken
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	session, err := e.refresh.Redeem(opCtx, rawRefresh)
	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, refresh.ErrNotFound):
		return nil, ErrInvalidRefreshToken
	default:
		return nil, unavailable(err)
	}
}

// findByID maps a missing record to ErrUserNotFound.
func (e *Engine) findByID(ctx context.Context, userID string) (*UserCredential, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	user, err := e.credentials.FindByID(opCtx, userID)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrCredentialNotFound):
		return nil, ErrUserNotFound
	default:
		return nil, unavailable(err)
	}
}

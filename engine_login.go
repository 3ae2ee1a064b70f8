package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/internal/rate"
)

// Login describes the login operation and its observable behavior.
//
// An unknown login and a wrong password both yield ErrInvalidCredentials. A user
// flagged MustChangePassword receives only a change-password token and no
// refresh token. Otherwise the result carries an access token, a fresh refresh
// token and the user's login and role.
func (e *Engine) Login(ctx context.Context, login, plaintext string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)
	ip := clientIPFromContext(ctx)

	if err := e.checkLoginThrottle(ctx, login, ip); err != nil {
		return nil, err
	}

	if login == "" || plaintext == "" {
		return nil, e.loginFailed(ctx, login, ip, "")
	}

	user, err := e.findByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, e.loginFailed(ctx, login, ip, "")
		}
		e.metricInc(MetricLoginFailure)
		err = unavailable(err)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, loginMetadata(login))
		return nil, err
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		e.log.Warn("authcore: stored password hash is unreadable", "user_id", user.ID, "error", err)
	}
	if err != nil || !ok {
		return nil, e.loginFailed(ctx, login, ip, user.ID)
	}

	e.resetLoginThrottle(ctx, login, ip)

	if user.MustChangePassword {
		token, claims, err := e.tokens.Issue(user.ID, TokenChangePassword, e.config.JWT.ChangePasswordTTL)
		if err != nil {
			return nil, fmt.Errorf("authcore: issue change-password token: %w", err)
		}

		e.metricInc(MetricPasswordChangeRequired)
		e.emitAudit(ctx, auditEventPasswordChangeRequired, true, user.ID, claims.ID, nil, nil)

		return &LoginResult{
			PasswordChangeRequired: true,
			AccessToken:            token,
			TokenType:              TokenChangePassword,
			ExpiresAt:              claims.ExpiresAt.Time,
			UserID:                 user.ID,
		}, nil
	}

	e.upgradeHash(ctx, user, plaintext)

	access, claims, err := e.tokens.Issue(user.ID, TokenAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("authcore: issue access token: %w", err)
	}

	rawRefresh, err := e.issueRefresh(ctx, user.ID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", err, loginMetadata(login))
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, claims.ID, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		TokenType:    TokenAccess,
		ExpiresAt:    claims.ExpiresAt.Time,
		RefreshToken: rawRefresh,
		UserID:       user.ID,
		Login:        user.Login,
		Role:         user.Role,
	}, nil
}

func (e *Engine) findByLogin(ctx context.Context, login string) (*UserCredential, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	return e.credentials.FindByLogin(opCtx, login)
}

func (e *Engine) issueRefresh(ctx context.Context, userID string) (string, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	raw, err := e.refresh.Issue(opCtx, userID, e.config.JWT.RefreshTTL)
	if err != nil {
		return "", unavailable(err)
	}
	return raw, nil
}

// loginFailed records a failed attempt against the throttle. The attempt that
// crosses the limit is already reported as rate limited.
func (e *Engine) loginFailed(ctx context.Context, login, ip, userID string) error {
	err := ErrInvalidCredentials

	if e.limiter != nil && login != "" {
		opCtx, cancel := e.opContext(ctx)
		incErr := e.limiter.IncrementLogin(opCtx, login, ip)
		cancel()

		switch {
		case errors.Is(incErr, rate.ErrRateLimited):
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ErrLoginRateLimited, loginMetadata(login))
			err = ErrLoginRateLimited
		case incErr != nil:
			e.log.Warn("authcore: login throttle increment failed", "error", incErr)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, loginMetadata(login))
	return err
}

func (e *Engine) checkLoginThrottle(ctx context.Context, login, ip string) error {
	if e.limiter == nil {
		return nil
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	err := e.limiter.CheckLogin(opCtx, login, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, loginMetadata(login))
		return ErrLoginRateLimited
	default:
		return unavailable(err)
	}
}

func (e *Engine) resetLoginThrottle(ctx context.Context, login, ip string) {
	if e.limiter == nil || login == "" {
		return
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	if err := e.limiter.ResetLogin(opCtx, login, ip); err != nil {
		e.log.Warn("authcore: login throttle reset failed", "error", err)
	}
}

// upgradeHash re-hashes plaintext with the preferred parameters. Failures are
// logged; the login proceeds either way.
func (e *Engine) upgradeHash(ctx context.Context, user *UserCredential, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needsUpgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}

	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		e.log.Warn("authcore: password hash upgrade generation failed", "user_id", user.ID, "error", err)
		return
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	if err := e.credentials.UpdatePassword(opCtx, user.ID, upgraded); err != nil {
		e.log.Warn("authcore: password hash upgrade update failed", "user_id", user.ID, "error", err)
	}
}

func loginMetadata(login string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"identifier": login}
	}
}

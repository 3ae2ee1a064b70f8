package authcore

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/password"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// accessToken may be an access or a change-password token. The stored hash is
// only touched after the old password verifies, newPassword equals confirm and
// the length policy holds. A change-password token is revoked once the new
// hash is persisted, so it cannot be replayed; if that revocation fails the
// password stays changed and ErrServiceUnavailable is returned.
func (e *Engine) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword, confirm string) error {
	if err := e.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	auth, err := e.Authenticate(ctx, accessToken, TokenAccess, TokenChangePassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", "", err, nil)
		return err
	}

	user, err := e.findByID(ctx, auth.UserID)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, auth.UserID, auth.TokenID, err, nil)
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, user.ID, auth.TokenID, ErrInvalidOldPassword, nil)
		return ErrInvalidOldPassword
	}

	if newPassword != confirm {
		e.metricInc(MetricPasswordChangeMismatch)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, auth.TokenID, ErrPasswordMismatch, nil)
		return ErrPasswordMismatch
	}

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, auth.TokenID, err, nil)
		return err
	}

	newHash, err := e.hasher.Hash(newPassword)
	if errors.Is(err, password.ErrPasswordTooLong) {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, auth.TokenID, ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}
	if err != nil {
		return fmt.Errorf("authcore: hash password: %w", err)
	}

	if err := e.updatePassword(ctx, user.ID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, auth.TokenID, err, nil)
		return err
	}

	if auth.TokenType == TokenChangePassword {
		if err := e.revoke(ctx, user.ID, auth.TokenID, auth.ExpiresAt); err != nil {
			e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, auth.TokenID, err,
				auditMetadata(auditMetaStage, auditStageRevokeChangeToken))
			return err
		}
	}

	if e.config.Session.RevokeAllOnPasswordChange {
		opCtx, cancel := e.opContext(ctx)
		err := e.refresh.RevokeAll(opCtx, user.ID)
		cancel()
		if err != nil {
			e.log.Warn("authcore: refresh sessions not revoked after password change", "user_id", user.ID, "error", err)
		}
	}

	e.resetLoginThrottle(ctx, user.Login, clientIPFromContext(ctx))

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, auth.TokenID, nil, nil)

	return nil
}

func (e *Engine) updatePassword(ctx context.Context, userID, newHash string) error {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	err := e.credentials.UpdatePassword(opCtx, userID, newHash)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCredentialNotFound):
		return ErrUserNotFound
	default:
		return unavailable(err)
	}
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	n := utf8.RuneCountInString(plaintext)
	if n < e.config.Password.MinLength || n > e.config.Password.MaxLength {
		return ErrPasswordPolicy
	}
	return nil
}

// HashPassword hashes plaintext with the configured algorithm, for seeding
// credential stores. It does not apply the length policy.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plaintext)
}

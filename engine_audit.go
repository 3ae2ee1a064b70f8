package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventPasswordChangeRequired   = "password_change_required"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshInvalid           = "refresh_invalid"
	auditEventLogout                   = "logout"
	auditEventTokenRevoked             = "token_revoked"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeFailure    = "password_change_failure"
)

// Metadata keys and values attached to failure events.
const (
	auditMetaReason = "reason"
	auditMetaStage  = "stage"

	auditReasonPasswordChangeRequired = "password_change_required"
	auditStageRevokeChangeToken       = "revoke_change_password_token"
)

func auditMetadata(key, value string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{key: value}
	}
}

// AuditErrorCode is the stable, non-sensitive error label stored in
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidOldPassword AuditErrorCode = "invalid_old_password"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenRevoked       AuditErrorCode = "token_revoked"
	auditErrTokenType          AuditErrorCode = "token_type_not_allowed"
	auditErrInvalidRefresh     AuditErrorCode = "invalid_refresh_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidOldPassword):
		return auditErrInvalidOldPassword
	case errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenNotYetValid):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenTypeNotAllowed):
		return auditErrTokenType
	case errors.Is(err, ErrInvalidRefreshToken):
		return auditErrInvalidRefresh
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

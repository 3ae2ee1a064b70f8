package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// TokenType distinguishes full access tokens from the restricted tokens
// handed out while a password change is pending.
type TokenType = jwt.TokenType

const (
	// TokenAccess grants access to every protected operation.
	TokenAccess = jwt.TypeAccess
	// TokenChangePassword only grants access to ChangePassword.
	TokenChangePassword = jwt.TypeChangePassword
)

// UserCredential is the slice of a user record the engine needs. It is
// read-only to the engine except through CredentialStore.UpdatePassword.
type UserCredential struct {
	ID                 string
	Login              string
	PasswordHash       string
	MustChangePassword bool
	Role               string
}

// CredentialStore is the user-record collaborator. Lookups that match no
// record must return an error wrapping [ErrCredentialNotFound].
//
// UpdatePassword persists newHash and clears MustChangePassword in the same write.
type CredentialStore interface {
	FindByLogin(ctx context.Context, login string) (*UserCredential, error)
	FindByID(ctx context.Context, id string) (*UserCredential, error)
	UpdatePassword(ctx context.Context, id, newHash string) error
}

// LoginResult is returned by [Engine.Login].
//
// When PasswordChangeRequired is true only AccessToken is set and it carries
// the change-password type; RefreshToken, Login and Role are empty.
type LoginResult struct {
	PasswordChangeRequired bool
	AccessToken            string
	TokenType              TokenType
	ExpiresAt              time.Time
	RefreshToken           string
	UserID                 string
	Login                  string
	Role                   string
}

// RefreshResult is returned by [Engine.Refresh].
type RefreshResult struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
	UserID       string
	Login        string
	Role         string
}

// AuthResult is returned by [Engine.Authenticate] and injected into request
// contexts by the middleware package.
type AuthResult struct {
	UserID    string
	TokenID   string
	TokenType TokenType
	ExpiresAt time.Time
}

// Package auth implements registration, login, token issuance and revocation.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotVerified         = errors.New("please verify your email before logging in")
	ErrInvalidVerification = errors.New("invalid or expired verification token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrUnknownEmail        = errors.New("no user found with that email")
	ErrNoToken             = errors.New("no token provided")
	ErrTokenRevoked        = errors.New("token is invalidated")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrUnknownProvider     = errors.New("unknown oauth provider")
	ErrProfileWithoutEmail = errors.New("oauth profile has no email")
)

// Claims are the verified contents of an access token.
type Claims struct {
	UserID    int64
	Email     string
	ExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	User        *user.User
	AccessToken string
	ExpiresAt   time.Time
	// RefreshToken is empty unless the login was remembered.
	RefreshToken string
}

// Mailer sends account emails.
type Mailer interface {
	SendVerification(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// Profile is what an OAuth provider tells us about the user.
type Profile struct {
	Email string
	Name  string
}

// OAuthProvider exchanges an authorization code for a user profile.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	ExchangeProfile(ctx context.Context, code string) (Profile, error)
}

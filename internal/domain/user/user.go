// Package user holds accounts, password rules and profile use cases.
package user

import (
	"context"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

// BcryptCost is the work factor for password and refresh token hashes.
const BcryptCost = 10

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = errors.New("old password is incorrect")
)

// User is a shop account.
type User struct {
	ID                int64
	Name              string
	Email             string
	Mobile            *string
	PasswordHash      string
	IsVerified        bool
	IsSubscribed      bool
	IsAdmin           bool
	VerificationToken *string
	ResetToken        *string
	ResetTokenExpiry  *time.Time
	RefreshTokenHash  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository persists users.
type Repository interface {
	// Create inserts u and returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *User) error
	// Update writes every mutable column of u.
	Update(ctx context.Context, u *User) error
	// UpsertVerified inserts u or, when the email exists, updates its name
	// and marks it verified. u is refreshed from the stored row.
	UpsertVerified(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	// GetByResetToken returns the user whose reset token matches and has not
	// expired at now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*User, error)
}

var (
	passwordCharset = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*(),.?":{}|<>]{6,}$`)
	passwordLetter  = regexp.MustCompile(`[a-zA-Z]`)
	passwordSpecial = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidatePassword enforces at least six characters with one letter and one
// special character.
func ValidatePassword(pw string) error {
	if !passwordCharset.MatchString(pw) || !passwordLetter.MatchString(pw) || !passwordSpecial.MatchString(pw) {
		return domain.Invalid("password must be at least 6 characters long and contain at least one letter and one special character")
	}
	return nil
}

// HashSecret bcrypt-hashes a password or refresh token.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "hash secret")
	}
	return string(h), nil
}

// SecretMatches reports whether secret matches a HashSecret hash.
func SecretMatches(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

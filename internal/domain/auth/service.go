package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = time.Hour

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service implements the account lifecycle.
type Service struct {
	users     user.Repository
	tokens    *TokenIssuer
	revoked   *RevocationList
	mailer    Mailer
	providers map[string]OAuthProvider
	now       func() time.Time
}

// NewService creates an auth Service. providers maps a provider name such as
// "google" to its implementation.
func NewService(
	users user.Repository,
	tokens *TokenIssuer,
	revoked *RevocationList,
	mailer Mailer,
	providers map[string]OAuthProvider,
) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		revoked:   revoked,
		mailer:    mailer,
		providers: providers,
		now:       time.Now,
	}
}

// Register creates an unverified account and mails its verification token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, domain.Invalid("name, email and password are required")
	}
	if !domain.ValidEmail(email) {
		return nil, domain.Invalid("invalid email address")
	}
	if err := user.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := user.HashSecret(in.Password)
	if err != nil {
		return nil, err
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	u := &user.User{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: &token,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.mailer.SendVerification(ctx, u.Email, u.Name, token); err != nil {
		zctx.From(ctx).Warn("Send verification email", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

// VerifyEmail marks the owner of token verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerification
	}
	u, err := s.users.GetByVerificationToken(ctx, token)
	if errors.Is(err, user.ErrNotFound) {
		return ErrInvalidVerification
	}
	if err != nil {
		return err
	}
	u.IsVerified = true
	u.VerificationToken = nil
	return s.users.Update(ctx, u)
}

// Login checks credentials and issues an access token. A remembered login
// also gets a refresh token.
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.SecretMatches(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, ErrNotVerified
	}
	return s.startSession(ctx, u, rememberMe)
}

// AuthCodeURL returns the consent page of the named provider.
func (s *Service) AuthCodeURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return p.AuthCodeURL(state), nil
}

// OAuthLogin exchanges code with the named provider and logs the profile's
// owner in, creating a verified account on first use.
func (s *Service) OAuthLogin(ctx context.Context, provider, code string) (*Session, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	profile, err := p.ExchangeProfile(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "exchange %s code", provider)
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, ErrProfileWithoutEmail
	}
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	hash, err := user.HashSecret(uuid.NewString())
	if err != nil {
		return nil, err
	}
	u := &user.User{Name: name, Email: email, PasswordHash: hash, IsVerified: true}
	if err := s.users.UpsertVerified(ctx, u); err != nil {
		return nil, err
	}
	return s.startSession(ctx, u, true)
}

// Refresh issues a new access token when refreshToken matches the stored hash.
func (s *Service) Refresh(ctx context.Context, userID int64, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if u.RefreshTokenHash == nil || !user.SecretMatches(*u.RefreshTokenHash, refreshToken) {
		return nil, ErrInvalidRefreshToken
	}
	return s.startSession(ctx, u, false)
}

// ForgotPassword stores a one hour reset token and mails it.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, user.ErrNotFound) {
		return ErrUnknownEmail
	}
	if err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	exp := s.now().Add(ResetTokenTTL)
	u.ResetToken = &token
	u.ResetTokenExpiry = &exp
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.Name, token); err != nil {
		zctx.From(ctx).Warn("Send password reset email", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password for the owner of an unexpired token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := user.ValidatePassword(password); err != nil {
		return err
	}
	u, err := s.users.GetByResetToken(ctx, token, s.now())
	if errors.Is(err, user.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	hash, err := user.HashSecret(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return s.users.Update(ctx, u)
}

// Logout forgets the user's refresh token and revokes the access token.
func (s *Service) Logout(ctx context.Context, claims *Claims, accessToken string) error {
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	u.RefreshTokenHash = nil
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	return s.revoked.Revoke(ctx, accessToken, claims.ExpiresAt)
}

// Authenticate validates a bearer token. Revocation is checked before the
// signature.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return s.tokens.Parse(token)
}

func (s *Service) startSession(ctx context.Context, u *user.User, remember bool) (*Session, error) {
	access, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, errors.Wrap(err, "issue access token")
	}
	sess := &Session{User: u, AccessToken: access, ExpiresAt: exp}
	if !remember {
		return sess, nil
	}
	refresh := uuid.NewString()
	hash, err := user.HashSecret(refresh)
	if err != nil {
		return nil, err
	}
	u.RefreshTokenHash = &hash
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	sess.RefreshToken = refresh
	return sess, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate token")
	}
	return hex.EncodeToString(b), nil
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
)

type mockUsers struct {
	byID map[int64]*user.User
}

func newMockUsers() *mockUsers {
	return &mockUsers{byID: map[int64]*user.User{}}
}

func (m *mockUsers) Create(_ context.Context, u *user.User) error {
	for _, e := range m.byID {
		if e.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	u.ID = int64(len(m.byID) + 1)
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUsers) Update(_ context.Context, u *user.User) error {
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUsers) UpsertVerified(ctx context.Context, u *user.User) error {
	for _, e := range m.byID {
		if e.Email == u.Email {
			e.Name = u.Name
			e.IsVerified = true
			*u = *e
			return nil
		}
	}
	return m.Create(ctx, u)
}

func (m *mockUsers) find(match func(*user.User) bool) (*user.User, error) {
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.ID == id })
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Email == email })
}

func (m *mockUsers) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (m *mockUsers) GetByResetToken(_ context.Context, token string, now time.Time) (*user.User, error) {
	return m.find(func(u *user.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry.After(now)
	})
}

type mockRevoked struct {
	tokens map[string]time.Time
	hits   int
}

func (m *mockRevoked) Revoke(_ context.Context, token string, exp time.Time) error {
	m.tokens[token] = exp
	return nil
}

func (m *mockRevoked) IsRevoked(_ context.Context, token string) (bool, error) {
	m.hits++
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *mockRevoked) Active(_ context.Context, now time.Time) ([]string, error) {
	var out []string
	for t, exp := range m.tokens {
		if exp.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockMailer struct {
	verification map[string]string
	reset        map[string]string
	err          error
}

func (m *mockMailer) SendVerification(_ context.Context, email, _, token string) error {
	m.verification[email] = token
	return m.err
}

func (m *mockMailer) SendPasswordReset(_ context.Context, email, _, token string) error {
	m.reset[email] = token
	return m.err
}

type mockProvider struct {
	profile Profile
}

func (p mockProvider) AuthCodeURL(state string) string {
	return "https://provider.test/auth?state=" + state
}

func (p mockProvider) ExchangeProfile(_ context.Context, code string) (Profile, error) {
	if code != "good" {
		return Profile{}, errors.New("bad code")
	}
	return p.profile, nil
}

type fixture struct {
	svc     *Service
	users   *mockUsers
	revoked *mockRevoked
	mailer  *mockMailer
	now     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users:   newMockUsers(),
		revoked: &mockRevoked{tokens: map[string]time.Time{}},
		mailer:  &mockMailer{verification: map[string]string{}, reset: map[string]string{}},
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	issuer := NewTokenIssuer("test-secret", time.Hour)
	issuer.now = func() time.Time { return f.now }
	f.svc = NewService(f.users, issuer, NewRevocationList(f.revoked, 100), f.mailer, map[string]OAuthProvider{
		"google":   mockProvider{profile: Profile{Email: "G@Example.com", Name: "Gee"}},
		"facebook": mockProvider{},
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) registerVerified(t *testing.T, email, password string) *user.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Register(ctx, RegisterInput{Name: "Test", Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, f.mailer.verification[email]))
	return u
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	u, err := f.svc.Register(ctx, RegisterInput{Name: " Rahim ", Email: "Rahim@Example.com", Password: "abc!12"})
	require.NoError(t, err)
	assert.Equal(t, "Rahim", u.Name)
	assert.Equal(t, "rahim@example.com", u.Email)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.VerificationToken)
	assert.Len(t, *u.VerificationToken, 64)
	assert.Equal(t, *u.VerificationToken, f.mailer.verification["rahim@example.com"])

	_, err = f.svc.Register(ctx, RegisterInput{Name: "X", Email: "rahim@example.com", Password: "abc!12"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	for _, in := range []RegisterInput{
		{Email: "a@b.co", Password: "abc!12"},
		{Name: "A", Email: "not-an-email", Password: "abc!12"},
		{Name: "A", Email: "a@b.co", Password: "abcdef"},
	} {
		_, err := f.svc.Register(ctx, in)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, "%+v", in)
	}
}

func TestService_RegisterMailFailureIgnored(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@b.co", Password: "abc!12"})
	assert.NoError(t, err)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.co", Password: "abc!12"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "a@b.co", "abc!12", false)
	assert.ErrorIs(t, err, ErrNotVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "nope"), ErrInvalidVerification)
	require.NoError(t, f.svc.VerifyEmail(ctx, f.mailer.verification["a@b.co"]))

	_, err = f.svc.Login(ctx, "a@b.co", "wrong!1", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "missing@b.co", "abc!12", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := f.svc.Login(ctx, "A@B.co", "abc!12", false)
	require.NoError(t, err)
	assert.Empty(t, sess.RefreshToken)
	assert.Equal(t, f.now.Add(time.Hour), sess.ExpiresAt)

	claims, err := f.svc.Authenticate(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.Equal(t, "a@b.co", claims.Email)
}

func TestService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := f.registerVerified(t, "a@b.co", "abc!12")

	sess, err := f.svc.Login(ctx, "a@b.co", "abc!12", true)
	require.NoError(t, err)
	require.NotEmpty(t, sess.RefreshToken)

	_, err = f.svc.Refresh(ctx, u.ID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = f.svc.Refresh(ctx, 99, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := f.svc.Refresh(ctx, u.ID, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.registerVerified(t, "a@b.co", "abc!12")

	sess, err := f.svc.Login(ctx, "a@b.co", "abc!12", true)
	require.NoError(t, err)
	claims, err := f.svc.Authenticate(ctx, sess.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims, sess.AccessToken))
	assert.Nil(t, f.users.byID[claims.UserID].RefreshTokenHash)

	_, err = f.svc.Authenticate(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = f.svc.Refresh(ctx, claims.UserID, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.registerVerified(t, "a@b.co", "abc!12")
	sess, err := f.svc.Login(ctx, "a@b.co", "abc!12", false)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.Authenticate(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.registerVerified(t, "a@b.co", "abc!12")

	assert.ErrorIs(t, f.svc.ForgotPassword(ctx, "x@b.co"), ErrUnknownEmail)
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.co"))
	token := f.mailer.reset["a@b.co"]
	require.NotEmpty(t, token)

	var ve *domain.ValidationError
	assert.ErrorAs(t, f.svc.ResetPassword(ctx, token, "weak"), &ve)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, "other", "new!pass"), ErrInvalidResetToken)

	f.now = f.now.Add(59 * time.Minute)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "new!pass"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "new!pass"), ErrInvalidResetToken)

	_, err := f.svc.Login(ctx, "a@b.co", "new!pass", false)
	assert.NoError(t, err)
}

func TestService_ResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.registerVerified(t, "a@b.co", "abc!12")
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@b.co"))

	f.now = f.now.Add(61 * time.Minute)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, f.mailer.reset["a@b.co"], "new!pass"), ErrInvalidResetToken)
}

func TestService_OAuthLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.svc.OAuthLogin(ctx, "github", "good")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = f.svc.AuthCodeURL("github", "s")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	u, err := f.svc.AuthCodeURL("google", "xyz")
	require.NoError(t, err)
	assert.Contains(t, u, "state=xyz")

	_, err = f.svc.OAuthLogin(ctx, "google", "bad")
	assert.Error(t, err)

	_, err = f.svc.OAuthLogin(ctx, "facebook", "good")
	assert.ErrorIs(t, err, ErrProfileWithoutEmail)

	sess, err := f.svc.OAuthLogin(ctx, "google", "good")
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", sess.User.Email)
	assert.True(t, sess.User.IsVerified)
	assert.NotEmpty(t, sess.RefreshToken)

	again, err := f.svc.OAuthLogin(ctx, "google", "good")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)
	assert.Len(t, f.users.byID, 1)
}

package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

type mockRepo struct {
	users map[int64]*User
}

func newMockRepo(users ...*User) *mockRepo {
	m := &mockRepo{users: map[int64]*User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	u.ID = int64(len(m.users) + 1)
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) UpsertVerified(ctx context.Context, u *User) error {
	return m.Create(ctx, u)
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(context.Context, string) (*User, error) {
	return nil, ErrNotFound
}

func (m *mockRepo) GetByVerificationToken(context.Context, string) (*User, error) {
	return nil, ErrNotFound
}

func (m *mockRepo) GetByResetToken(context.Context, string, time.Time) (*User, error) {
	return nil, ErrNotFound
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		pw string
		ok bool
	}{
		{"abc!12", true},
		{"secret#", true},
		{"ab!1", false},
		{"123456!", false},
		{"abcdefg", false},
		{"abc def!", false},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			err := ValidatePassword(tt.pw)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestHashSecret(t *testing.T) {
	h, err := HashSecret("abc!12")
	require.NoError(t, err)
	assert.True(t, SecretMatches(h, "abc!12"))
	assert.False(t, SecretMatches(h, "abc!13"))
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	h, err := HashSecret("old!pass")
	require.NoError(t, err)
	repo := newMockRepo(&User{ID: 1, Email: "a@b.co", PasswordHash: h})
	svc := NewService(repo)

	assert.ErrorIs(t, svc.ChangePassword(ctx, 1, "wrong!pass", "new!pass"), ErrWrongPassword)

	var ve *domain.ValidationError
	assert.ErrorAs(t, svc.ChangePassword(ctx, 1, "old!pass", "short"), &ve)

	require.NoError(t, svc.ChangePassword(ctx, 1, "old!pass", "new!pass"))
	assert.True(t, SecretMatches(repo.users[1].PasswordHash, "new!pass"))
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo(&User{ID: 1, Name: "Old"})
	svc := NewService(repo)

	name, mobile := "  New Name ", "01700000000"
	u, err := svc.UpdateProfile(ctx, 1, ProfileUpdate{Name: &name, Mobile: &mobile})
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.Name)
	require.NotNil(t, u.Mobile)
	assert.Equal(t, mobile, *u.Mobile)

	empty := " "
	_, err = svc.UpdateProfile(ctx, 1, ProfileUpdate{Name: &empty})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateProfile(ctx, 9, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_SetSubscription(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepo(&User{ID: 1})
	svc := NewService(repo)

	require.NoError(t, svc.SetSubscription(ctx, 1, true))
	assert.True(t, repo.users[1].IsSubscribed)
	require.NoError(t, svc.SetSubscription(ctx, 1, false))
	assert.False(t, repo.users[1].IsSubscribed)
}

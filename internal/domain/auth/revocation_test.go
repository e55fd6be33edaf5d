package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockRevoked{tokens: map[string]time.Time{
		"old":     now.Add(-time.Minute),
		"current": now.Add(time.Hour),
	}}
	l := NewRevocationList(store, 0)

	ok, err := l.IsRevoked(ctx, "current")
	require.NoError(t, err)
	assert.False(t, ok, "filter is empty before reload")
	assert.Zero(t, store.hits)

	require.NoError(t, l.Reload(ctx, now))
	ok, err = l.IsRevoked(ctx, "current")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Revoke(ctx, "fresh", now.Add(time.Hour)))
	ok, err = l.IsRevoked(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	hits := store.hits
	ok, err = l.IsRevoked(ctx, "never-revoked-token")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.LessOrEqual(t, store.hits, hits+1)
}

// blockingRevoked reads its snapshot, then parks Active until release is
// closed.
type blockingRevoked struct {
	mockRevoked
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRevoked) Active(ctx context.Context, now time.Time) ([]string, error) {
	tokens, err := b.mockRevoked.Active(ctx, now)
	close(b.entered)
	<-b.release
	return tokens, err
}

func TestRevocationListRevokeDuringReload(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &blockingRevoked{
		mockRevoked: mockRevoked{tokens: map[string]time.Time{}},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	l := NewRevocationList(store, 0)

	done := make(chan error, 1)
	go func() { done <- l.Reload(ctx, now) }()
	<-store.entered

	require.NoError(t, l.Revoke(ctx, "logged-out-token", now.Add(time.Hour)))

	close(store.release)
	require.NoError(t, <-done)

	ok, err := l.IsRevoked(ctx, "logged-out-token")
	require.NoError(t, err)
	assert.True(t, ok)

	l.mu.RLock()
	assert.Zero(t, l.reloads)
	assert.Empty(t, l.pending)
	l.mu.RUnlock()
}

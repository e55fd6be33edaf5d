package visitor

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepo struct {
	mu     sync.Mutex
	visits []Visit
	fail   bool
	filter Filter
}

func (m *mockRepo) Create(_ context.Context, v *Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.visits = append(m.visits, *v)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]Visit, error) {
	m.filter = f
	return nil, nil
}

func (m *mockRepo) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.visits)), nil
}

func TestRecorder_FlushOnShutdown(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, 10, zap.NewNop())

	for _, p := range []string{"/products", "/blog", "/cart"} {
		require.True(t, rec.Record(Visit{IP: "1.2.3.4", Path: p}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)
	cancel()
	rec.Wait()

	n, err := NewService(repo).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	rec := NewRecorder(&mockRepo{}, 1, zap.NewNop())
	assert.True(t, rec.Record(Visit{Path: "/a"}))
	assert.False(t, rec.Record(Visit{Path: "/b"}))
}

func TestRecorder_StoreErrorIgnored(t *testing.T) {
	repo := &mockRepo{fail: true}
	rec := NewRecorder(repo, 1, zap.NewNop())
	rec.Record(Visit{Path: "/a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Start(ctx)
	rec.Wait()
	assert.Empty(t, repo.visits)
}

func TestService_List(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo).List(context.Background(), "/products", "BD", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, Filter{Path: "/products", Country: "BD", Offset: 50, Limit: 50}, repo.filter)
}

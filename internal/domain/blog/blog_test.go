package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

type mockRepo struct {
	rows   map[int64]*Post
	filter ListFilter
}

func (m *mockRepo) Create(_ context.Context, p *Post) error {
	for _, e := range m.rows {
		if e.Slug == p.Slug {
			return ErrSlugTaken
		}
	}
	p.ID = int64(len(m.rows) + 1)
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Post) error {
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Post, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, slug string) (*Post, error) {
	for _, p := range m.rows {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]Post, error) {
	m.filter = f
	return nil, nil
}

func TestService_Publish(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{rows: map[int64]*Post{}}
	svc := NewService(repo)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	p, err := svc.Create(ctx, Input{Title: "Bamboo  Care Tips", Content: "water"})
	require.NoError(t, err)
	assert.Equal(t, "bamboo-care-tips", p.Slug)
	assert.Nil(t, p.PublishedAt)

	_, err = svc.GetBySlug(ctx, "bamboo-care-tips")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = svc.Update(ctx, p.ID, Input{Title: "Bamboo Care Tips", Content: "water", IsPublished: true})
	require.NoError(t, err)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, first, *p.PublishedAt)

	svc.now = func() time.Time { return first.Add(time.Hour) }
	p, err = svc.Update(ctx, p.ID, Input{Title: "Bamboo Care Tips", Content: "more water", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, first, *p.PublishedAt)

	got, err := svc.GetBySlug(ctx, "bamboo-care-tips")
	require.NoError(t, err)
	assert.Equal(t, "more water", got.Content)

	_, err = svc.Create(ctx, Input{Title: "bamboo care tips", Content: "dup"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	_, err = svc.Create(ctx, Input{Title: " "})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestService_List(t *testing.T) {
	repo := &mockRepo{rows: map[int64]*Post{}}
	svc := NewService(repo)

	_, err := svc.List(context.Background(), true, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, ListFilter{PublishedOnly: true, Offset: 10, Limit: 5}, repo.filter)
}

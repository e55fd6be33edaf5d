package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
)

type mockRepo struct {
	lines  []*Line
	nextID int64
	now    time.Time
}

func (m *mockRepo) Add(_ context.Context, userID, productID int64, quantity int) (*Line, error) {
	m.now = m.now.Add(time.Minute)
	for _, l := range m.lines {
		if l.UserID == userID && l.ProductID == productID {
			l.Quantity += quantity
			l.UpdatedAt = m.now
			cp := *l
			return &cp, nil
		}
	}
	m.nextID++
	l := &Line{ID: m.nextID, UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: m.now, UpdatedAt: m.now}
	m.lines = append(m.lines, l)
	cp := *l
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, userID int64) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockRepo) find(userID, lineID int64) (int, error) {
	for i, l := range m.lines {
		if l.ID == lineID && l.UserID == userID {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

func (m *mockRepo) SetQuantity(_ context.Context, userID, lineID int64, quantity int) error {
	i, err := m.find(userID, lineID)
	if err != nil {
		return err
	}
	m.lines[i].Quantity = quantity
	return nil
}

func (m *mockRepo) Remove(_ context.Context, userID, lineID int64) error {
	i, err := m.find(userID, lineID)
	if err != nil {
		return err
	}
	m.lines = append(m.lines[:i], m.lines[i+1:]...)
	return nil
}

func (m *mockRepo) Clear(_ context.Context, userID int64) error {
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

type products map[int64]bool

func (p products) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if !p[id] {
		return nil, product.ErrNotFound
	}
	return &product.Product{ID: id}, nil
}

func TestService_AddIncrements(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(repo, products{1: true})

	first, err := svc.Add(ctx, 7, 1, 2)
	require.NoError(t, err)
	second, err := svc.Add(ctx, 7, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, err = svc.Add(ctx, 7, 2, 1)
	assert.ErrorIs(t, err, product.ErrNotFound)

	var ve *domain.ValidationError
	_, err = svc.Add(ctx, 7, 1, 0)
	assert.ErrorAs(t, err, &ve)
}

func TestService_Lines(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{}
	svc := NewService(repo, products{1: true, 2: true})

	a, err := svc.Add(ctx, 7, 1, 1)
	require.NoError(t, err)
	b, err := svc.Add(ctx, 7, 2, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 8, 1, 1)
	require.NoError(t, err)

	var ve *domain.ValidationError
	assert.ErrorAs(t, svc.SetQuantity(ctx, 7, a.ID, -1), &ve)
	require.NoError(t, svc.SetQuantity(ctx, 7, a.ID, 4))
	assert.ErrorIs(t, svc.SetQuantity(ctx, 8, a.ID, 4), ErrNotFound)

	require.NoError(t, svc.Remove(ctx, 7, b.ID))
	assert.ErrorIs(t, svc.Remove(ctx, 7, b.ID), ErrNotFound)

	lines, err := svc.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)

	require.NoError(t, svc.Clear(ctx, 7))
	lines, err = svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = svc.List(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

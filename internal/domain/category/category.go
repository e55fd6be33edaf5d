// Package category manages product categories.
package category

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

var (
	// ErrNotFound is returned when a category does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrAlreadyExists is returned when the name or slug is taken.
	ErrAlreadyExists = errors.New("category already exists")
)

// Category groups products.
type Category struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists categories. Create and Update return ErrAlreadyExists
// on a unique violation.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}

// Service implements category use cases.
type Service struct {
	repo Repository
}

// NewService creates a category Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a category named name.
func (s *Service) Create(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	c := &Category{Name: name, Slug: domain.Slugify(name)}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Rename changes the name and slug of a category.
func (s *Service) Rename(ctx context.Context, id int64, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Slug = domain.Slugify(name)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a category. Products keep existing without a category.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all categories ordered by name.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

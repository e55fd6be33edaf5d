// Package blog serves shop articles.
package blog

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

var (
	// ErrNotFound is returned for a missing or unpublished post.
	ErrNotFound = errors.New("post not found")
	// ErrSlugTaken is returned when another post already uses the slug.
	ErrSlugTaken = errors.New("a post with this title already exists")
)

// Post is a blog article.
type Post struct {
	ID          int64
	Title       string
	Slug        string
	Content     string
	CoverImage  string
	IsPublished bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input carries the writable post fields.
type Input struct {
	Title       string
	Content     string
	CoverImage  string
	IsPublished bool
}

// ListFilter selects posts, newest first.
type ListFilter struct {
	PublishedOnly bool
	Offset        int
	Limit         int
}

// Repository persists posts. Create and Update return ErrSlugTaken on a
// duplicate slug.
type Repository interface {
	Create(ctx context.Context, p *Post) error
	Update(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, f ListFilter) ([]Post, error)
}

// Service implements blog use cases.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a blog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns a page of posts. Drafts are included only when publishedOnly
// is false.
func (s *Service) List(ctx context.Context, publishedOnly bool, page, limit int) ([]Post, error) {
	offset, size := domain.Page(page, limit, 10, 100)
	return s.repo.List(ctx, ListFilter{PublishedOnly: publishedOnly, Offset: offset, Limit: size})
}

// GetBySlug returns a published post.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		return nil, ErrNotFound
	}
	return p, nil
}

// Create stores a post.
func (s *Service) Create(ctx context.Context, in Input) (*Post, error) {
	p := &Post{}
	if err := s.fill(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces a post's fields. The publication time is kept from the
// first time the post went live.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) fill(p *Post, in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return domain.Invalid("title and content are required")
	}
	p.Title = title
	p.Slug = domain.Slugify(title)
	p.Content = in.Content
	p.CoverImage = in.CoverImage
	p.IsPublished = in.IsPublished
	if p.IsPublished && p.PublishedAt == nil {
		now := s.now()
		p.PublishedAt = &now
	}
	return nil
}

// Package rating manages product reviews.
package rating

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
)

var (
	// ErrNotFound is returned when a rating does not exist.
	ErrNotFound = errors.New("rating not found")
	// ErrForbidden is returned when a user touches someone else's rating.
	ErrForbidden = errors.New("you can only modify your own rating")
)

// Rating is one user's score for a product.
type Rating struct {
	ID        int64
	UserID    int64
	ProductID int64
	Score     int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists ratings.
type Repository interface {
	Create(ctx context.Context, r *Rating) error
	Update(ctx context.Context, r *Rating) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Rating, error)
	ListByProduct(ctx context.Context, productID int64) ([]Rating, error)
}

// ProductFinder is the product lookup a rating needs.
type ProductFinder interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Service implements rating use cases.
type Service struct {
	repo     Repository
	products ProductFinder
}

// NewService creates a rating Service.
func NewService(repo Repository, products ProductFinder) *Service {
	return &Service{repo: repo, products: products}
}

// Create rates an existing product.
func (s *Service) Create(ctx context.Context, userID, productID int64, score int, comment string) (*Rating, error) {
	if err := checkScore(score); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	r := &Rating{UserID: userID, ProductID: productID, Score: score, Comment: comment}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create rating")
	}
	return r, nil
}

// ListByProduct returns every rating of a product.
func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]Rating, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// Get returns one rating.
func (s *Service) Get(ctx context.Context, id int64) (*Rating, error) {
	return s.repo.GetByID(ctx, id)
}

// Update changes the score or comment of the user's own rating.
func (s *Service) Update(ctx context.Context, userID, id int64, score *int, comment *string) (*Rating, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if score != nil {
		if err := checkScore(*score); err != nil {
			return nil, err
		}
		r.Score = *score
	}
	if comment != nil {
		r.Comment = *comment
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, errors.Wrapf(err, "update rating %d", id)
	}
	return r, nil
}

// Delete removes the user's own rating.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, userID, id int64) (*Rating, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrForbidden
	}
	return r, nil
}

func checkScore(score int) error {
	if score < 1 || score > 5 {
		return domain.Invalid("rating must be between 1 and 5")
	}
	return nil
}

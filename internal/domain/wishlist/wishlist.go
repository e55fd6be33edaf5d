// Package wishlist keeps the products a user wants to buy later.
package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
)

var (
	// ErrAlreadyExists is returned when the product is already wished for.
	ErrAlreadyExists = errors.New("already in wishlist")
	// ErrNotFound is returned when removing a product that is not listed.
	ErrNotFound = errors.New("product not in wishlist")
)

// Item is one wishlist entry with its product.
type Item struct {
	Product product.Product
	AddedAt time.Time
}

// Repository persists wishlists. Add returns ErrAlreadyExists on a duplicate.
type Repository interface {
	Add(ctx context.Context, userID, productID int64) error
	List(ctx context.Context, userID int64) ([]Item, error)
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}

// ProductFinder is the product lookup a wishlist needs.
type ProductFinder interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Service implements wishlist use cases.
type Service struct {
	repo     Repository
	products ProductFinder
}

// NewService creates a wishlist Service.
func NewService(repo Repository, products ProductFinder) *Service {
	return &Service{repo: repo, products: products}
}

// Add puts an existing product on the user's wishlist.
func (s *Service) Add(ctx context.Context, userID, productID int64) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	return s.repo.Add(ctx, userID, productID)
}

// List returns the user's wishlist, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Item, error) {
	return s.repo.List(ctx, userID)
}

// Remove drops one product from the wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return s.repo.Remove(ctx, userID, productID)
}

// Clear empties the wishlist.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.repo.Clear(ctx, userID)
}

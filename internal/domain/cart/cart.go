// Package cart manages the per-user shopping cart.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
)

// ErrNotFound is returned for a missing cart line or one owned by another user.
var ErrNotFound = errors.New("cart item not found")

// Line is one product in a user's cart.
type Line struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	Product   product.Product
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists cart lines. Lines are scoped by user id.
type Repository interface {
	// Add inserts a line or increments the quantity of the existing one and
	// refreshes its update time.
	Add(ctx context.Context, userID, productID int64, quantity int) (*Line, error)
	List(ctx context.Context, userID int64) ([]Line, error)
	SetQuantity(ctx context.Context, userID, lineID int64, quantity int) error
	Remove(ctx context.Context, userID, lineID int64) error
	Clear(ctx context.Context, userID int64) error
}

// ProductFinder is the product lookup a cart needs.
type ProductFinder interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Service implements cart use cases.
type Service struct {
	repo     Repository
	products ProductFinder
}

// NewService creates a cart Service.
func NewService(repo Repository, products ProductFinder) *Service {
	return &Service{repo: repo, products: products}
}

// Add puts quantity units of a product into the cart.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, domain.Invalid("quantity must be greater than 0")
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Add(ctx, userID, productID, quantity)
}

// List returns the cart with product data.
func (s *Service) List(ctx context.Context, userID int64) ([]Line, error) {
	return s.repo.List(ctx, userID)
}

// SetQuantity replaces the quantity of one line.
func (s *Service) SetQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	if quantity <= 0 {
		return domain.Invalid("quantity must be greater than 0")
	}
	return s.repo.SetQuantity(ctx, userID, lineID, quantity)
}

// Remove drops one line.
func (s *Service) Remove(ctx context.Context, userID, lineID int64) error {
	return s.repo.Remove(ctx, userID, lineID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.repo.Clear(ctx, userID)
}

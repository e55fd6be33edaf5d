// Package discount manages product-level price reductions.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// ErrNotFound is returned when a discount does not exist.
var ErrNotFound = errors.New("discount not found")

var hundred = decimal.NewFromInt(100)

// Discount belongs to exactly one product.
type Discount struct {
	pricing.Discount
	ProductID int64
	CreatedAt time.Time
}

// Input carries the writable discount fields.
type Input struct {
	ProductID int64
	Type      string
	Value     decimal.Decimal
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// Repository persists discounts.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Discount, error)
	List(ctx context.Context) ([]Discount, error)
}

// ProductFinder is the product lookup a discount needs.
type ProductFinder interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Service implements discount use cases.
type Service struct {
	repo     Repository
	products ProductFinder
}

// NewService creates a discount Service.
func NewService(repo Repository, products ProductFinder) *Service {
	return &Service{repo: repo, products: products}
}

// Create validates in and attaches a discount to an existing product.
func (s *Service) Create(ctx context.Context, in Input) (*Discount, error) {
	d := &Discount{}
	if err := s.fill(ctx, d, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "create discount")
	}
	return d, nil
}

// Update replaces every field of an existing discount.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Discount, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ProductID == 0 {
		in.ProductID = d.ProductID
	}
	if err := s.fill(ctx, d, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, errors.Wrapf(err, "update discount %d", id)
	}
	return d, nil
}

// Delete removes a discount.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns one discount.
func (s *Service) Get(ctx context.Context, id int64) (*Discount, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every discount.
func (s *Service) List(ctx context.Context) ([]Discount, error) {
	return s.repo.List(ctx)
}

func (s *Service) fill(ctx context.Context, d *Discount, in Input) error {
	kind, err := pricing.ParseKind(in.Type)
	if err != nil {
		return domain.Invalid("%s", err.Error())
	}
	if !in.Value.IsPositive() {
		return domain.Invalid("value must be positive")
	}
	if kind == pricing.Percentage && in.Value.GreaterThan(hundred) {
		return domain.Invalid("percentage must not exceed 100")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return domain.Invalid("endsAt must not be before startsAt")
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return err
	}

	d.ProductID = in.ProductID
	d.Kind = kind
	d.Value = in.Value
	d.StartsAt = in.StartsAt
	d.EndsAt = in.EndsAt
	return nil
}

package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// Input carries the writable product fields. Nil pointers leave a field
// unchanged on update; on create Name and Price are required.
type Input struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *int64
	IsFeatured  *bool
	Tags        []string
	Images      []Image
}

// ListQuery is the client facing listing request.
type ListQuery struct {
	Page       int
	Limit      int
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Featured   *bool
	SortBy     string
	Order      string
}

// Service implements catalog use cases on top of a Repository.
type Service struct {
	repo    Repository
	pricing *pricing.Resolver
}

// NewService creates a product Service.
func NewService(repo Repository, resolver *pricing.Resolver) *Service {
	return &Service{repo: repo, pricing: resolver}
}

// Create validates the input and stores a new product.
func (s *Service) Create(ctx context.Context, in Input) (*View, error) {
	if in.Name == nil || *in.Name == "" {
		return nil, domain.Invalid("name is required")
	}
	if in.Price == nil {
		return nil, domain.Invalid("price is required")
	}
	p := &Product{}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	v := s.View(*p)
	return &v, nil
}

// Update applies a partial update. Tags and images are replaced when given.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*View, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update product %d", id)
	}
	v := s.View(*p)
	return &v, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns one product view.
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.View(*p)
	return &v, nil
}

// List returns a filtered, sorted page of product views.
func (s *Service) List(ctx context.Context, q ListQuery) ([]View, error) {
	f := ListFilter{
		CategoryID: q.CategoryID,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Featured:   q.Featured,
		SortBy:     SortCreatedAt,
		Descending: q.Order != "asc",
	}
	f.Offset, f.Limit = domain.Page(q.Page, q.Limit, 10, 100)

	switch SortField(q.SortBy) {
	case "", SortCreatedAt:
	case SortPrice, SortName, SortRating:
		f.SortBy = SortField(q.SortBy)
	default:
		return nil, domain.Invalid("sortBy must be one of price, createdAt, name, rating")
	}
	if q.Order != "" && q.Order != "asc" && q.Order != "desc" {
		return nil, domain.Invalid("order must be asc or desc")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, domain.Invalid("minPrice must not exceed maxPrice")
	}

	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	views := make([]View, len(products))
	for i, p := range products {
		views[i] = s.View(p)
	}
	return views, nil
}

// SubscribeBackInStock registers interest in a product's restock.
func (s *Service) SubscribeBackInStock(ctx context.Context, userID, productID int64) error {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return err
	}
	return s.repo.Subscribe(ctx, userID, productID)
}

// UnsubscribeBackInStock removes a restock subscription.
func (s *Service) UnsubscribeBackInStock(ctx context.Context, userID, productID int64) error {
	return s.repo.Unsubscribe(ctx, userID, productID)
}

// View resolves the price view of p.
func (s *Service) View(p Product) View {
	q := s.pricing.Resolve(p.Price, p.Discounts, p.Ratings)
	return View{
		Product:         p,
		DiscountedPrice: q.DiscountedPrice,
		AverageRating:   q.AverageRating,
	}
}

func apply(p *Product, in Input) error {
	if in.Name != nil {
		if *in.Name == "" {
			return domain.Invalid("name must not be empty")
		}
		p.Name = *in.Name
		p.Slug = domain.Slugify(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return domain.Invalid("price must not be negative")
		}
		p.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return domain.Invalid("stock must not be negative")
		}
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.Tags != nil {
		p.Tags = in.Tags
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	return nil
}

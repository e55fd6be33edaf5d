package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrAlreadySubscribed is returned on a duplicate back-in-stock subscription.
	ErrAlreadySubscribed = errors.New("already subscribed for this product")
	// ErrNoSubscription is returned when unsubscribing without a subscription.
	ErrNoSubscription = errors.New("no subscription found for this product")
	// ErrInUse is returned when deleting a product that orders or returns
	// still reference.
	ErrInUse = errors.New("product is referenced by orders")
)

// Product is a catalog item together with the rows the price view needs.
type Product struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *int64
	IsFeatured  bool
	Tags        []string
	Images      []Image
	Discounts   []pricing.Discount
	Ratings     pricing.RatingSummary
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image is a product picture.
type Image struct {
	URL       string
	IsPrimary bool
}

// View is a product with its resolved price and average rating.
type View struct {
	Product
	DiscountedPrice decimal.Decimal
	AverageRating   float64
}

// SortField selects the list ordering.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortPrice     SortField = "price"
	SortName      SortField = "name"
	SortRating    SortField = "rating"
)

// ListFilter narrows and orders a product listing.
type ListFilter struct {
	Offset     int
	Limit      int
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Featured   *bool
	SortBy     SortField
	Descending bool
}

// Repository defines persistence for the product catalog. Reads return
// products with tags, images, discounts and rating summary populated.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, error)
	Subscribe(ctx context.Context, userID, productID int64) error
	Unsubscribe(ctx context.Context, userID, productID int64) error
}

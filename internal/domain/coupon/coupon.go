package coupon

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// Rejection reasons, one per validation step. The text is returned to clients.
var (
	// ErrInvalidCoupon is returned when no coupon matches the code.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrNotActive is returned before the coupon's start time.
	ErrNotActive = errors.New("coupon not active yet")
	// ErrExpired is returned after the coupon's end time.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when every allowed redemption is used.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrNotAssigned is returned when the coupon is reserved for other users.
	ErrNotAssigned = errors.New("coupon not assigned to this user")
	// ErrNotApplicable is returned when no cart product qualifies.
	ErrNotApplicable = errors.New("coupon not applicable for products in cart")
)

// Coupon is a global discount code with optional restrictions.
type Coupon struct {
	ID         int64
	Code       string
	Kind       pricing.Kind
	Value      decimal.Decimal
	UsageLimit *int
	UsedCount  int
	// ProductID restricts the coupon to carts containing this product.
	ProductID *int64
	// AssignedUsers, when non-empty, lists the only users allowed to redeem.
	AssignedUsers []int64
	// Products, when non-empty, lists products of which at least one must be in the cart.
	Products []int64
	pricing.Window
}

// Exhausted reports whether the usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// Cart is the part of a checkout the validator looks at.
type Cart struct {
	UserID     int64
	ProductIDs []int64
	Subtotal   decimal.Decimal
}

// Redemption is an approved coupon application. The usage counter is not yet
// incremented; that happens in the order transaction.
type Redemption struct {
	CouponID int64
	Code     string
	Amount   decimal.Decimal
}

// Repository provides coupon lookup and bulk upserts.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Upsert(ctx context.Context, c *Coupon) error
}

func containsAny(haystack, needles []int64) bool {
	for _, n := range needles {
		if slices.Contains(haystack, n) {
			return true
		}
	}
	return false
}

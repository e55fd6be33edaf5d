package coupon

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// Validator approves or rejects a coupon for a cart.
type Validator interface {
	Validate(ctx context.Context, code string, cart Cart) (*Redemption, error)
}

// RepoValidator implements Validator on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the coupon and runs Check against the cart. It has no
// side effects: redemption is recorded by the caller.
func (v *RepoValidator) Validate(ctx context.Context, code string, cart Cart) (*Redemption, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := Check(c, cart, v.now()); err != nil {
		return nil, err
	}

	return &Redemption{
		CouponID: c.ID,
		Code:     c.Code,
		Amount:   pricing.CouponAmount(c.Kind, c.Value, cart.Subtotal),
	}, nil
}

// Check applies the eligibility rules in order and returns the first failure.
func Check(c *Coupon, cart Cart, now time.Time) error {
	switch {
	case c == nil:
		return ErrInvalidCoupon
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return ErrNotActive
	case c.EndsAt != nil && now.After(*c.EndsAt):
		return ErrExpired
	case c.Exhausted():
		return ErrUsageLimitReached
	case len(c.AssignedUsers) > 0 && !slices.Contains(c.AssignedUsers, cart.UserID):
		return ErrNotAssigned
	case c.ProductID != nil && !slices.Contains(cart.ProductIDs, *c.ProductID):
		return ErrNotApplicable
	case len(c.Products) > 0 && !containsAny(c.Products, cart.ProductIDs):
		return ErrNotApplicable
	}
	return nil
}

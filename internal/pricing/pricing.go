// Package pricing resolves effective product prices from discount rows and
// computes coupon discount amounts.
package pricing

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies, shared by product
// discounts and coupons.
type Kind string

const (
	// Percentage reduces the price by Value percent.
	Percentage Kind = "percentage"
	// Fixed reduces the price by a flat Value.
	Fixed Kind = "fixed"
)

// ErrUnknownKind is returned by ParseKind for unsupported discount types.
var ErrUnknownKind = errors.New("discount type must be fixed or percentage")

var hundred = decimal.NewFromInt(100)

// ParseKind validates a discount type coming from user input.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Percentage, Fixed:
		return k, nil
	default:
		return "", ErrUnknownKind
	}
}

// Window is an optional validity interval. A nil bound is open.
type Window struct {
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Contains reports whether t lies inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if w.StartsAt != nil && t.Before(*w.StartsAt) {
		return false
	}
	if w.EndsAt != nil && t.After(*w.EndsAt) {
		return false
	}
	return true
}

// Discount is a product-level price reduction.
type Discount struct {
	ID    int64
	Kind  Kind
	Value decimal.Decimal
	Window
}

// ActiveDiscount picks the discount that applies at now. When several
// discounts are active the one with the lowest ID wins, independent of the
// order the rows were fetched in.
func ActiveDiscount(discounts []Discount, now time.Time) (Discount, bool) {
	var (
		best  Discount
		found bool
	)
	for _, d := range discounts {
		if !d.Contains(now) {
			continue
		}
		if !found || d.ID < best.ID {
			best = d
			found = true
		}
	}
	return best, found
}

// Apply returns price reduced by d, clamped at zero and rounded to cents.
func Apply(price decimal.Decimal, d Discount) decimal.Decimal {
	var out decimal.Decimal
	switch d.Kind {
	case Percentage:
		out = price.Mul(hundred.Sub(d.Value)).Div(hundred)
	case Fixed:
		out = price.Sub(d.Value)
	default:
		out = price
	}
	return floorAtZero(out).Round(2)
}

// CouponAmount computes the amount a coupon takes off subtotal. Percentage
// coupons take value percent of the subtotal; fixed coupons take the flat
// value once per order. The result never exceeds the subtotal.
func CouponAmount(kind Kind, value, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch kind {
	case Percentage:
		amount = subtotal.Mul(value).Div(hundred)
	case Fixed:
		amount = value
	}
	amount = decimal.Min(floorAtZero(amount), subtotal)
	return amount.Round(2)
}

// RatingSummary aggregates the rating rows of one product.
type RatingSummary struct {
	Count int64
	Sum   int64
}

// Average returns the arithmetic mean, or 0 when there are no ratings.
func (r RatingSummary) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// Summarize builds a RatingSummary from raw rating values.
func Summarize(values []int) RatingSummary {
	var s RatingSummary
	for _, v := range values {
		s.Count++
		s.Sum += int64(v)
	}
	return s
}

// Quote is the resolved price view of a product.
type Quote struct {
	DiscountedPrice decimal.Decimal
	AverageRating   float64
	Applied         *Discount
}

// Resolver computes quotes against an injectable clock.
type Resolver struct {
	now func() time.Time
}

// NewResolver returns a Resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverAt returns a Resolver whose clock is fixed by now.
func NewResolverAt(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Resolve returns the effective price and average rating of a product.
func (r *Resolver) Resolve(price decimal.Decimal, discounts []Discount, ratings RatingSummary) Quote {
	q := Quote{
		DiscountedPrice: price,
		AverageRating:   ratings.Average(),
	}
	if d, ok := ActiveDiscount(discounts, r.now()); ok {
		q.DiscountedPrice = Apply(price, d)
		q.Applied = &d
	}
	return q
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		price decimal.Decimal
		disc  Discount
		want  decimal.Decimal
	}{
		{
			name:  "percentage",
			price: d("200"),
			disc:  Discount{Kind: Percentage, Value: d("15")},
			want:  d("170"),
		},
		{
			name:  "percentage rounds to cents",
			price: d("9.99"),
			disc:  Discount{Kind: Percentage, Value: d("33")},
			want:  d("6.69"),
		},
		{
			name:  "fixed",
			price: d("120.50"),
			disc:  Discount{Kind: Fixed, Value: d("20.50")},
			want:  d("100"),
		},
		{
			name:  "fixed larger than price clamps to zero",
			price: d("10"),
			disc:  Discount{Kind: Fixed, Value: d("25")},
			want:  decimal.Zero,
		},
		{
			name:  "percentage over hundred clamps to zero",
			price: d("10"),
			disc:  Discount{Kind: Percentage, Value: d("150")},
			want:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.price, tt.disc)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
			assert.True(t, got.LessThanOrEqual(tt.price))
		})
	}
}

func TestActiveDiscount(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	expired := Discount{ID: 1, Kind: Fixed, Value: d("5"), Window: Window{EndsAt: ptr(now.Add(-time.Hour))}}
	future := Discount{ID: 2, Kind: Fixed, Value: d("5"), Window: Window{StartsAt: ptr(now.Add(time.Hour))}}
	open := Discount{ID: 7, Kind: Percentage, Value: d("10")}
	bounded := Discount{ID: 4, Kind: Fixed, Value: d("3"), Window: Window{
		StartsAt: ptr(now.Add(-time.Hour)),
		EndsAt:   ptr(now.Add(time.Hour)),
	}}
	edge := Discount{ID: 9, Kind: Fixed, Value: d("1"), Window: Window{StartsAt: ptr(now), EndsAt: ptr(now)}}

	t.Run("none active", func(t *testing.T) {
		_, ok := ActiveDiscount([]Discount{expired, future}, now)
		assert.False(t, ok)
	})

	t.Run("lowest id wins regardless of order", func(t *testing.T) {
		got, ok := ActiveDiscount([]Discount{open, expired, bounded, future}, now)
		require.True(t, ok)
		assert.Equal(t, int64(4), got.ID)

		got, ok = ActiveDiscount([]Discount{bounded, open}, now)
		require.True(t, ok)
		assert.Equal(t, int64(4), got.ID)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		got, ok := ActiveDiscount([]Discount{edge}, now)
		require.True(t, ok)
		assert.Equal(t, int64(9), got.ID)
	})
}

func TestResolver_Resolve(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := NewResolverAt(func() time.Time { return now })

	t.Run("no discounts and no ratings", func(t *testing.T) {
		q := r.Resolve(d("50"), nil, RatingSummary{})
		assert.True(t, d("50").Equal(q.DiscountedPrice))
		assert.Equal(t, 0.0, q.AverageRating)
		assert.Nil(t, q.Applied)
	})

	t.Run("active discount and ratings", func(t *testing.T) {
		q := r.Resolve(d("80"), []Discount{{ID: 1, Kind: Percentage, Value: d("25")}}, Summarize([]int{5, 4, 3}))
		assert.True(t, d("60").Equal(q.DiscountedPrice))
		assert.InDelta(t, 4.0, q.AverageRating, 1e-9)
		require.NotNil(t, q.Applied)
		assert.Equal(t, int64(1), q.Applied.ID)
	})
}

func TestCouponAmount(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		value    decimal.Decimal
		subtotal decimal.Decimal
		want     decimal.Decimal
	}{
		{name: "percentage of subtotal", kind: Percentage, value: d("10"), subtotal: d("250"), want: d("25")},
		{name: "fixed is flat per order", kind: Fixed, value: d("30"), subtotal: d("250"), want: d("30")},
		{name: "fixed capped at subtotal", kind: Fixed, value: d("300"), subtotal: d("250"), want: d("250")},
		{name: "unknown kind is zero", kind: Kind("bogus"), value: d("30"), subtotal: d("250"), want: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CouponAmount(tt.kind, tt.value, tt.subtotal)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("percentage")
	require.NoError(t, err)
	assert.Equal(t, Percentage, k)

	_, err = ParseKind("free_lowest")
	require.ErrorIs(t, err, ErrUnknownKind)
}

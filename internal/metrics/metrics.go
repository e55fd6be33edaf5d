// Package metrics records business counters on an OpenTelemetry meter.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MabsRahman/bamboo-shop-api"

// Metrics holds the shop counters.
type Metrics struct {
	ordersPlaced      metric.Int64Counter
	revenue           metric.Float64Counter
	couponRedemptions metric.Int64Counter
	paymentCallbacks  metric.Int64Counter
	remindersSent     metric.Int64Counter
	returnsRequested  metric.Int64Counter
}

// New registers the counters on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var (
		m   Metrics
		err error
	)
	if m.ordersPlaced, err = meter.Int64Counter("shop.orders.placed",
		metric.WithDescription("Orders committed"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if m.revenue, err = meter.Float64Counter("shop.orders.revenue",
		metric.WithDescription("Final amount of committed orders"),
		metric.WithUnit("BDT"),
	); err != nil {
		return nil, errors.Wrap(err, "revenue counter")
	}
	if m.couponRedemptions, err = meter.Int64Counter("shop.coupons.redeemed",
		metric.WithDescription("Coupons redeemed by committed orders"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, errors.Wrap(err, "coupon counter")
	}
	if m.paymentCallbacks, err = meter.Int64Counter("shop.payments.callbacks",
		metric.WithDescription("Payment provider callbacks applied"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, errors.Wrap(err, "callback counter")
	}
	if m.remindersSent, err = meter.Int64Counter("shop.carts.reminders",
		metric.WithDescription("Abandoned cart reminder emails sent"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, errors.Wrap(err, "reminder counter")
	}
	if m.returnsRequested, err = meter.Int64Counter("shop.returns.requested",
		metric.WithDescription("Return requests created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, errors.Wrap(err, "return counter")
	}
	return &m, nil
}

// OrderPlaced counts a committed order and its final amount.
func (m *Metrics) OrderPlaced(ctx context.Context, method string, amount float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("payment_method", method))
	m.ordersPlaced.Add(ctx, 1, attrs)
	m.revenue.Add(ctx, amount, attrs)
}

// CouponRedeemed counts one coupon use.
func (m *Metrics) CouponRedeemed(ctx context.Context) {
	if m == nil {
		return
	}
	m.couponRedemptions.Add(ctx, 1)
}

// PaymentCallback counts an applied provider callback.
func (m *Metrics) PaymentCallback(ctx context.Context, provider, status string) {
	if m == nil {
		return
	}
	m.paymentCallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RemindersSent counts reminder emails.
func (m *Metrics) RemindersSent(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.remindersSent.Add(ctx, int64(n))
}

// ReturnRequested counts a created return request.
func (m *Metrics) ReturnRequested(ctx context.Context) {
	if m == nil {
		return
	}
	m.returnsRequested.Add(ctx, 1)
}

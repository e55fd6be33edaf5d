package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.OrderPlaced(ctx, "COD", 10)
		m.CouponRedeemed(ctx)
		m.PaymentCallback(ctx, "bkash", "success")
		m.RemindersSent(ctx, 2)
		m.ReturnRequested(ctx)
	})
}

func TestNew(t *testing.T) {
	m, err := New(noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.OrderPlaced(context.Background(), "BKASH", 120.5)
	})
}

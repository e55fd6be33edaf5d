package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// --- Mock implementations ---

type mockAddresses map[int64]bool

func (m mockAddresses) Exists(_ context.Context, userID int64) (bool, error) {
	return m[userID], nil
}

type mockProducts struct {
	byID map[int64]product.Product
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockCoupons validates one code with real Check rules against an in-memory coupon.
type mockCoupons struct {
	coupon *coupon.Coupon
	now    time.Time
}

func (m *mockCoupons) Validate(_ context.Context, code string, cart coupon.Cart) (*coupon.Redemption, error) {
	if m.coupon == nil || m.coupon.Code != code {
		return nil, coupon.ErrInvalidCoupon
	}
	if err := coupon.Check(m.coupon, cart, m.now); err != nil {
		return nil, err
	}
	return &coupon.Redemption{
		CouponID: m.coupon.ID,
		Code:     code,
		Amount:   pricing.CouponAmount(m.coupon.Kind, m.coupon.Value, cart.Subtotal),
	}, nil
}

// store is a tiny transactional database: InTx works on a copy and swaps it
// in only when fn succeeds.
type state struct {
	stock     map[int64]int
	couponUse map[int64]int
	orders    map[int64]*Order
	payments  map[int64]*payment.Transaction
}

func (s state) clone() state {
	c := state{
		stock:     map[int64]int{},
		couponUse: map[int64]int{},
		orders:    map[int64]*Order{},
		payments:  map[int64]*payment.Transaction{},
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.couponUse {
		c.couponUse[k] = v
	}
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range s.payments {
		p := *v
		c.payments[k] = &p
	}
	return c
}

type mockOrderRepo struct {
	state
	couponLimit map[int64]int
	nextID      int64
	createErr   error
	failed      []int64
	attached    map[int64]string
}

type mockTx struct {
	repo *mockOrderRepo
	st   state
}

func (t *mockTx) RedeemCoupon(_ context.Context, id int64) error {
	if limit, ok := t.repo.couponLimit[id]; ok && t.st.couponUse[id] >= limit {
		return coupon.ErrUsageLimitReached
	}
	t.st.couponUse[id]++
	return nil
}

func (t *mockTx) CreateOrder(_ context.Context, o *Order) error {
	if t.repo.createErr != nil {
		return t.repo.createErr
	}
	t.repo.nextID++
	o.ID = t.repo.nextID
	cp := *o
	t.st.orders[o.ID] = &cp
	return nil
}

func (t *mockTx) DecrementStock(_ context.Context, productID int64, qty int) (bool, error) {
	if t.st.stock[productID] < qty {
		return false, nil
	}
	t.st.stock[productID] -= qty
	return true, nil
}

func (t *mockTx) CreatePayment(_ context.Context, p *payment.Transaction) error {
	t.repo.nextID++
	p.ID = t.repo.nextID
	cp := *p
	t.st.payments[p.ID] = &cp
	return nil
}

func (m *mockOrderRepo) InTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx := &mockTx{repo: m, st: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

func (m *mockOrderRepo) AttachPayment(_ context.Context, txnID int64, ref string) error {
	m.attached[txnID] = ref
	return nil
}

func (m *mockOrderRepo) FailPayment(_ context.Context, txnID, orderID int64) error {
	m.failed = append(m.failed, orderID)
	m.payments[txnID].Status = payment.StatusFailed
	m.orders[orderID].Status = StatusFailed
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(context.Context, ListFilter) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, st Status, deliveredAt *time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = st
	o.DeliveredAt = deliveredAt
	return nil
}

type mockGateway struct {
	calls int
	err   error
}

func (g *mockGateway) CreatePayment(_ context.Context, orderID int64, _ decimal.Decimal) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "PAY-" + decimal.NewFromInt(orderID).String(), nil
}

type mockUsers struct {
	err error
}

func (m mockUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &user.User{ID: id, Name: "Rahim", Email: "rahim@example.com"}, nil
}

type mockNotifier struct {
	sent []int64
	err  error
}

func (n *mockNotifier) SendOrderConfirmation(_ context.Context, _, _ string, o *Order) error {
	n.sent = append(n.sent, o.ID)
	return n.err
}

// --- Helpers ---

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	orders   *mockOrderRepo
	bkash    *mockGateway
	coupons  *mockCoupons
	notifier *mockNotifier
	users    *mockUsers
}

func newFixture() *fixture {
	tea := product.Product{ID: 1, Name: "Bamboo Tea", Price: decimal.NewFromInt(100), Stock: 5}
	mat := product.Product{ID: 2, Name: "Bamboo Mat", Price: decimal.NewFromInt(200), Stock: 1,
		Discounts: []pricing.Discount{{ID: 1, Kind: pricing.Percentage, Value: decimal.NewFromInt(10)}}}

	f := &fixture{
		orders: &mockOrderRepo{
			state: state{
				stock:     map[int64]int{1: 5, 2: 1},
				couponUse: map[int64]int{},
				orders:    map[int64]*Order{},
				payments:  map[int64]*payment.Transaction{},
			},
			couponLimit: map[int64]int{},
			attached:    map[int64]string{},
		},
		bkash:    &mockGateway{},
		coupons:  &mockCoupons{now: testNow},
		notifier: &mockNotifier{},
		users:    &mockUsers{},
	}
	f.svc = NewService(Deps{
		Addresses: mockAddresses{7: true},
		Products:  &mockProducts{byID: map[int64]product.Product{1: tea, 2: mat}},
		Pricing:   pricing.NewResolverAt(func() time.Time { return testNow }),
		Coupons:   f.coupons,
		Orders:    f.orders,
		Gateways:  map[payment.Method]payment.Gateway{payment.MethodBkash: f.bkash},
		Users:     f.users,
		Notifier:  f.notifier,
	})
	f.svc.now = func() time.Time { return testNow }
	return f
}

func req(method string, items ...LineRequest) PlaceOrderRequest {
	return PlaceOrderRequest{UserID: 7, Items: items, PaymentMethod: method}
}

// --- Tests ---

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     PlaceOrderRequest
		wantErr error
	}{
		{"empty items", req("COD"), ErrEmptyItems},
		{"bad method", req("CARD", LineRequest{1, 1}), payment.ErrInvalidMethod},
		{"zero quantity", req("COD", LineRequest{1, 0}), ErrInvalidQuantity},
		{"unknown product", req("COD", LineRequest{1, 1}, LineRequest{99, 1}), ErrInvalidProducts},
		{"duplicate product", req("COD", LineRequest{1, 1}, LineRequest{1, 1}), ErrInvalidProducts},
		{"no address", PlaceOrderRequest{UserID: 8, Items: []LineRequest{{1, 1}}, PaymentMethod: "COD"}, ErrNoAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.PlaceOrder(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	_, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}, LineRequest{2, 2}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Bamboo Mat", stockErr.ProductName)
	assert.Empty(t, f.orders.orders, "no partial order")
	assert.Equal(t, 5, f.orders.stock[1], "no partial stock change")
}

func TestPlaceOrder_StockRaceRollsBack(t *testing.T) {
	f := newFixture()
	// Another checkout took the last mat after products were read.
	f.orders.stock[2] = 0

	_, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 2}, LineRequest{2, 1}))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Bamboo Mat", stockErr.ProductName)
	assert.Empty(t, f.orders.orders)
	assert.Equal(t, 5, f.orders.stock[1])
}

func TestPlaceOrder_COD(t *testing.T) {
	f := newFixture()
	o, err := f.svc.PlaceOrder(context.Background(), req("cod", LineRequest{1, 2}, LineRequest{2, 1}))
	require.NoError(t, err)

	// 2 x 100 + 1 x (200 - 10%) = 380
	assert.True(t, decimal.NewFromInt(380).Equal(o.TotalAmount), o.TotalAmount.String())
	assert.True(t, o.DiscountTotal.IsZero())
	assert.True(t, decimal.NewFromInt(380).Equal(o.FinalAmount))
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.NewFromInt(180).Equal(o.Items[1].Price))

	assert.Equal(t, StatusPending, o.Status)
	require.NotNil(t, o.Payment)
	assert.Equal(t, payment.StatusSuccess, o.Payment.Status)
	assert.Equal(t, o.ID, o.Payment.OrderID)
	assert.Zero(t, f.bkash.calls)

	assert.Equal(t, 3, f.orders.stock[1])
	assert.Equal(t, 0, f.orders.stock[2])
	assert.Equal(t, []int64{o.ID}, f.notifier.sent)
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	f := newFixture()
	limit := 1
	f.coupons.coupon = &coupon.Coupon{ID: 3, Code: "EID10", Kind: pricing.Percentage, Value: decimal.NewFromInt(10), UsageLimit: &limit}
	f.orders.couponLimit[3] = 1

	r := req("COD", LineRequest{1, 1})
	r.CouponCode = "EID10"
	o, err := f.svc.PlaceOrder(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(o.DiscountTotal))
	assert.True(t, decimal.NewFromInt(90).Equal(o.FinalAmount))
	require.NotNil(t, o.CouponID)
	assert.Equal(t, int64(3), *o.CouponID)
	assert.Equal(t, 1, f.orders.couponUse[3], "redeemed exactly once")

	// The validator still sees the stale count; the conditional increment
	// in the transaction stops the second redemption.
	_, err = f.svc.PlaceOrder(context.Background(), r)
	assert.ErrorIs(t, err, coupon.ErrUsageLimitReached)
	assert.Equal(t, 1, f.orders.couponUse[3])
	assert.Len(t, f.orders.orders, 1)
	assert.Equal(t, 4, f.orders.stock[1])
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	f := newFixture()
	r := req("COD", LineRequest{1, 1})
	r.CouponCode = "NOPE"
	_, err := f.svc.PlaceOrder(context.Background(), r)
	assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
	assert.Empty(t, f.orders.orders)
}

func TestPlaceOrder_FixedCouponFlooredAtZero(t *testing.T) {
	f := newFixture()
	f.coupons.coupon = &coupon.Coupon{ID: 4, Code: "BIG", Kind: pricing.Fixed, Value: decimal.NewFromInt(1000)}

	r := req("COD", LineRequest{1, 1})
	r.CouponCode = "BIG"
	o, err := f.svc.PlaceOrder(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, o.FinalAmount.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(o.DiscountTotal))
}

func TestPlaceOrder_OnlinePayment(t *testing.T) {
	f := newFixture()
	o, err := f.svc.PlaceOrder(context.Background(), req("BKASH", LineRequest{1, 1}))
	require.NoError(t, err)

	assert.Equal(t, 1, f.bkash.calls)
	assert.Equal(t, payment.StatusPending, o.Payment.Status)
	require.NotNil(t, o.Payment.ProviderTxnID)
	assert.Equal(t, *o.Payment.ProviderTxnID, f.orders.attached[o.Payment.ID])
}

func TestPlaceOrder_PaymentProviderFailure(t *testing.T) {
	f := newFixture()
	f.bkash.err = errors.New("token grant: 503")

	_, err := f.svc.PlaceOrder(context.Background(), req("BKASH", LineRequest{1, 1}))
	var perr *PaymentProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, payment.MethodBkash, perr.Method)
	require.Len(t, f.orders.failed, 1)
	assert.Equal(t, StatusFailed, f.orders.orders[perr.OrderID].Status)
	assert.Empty(t, f.notifier.sent)
}

func TestPlaceOrder_NoGateway(t *testing.T) {
	f := newFixture()
	_, err := f.svc.PlaceOrder(context.Background(), req("NAGAD", LineRequest{1, 1}))
	var perr *PaymentProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrNoGateway)
}

func TestPlaceOrder_NotificationFailureSwallowed(t *testing.T) {
	t.Run("send fails", func(t *testing.T) {
		f := newFixture()
		f.notifier.err = errors.New("smtp down")
		o, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}))
		require.NoError(t, err)
		assert.NotZero(t, o.ID)
	})
	t.Run("user lookup fails", func(t *testing.T) {
		f := newFixture()
		f.users.err = user.ErrNotFound
		o, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}))
		require.NoError(t, err)
		assert.NotZero(t, o.ID)
		assert.Empty(t, f.notifier.sent)
	})
}

func TestPlaceOrder_CreateError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("db down")
	_, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}))
	require.Error(t, err)
	assert.Equal(t, 5, f.orders.stock[1])
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	o, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), o.ID, "paid")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err := f.svc.UpdateStatus(context.Background(), o.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.Equal(t, testNow, *got.DeliveredAt)

	_, err = f.svc.UpdateStatus(context.Background(), 999, "processing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_Ownership(t *testing.T) {
	f := newFixture()
	o, err := f.svc.PlaceOrder(context.Background(), req("COD", LineRequest{1, 1}))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), 8, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := f.svc.Get(context.Background(), 7, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestListMine_Sort(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListMine(context.Background(), 7, ListQuery{SortBy: "cheapest"})
	assert.ErrorIs(t, err, ErrInvalidSort)
	_, err = f.svc.ListMine(context.Background(), 7, ListQuery{SortBy: "highest"})
	assert.NoError(t, err)
}

package order

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/metrics"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// LineRequest is one requested product and quantity.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID        int64
	Items         []LineRequest
	CouponCode    string
	PaymentMethod string
}

// ListQuery is the raw input of the order history endpoint.
type ListQuery struct {
	Status string
	SortBy string
	Page   int
	Limit  int
}

// AddressChecker reports whether a user has an address on file.
type AddressChecker interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// ProductLoader fetches products with their discounts.
type ProductLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}

// UserFinder looks up the customer for the confirmation email.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Notifier sends the order confirmation.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, name string, o *Order) error
}

// Deps are the collaborators of the order Service.
type Deps struct {
	Addresses AddressChecker
	Products  ProductLoader
	Pricing   *pricing.Resolver
	Coupons   coupon.Validator
	Orders    Repository
	Gateways  map[payment.Method]payment.Gateway
	Users     UserFinder
	Notifier  Notifier
	Metrics   *metrics.Metrics
}

// Service encapsulates order placement business logic.
type Service struct {
	addresses AddressChecker
	products  ProductLoader
	pricing   *pricing.Resolver
	coupons   coupon.Validator
	orders    Repository
	gateways  map[payment.Method]payment.Gateway
	users     UserFinder
	notifier  Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(d Deps) *Service {
	return &Service{
		addresses: d.Addresses,
		products:  d.Products,
		pricing:   d.Pricing,
		coupons:   d.Coupons,
		orders:    d.Orders,
		gateways:  d.Gateways,
		users:     d.Users,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		now:       time.Now,
	}
}

// PlaceOrder validates the request, prices every line, applies the coupon and
// commits coupon redemption, order, stock and payment in one transaction.
// Online payments are then created with the provider; a provider failure
// marks the order failed and returns a *PaymentProviderError.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(req.Items))
	seen := make(map[int64]struct{}, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, ErrInvalidProducts
		}
		seen[item.ProductID] = struct{}{}
		ids[i] = item.ProductID
	}

	ok, err := s.addresses.Exists(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "check address")
	}
	if !ok {
		return nil, ErrNoAddress
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	if len(fetched) != len(ids) {
		return nil, ErrInvalidProducts
	}
	productMap := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	o := &Order{
		UserID:        req.UserID,
		PaymentMethod: method,
		Status:        StatusPending,
		Items:         make([]Item, 0, len(req.Items)),
	}
	total := decimal.Zero
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, ErrInvalidProducts
		}
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{ProductName: p.Name}
		}
		unit := s.pricing.Resolve(p.Price, p.Discounts, p.Ratings).DiscountedPrice
		sub := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		o.Items = append(o.Items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			Price:       unit,
			Subtotal:    sub,
		})
		total = total.Add(sub)
	}

	// Apply coupon discount when a code is provided.
	var redemption *coupon.Redemption
	discount := decimal.Zero
	if req.CouponCode != "" {
		redemption, err = s.coupons.Validate(ctx, req.CouponCode, coupon.Cart{
			UserID:     req.UserID,
			ProductIDs: ids,
			Subtotal:   total,
		})
		if err != nil {
			return nil, err
		}
		discount = redemption.Amount
		o.CouponID = &redemption.CouponID
	}

	final := total.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	o.TotalAmount = total.Round(2)
	o.DiscountTotal = discount.Round(2)
	o.FinalAmount = final.Round(2)

	txn := &payment.Transaction{
		Amount:   o.FinalAmount,
		Status:   payment.StatusPending,
		Provider: method,
	}
	if method == payment.MethodCOD {
		txn.Status = payment.StatusSuccess
	}

	err = s.orders.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if redemption != nil {
			if err := tx.RedeemCoupon(ctx, redemption.CouponID); err != nil {
				return err
			}
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		// Lock rows in a stable order so concurrent checkouts cannot deadlock.
		lines := append([]Item(nil), o.Items...)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
		for _, l := range lines {
			ok, err := tx.DecrementStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock of product %d", l.ProductID)
			}
			if !ok {
				return &InsufficientStockError{ProductName: l.ProductName}
			}
		}
		txn.OrderID = o.ID
		if err := tx.CreatePayment(ctx, txn); err != nil {
			return errors.Wrap(err, "create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.Payment = txn

	if method.Online() {
		if err := s.startOnlinePayment(ctx, o); err != nil {
			return nil, err
		}
	}

	s.metrics.OrderPlaced(ctx, string(method), o.FinalAmount.InexactFloat64())
	if redemption != nil {
		s.metrics.CouponRedeemed(ctx)
	}
	s.confirm(ctx, o)
	return o, nil
}

func (s *Service) startOnlinePayment(ctx context.Context, o *Order) error {
	txn := o.Payment
	gw, ok := s.gateways[o.PaymentMethod]
	var (
		ref string
		err = ErrNoGateway
	)
	if ok {
		ref, err = gw.CreatePayment(ctx, o.ID, o.FinalAmount)
	}
	if err != nil {
		if ferr := s.orders.FailPayment(ctx, txn.ID, o.ID); ferr != nil {
			zctx.From(ctx).Error("Mark payment failed",
				zap.Int64("order_id", o.ID),
				zap.Error(ferr),
			)
		}
		return &PaymentProviderError{Method: o.PaymentMethod, OrderID: o.ID, Err: err}
	}
	if err := s.orders.AttachPayment(ctx, txn.ID, ref); err != nil {
		return errors.Wrapf(err, "attach payment %s to order %d", ref, o.ID)
	}
	txn.ProviderTxnID = &ref
	return nil
}

// confirm emails the customer. The order is already committed, so failures
// are only logged.
func (s *Service) confirm(ctx context.Context, o *Order) {
	lg := zctx.From(ctx).With(zap.Int64("order_id", o.ID))
	u, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		lg.Warn("Lookup customer for confirmation", zap.Error(err))
		return
	}
	if err := s.notifier.SendOrderConfirmation(ctx, u.Email, u.Name, o); err != nil {
		lg.Warn("Send order confirmation", zap.Error(err))
	}
}

// ListMine returns a page of the user's orders.
func (s *Service) ListMine(ctx context.Context, userID int64, q ListQuery) ([]Order, error) {
	f := ListFilter{UserID: userID, Sort: SortLatest}
	if q.SortBy != "" {
		switch srt := Sort(q.SortBy); srt {
		case SortLatest, SortOldest, SortHighest, SortLowest:
			f.Sort = srt
		default:
			return nil, ErrInvalidSort
		}
	}
	if q.Status != "" {
		f.Status = Status(q.Status)
	}
	f.Offset, f.Limit = domain.Page(q.Page, q.Limit, 10, 100)
	return s.orders.ListByUser(ctx, f)
}

// Get returns an order owned by userID.
func (s *Service) Get(ctx context.Context, userID, id int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus moves an order to processing, delivered or cancelled.
// Delivery stamps the delivery time that starts the return window.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	st := Status(status)
	var deliveredAt *time.Time
	switch st {
	case StatusProcessing, StatusCancelled:
	case StatusDelivered:
		now := s.now()
		deliveredAt = &now
	default:
		return nil, ErrInvalidStatus
	}
	if err := s.orders.UpdateStatus(ctx, id, st, deliveredAt); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

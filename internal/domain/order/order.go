package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
)

// Sentinel errors for order placement and fulfilment.
var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyItems      = errors.New("cart items are required")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNoAddress       = errors.New("please add an address before placing an order")
	ErrInvalidProducts = errors.New("some products are invalid")
	ErrInvalidStatus   = errors.New("status must be one of processing, delivered, cancelled")
	ErrInvalidSort     = errors.New("sortBy must be one of latest, oldest, highest, lowest")
	ErrNoGateway       = errors.New("payment gateway not configured")
)

// InsufficientStockError names the product that cannot cover the request.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// PaymentProviderError wraps a failed call to an online payment gateway. The
// order exists and is marked failed.
type PaymentProviderError struct {
	Method  payment.Method
	OrderID int64
	Err     error
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("%s payment for order %d failed: %v", e.Method, e.OrderID, e.Err)
}

func (e *PaymentProviderError) Unwrap() error {
	return e.Err
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Order is a placed customer order.
type Order struct {
	ID            int64
	UserID        int64
	CouponID      *int64
	Items         []Item
	TotalAmount   decimal.Decimal
	DiscountTotal decimal.Decimal
	FinalAmount   decimal.Decimal
	PaymentMethod payment.Method
	Status        Status
	Payment       *payment.Transaction
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is one order line. Price is the discounted unit price at order time.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	Subtotal    decimal.Decimal
}

// Sort orders a customer's order list.
type Sort string

const (
	SortLatest  Sort = "latest"
	SortOldest  Sort = "oldest"
	SortHighest Sort = "highest"
	SortLowest  Sort = "lowest"
)

// ListFilter selects a customer's orders.
type ListFilter struct {
	UserID int64
	Status Status
	Sort   Sort
	Offset int
	Limit  int
}

// Tx is the set of writes performed atomically when an order is placed.
type Tx interface {
	// RedeemCoupon increments the coupon usage counter unless the limit is
	// reached, in which case it returns coupon.ErrUsageLimitReached.
	RedeemCoupon(ctx context.Context, couponID int64) error
	// CreateOrder inserts o and its items and fills their ids.
	CreateOrder(ctx context.Context, o *Order) error
	// DecrementStock subtracts quantity when enough stock is left and
	// reports whether it did.
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	CreatePayment(ctx context.Context, t *payment.Transaction) error
}

// Repository defines persistence operations for orders.
type Repository interface {
	// InTx runs fn in one database transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// AttachPayment stores the provider payment id on a transaction.
	AttachPayment(ctx context.Context, txnID int64, providerTxnID string) error
	// FailPayment marks the transaction and its order failed and gives back
	// the stock and coupon use the order took.
	FailPayment(ctx context.Context, txnID, orderID int64) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, f ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status, deliveredAt *time.Time) error
}

// Package payment models payment transactions and applies provider callbacks.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidSignature    = errors.New("invalid callback signature")
	ErrProviderMismatch    = errors.New("transaction belongs to another provider")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrInvalidMethod       = errors.New("payment method must be one of COD, BKASH, NAGAD")
	ErrAlreadySettled      = errors.New("payment is already settled")
)

// Method is how the customer pays.
type Method string

const (
	MethodCOD   Method = "COD"
	MethodBkash Method = "BKASH"
	MethodNagad Method = "NAGAD"
)

// ParseMethod validates a payment method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodCOD, MethodBkash, MethodNagad:
		return m, nil
	}
	return "", ErrInvalidMethod
}

// ProviderMethod maps a callback route name like "bkash" to its method.
func ProviderMethod(provider string) (Method, error) {
	switch strings.ToLower(provider) {
	case "bkash":
		return MethodBkash, nil
	case "nagad":
		return MethodNagad, nil
	}
	return "", ErrUnknownProvider
}

// Online reports whether the method goes through a payment gateway.
func (m Method) Online() bool {
	return m == MethodBkash || m == MethodNagad
}

// Status is the state of a payment transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Transaction records the payment of one order.
type Transaction struct {
	ID            int64
	OrderID       int64
	Amount        decimal.Decimal
	Status        Status
	Provider      Method
	ProviderTxnID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Gateway creates a payment with an online provider and returns the
// provider's payment id.
type Gateway interface {
	CreatePayment(ctx context.Context, orderID int64, amount decimal.Decimal) (string, error)
}

// Repository persists transactions.
type Repository interface {
	FindByProviderTxnID(ctx context.Context, providerTxnID string) (*Transaction, error)
	// ApplyCallback moves a pending transaction to status and, for
	// StatusSuccess, marks a pending order paid, both in one database
	// transaction. A transaction that is no longer pending yields
	// ErrAlreadySettled.
	ApplyCallback(ctx context.Context, id int64, status Status) error
}

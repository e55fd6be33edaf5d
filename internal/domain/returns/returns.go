// Package returns handles return requests for delivered orders.
package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
	"github.com/MabsRahman/bamboo-shop-api/internal/metrics"
)

// Window is how long after delivery an order can be returned.
const Window = 15 * 24 * time.Hour

// StatusPending is the status of a new request.
const StatusPending = "PENDING"

var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrNotDelivered  = errors.New("only delivered orders can be returned")
	ErrWindowExpired = errors.New("return period has expired")
)

// ProductNotInOrderError reports a returned product the order never had.
type ProductNotInOrderError struct {
	ProductID int64
}

func (e *ProductNotInOrderError) Error() string {
	return fmt.Sprintf("product %d is not in this order", e.ProductID)
}

// Request is a return request with its items.
type Request struct {
	ID        int64
	UserID    int64
	OrderID   int64
	Status    string
	Items     []Detail
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail is one returned product.
type Detail struct {
	ID        int64
	ProductID int64
	Reason    string
	Images    []string
}

// ItemInput is one product the customer wants to return.
type ItemInput struct {
	ProductID int64
	Reason    string
	Images    []string
}

// Repository persists return requests.
type Repository interface {
	// Create stores r with its details and images in one transaction.
	Create(ctx context.Context, r *Request) error
	ListByUser(ctx context.Context, userID int64) ([]Request, error)
}

// OrderFinder loads an order with its items.
type OrderFinder interface {
	GetByID(ctx context.Context, id int64) (*order.Order, error)
}

// UserFinder looks up the customer for the receipt email.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Notifier acknowledges a return request.
type Notifier interface {
	SendReturnReceived(ctx context.Context, email, name string, r *Request) error
}

// Service implements the return workflow.
type Service struct {
	repo     Repository
	orders   OrderFinder
	users    UserFinder
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a returns Service. m may be nil.
func NewService(repo Repository, orders OrderFinder, users UserFinder, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		orders:   orders,
		users:    users,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Create files a return for a delivered order of the user.
func (s *Service) Create(ctx context.Context, userID, orderID int64, items []ItemInput) (*Request, error) {
	if len(items) == 0 {
		return nil, domain.Invalid("items are required")
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrInvalidOrder
	}
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}
	if o.UserID != userID {
		return nil, ErrInvalidOrder
	}
	if o.Status != order.StatusDelivered {
		return nil, ErrNotDelivered
	}
	delivered := o.UpdatedAt
	if o.DeliveredAt != nil {
		delivered = *o.DeliveredAt
	}
	if s.now().Sub(delivered) > Window {
		return nil, ErrWindowExpired
	}

	ordered := make(map[int64]struct{}, len(o.Items))
	for _, it := range o.Items {
		ordered[it.ProductID] = struct{}{}
	}
	r := &Request{UserID: userID, OrderID: orderID, Status: StatusPending}
	for _, in := range items {
		if _, ok := ordered[in.ProductID]; !ok {
			return nil, &ProductNotInOrderError{ProductID: in.ProductID}
		}
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			return nil, domain.Invalid("reason is required for product %d", in.ProductID)
		}
		r.Items = append(r.Items, Detail{ProductID: in.ProductID, Reason: reason, Images: in.Images})
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create return request")
	}
	s.metrics.ReturnRequested(ctx)

	lg := zctx.From(ctx).With(zap.Int64("return_id", r.ID))
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		lg.Warn("Lookup customer for return receipt", zap.Error(err))
		return r, nil
	}
	if err := s.notifier.SendReturnReceived(ctx, u.Email, u.Name, r); err != nil {
		lg.Warn("Send return receipt", zap.Error(err))
	}
	return r, nil
}

// ListMine returns the user's return requests, newest first.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Request, error) {
	return s.repo.ListByUser(ctx, userID)
}

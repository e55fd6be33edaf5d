// Package address manages a user's shipping addresses.
package address

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

var (
	// ErrNotFound is returned for a missing address or one owned by another user.
	ErrNotFound = errors.New("address not found")
	// ErrDefaultConflict is returned when a concurrent request changed the
	// user's default address first.
	ErrDefaultConflict = errors.New("default address was changed concurrently, please retry")
)

// Address is a shipping address. At most one per user is the default.
type Address struct {
	ID         int64
	UserID     int64
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Input carries the writable address fields.
type Input struct {
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	IsDefault  bool
}

// Repository persists addresses. Every lookup is scoped by user id, so a
// foreign address reads as ErrNotFound. Create, Update and SetDefault clear
// the user's other defaults in the same transaction when the address becomes
// the default.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	SetDefault(ctx context.Context, userID, id int64) error
	Delete(ctx context.Context, userID, id int64) error
	Get(ctx context.Context, userID, id int64) (*Address, error)
	// ListByUser returns the default first, then newest first.
	ListByUser(ctx context.Context, userID int64) ([]Address, error)
	// Exists reports whether the user has at least one address.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Service implements address use cases.
type Service struct {
	repo Repository
}

// NewService creates an address Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the user's addresses.
func (s *Service) List(ctx context.Context, userID int64) ([]Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Create adds an address for the user.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (*Address, error) {
	a := &Address{UserID: userID}
	if err := fill(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return a, nil
}

// Update replaces the fields of one of the user's addresses.
func (s *Service) Update(ctx context.Context, userID, id int64, in Input) (*Address, error) {
	a, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := fill(a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, errors.Wrapf(err, "update address %d", id)
	}
	return a, nil
}

// SetDefault makes one of the user's addresses the default.
func (s *Service) SetDefault(ctx context.Context, userID, id int64) error {
	return s.repo.SetDefault(ctx, userID, id)
}

// Delete removes one of the user's addresses.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

func fill(a *Address, in Input) error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.City = strings.TrimSpace(in.City)
	if in.FullName == "" || in.Phone == "" || in.Line1 == "" || in.City == "" {
		return domain.Invalid("fullName, phone, line1 and city are required")
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = "Bangladesh"
	}
	a.FullName = in.FullName
	a.Phone = in.Phone
	a.Line1 = in.Line1
	a.Line2 = strings.TrimSpace(in.Line2)
	a.City = in.City
	a.PostalCode = strings.TrimSpace(in.PostalCode)
	a.Country = country
	a.IsDefault = in.IsDefault
	return nil
}

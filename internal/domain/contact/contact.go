// Package contact stores messages sent through the contact form.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

// Message is a contact form submission.
type Message struct {
	ID        int64
	Name      string
	Email     string
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Repository persists messages.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	// List returns messages newest first.
	List(ctx context.Context, offset, limit int) ([]Message, error)
}

// Service implements contact use cases.
type Service struct {
	repo Repository
}

// NewService creates a contact Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit validates and stores a message.
func (s *Service) Submit(ctx context.Context, m Message) (*Message, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	if m.Name == "" || m.Email == "" || strings.TrimSpace(m.Body) == "" {
		return nil, domain.Invalid("name, email and message are required")
	}
	if !domain.ValidEmail(m.Email) {
		return nil, domain.Invalid("invalid email address")
	}
	if err := s.repo.Create(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns a page of messages.
func (s *Service) List(ctx context.Context, page, limit int) ([]Message, error) {
	offset, size := domain.Page(page, limit, 20, 100)
	return s.repo.List(ctx, offset, size)
}

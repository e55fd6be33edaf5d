package user

import (
	"context"
	"strings"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

// ProfileUpdate carries the editable profile fields. Nil leaves a field unchanged.
type ProfileUpdate struct {
	Name   *string
	Mobile *string
}

// Service implements profile use cases for an authenticated user.
type Service struct {
	repo Repository
}

// NewService creates a user Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Profile returns the user's own account.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile changes name and mobile number.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("name must not be empty")
		}
		u.Name = name
	}
	if in.Mobile != nil {
		u.Mobile = in.Mobile
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !SecretMatches(u.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashSecret(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.repo.Update(ctx, u)
}

// SetSubscription toggles the newsletter flag.
func (s *Service) SetSubscription(ctx context.Context, userID int64, subscribed bool) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	u.IsSubscribed = subscribed
	return s.repo.Update(ctx, u)
}

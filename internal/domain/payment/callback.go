package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
	"github.com/MabsRahman/bamboo-shop-api/internal/metrics"
)

// Callback is the provider notification body. Other fields are ignored.
type Callback struct {
	PaymentID string
	Status    Status
}

// ParseCallback decodes {"paymentID": "...", "status": "..."}.
func ParseCallback(body []byte) (Callback, error) {
	var cb Callback
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "paymentID":
			s, err := d.Str()
			cb.PaymentID = s
			return err
		case "status":
			s, err := d.Str()
			cb.Status = Status(s)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Callback{}, domain.Invalid("malformed callback body")
	}
	if cb.PaymentID == "" {
		return Callback{}, domain.Invalid("paymentID is required")
	}
	switch cb.Status {
	case StatusSuccess, StatusFailed, StatusCancelled:
	default:
		return Callback{}, domain.Invalid("status must be one of success, failed, cancelled")
	}
	return cb, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// CallbackService verifies and applies provider callbacks.
type CallbackService struct {
	repo    Repository
	secret  []byte
	metrics *metrics.Metrics
}

// NewCallbackService creates a CallbackService. An empty secret disables
// signature checks.
func NewCallbackService(repo Repository, secret string, m *metrics.Metrics) *CallbackService {
	return &CallbackService{repo: repo, secret: []byte(secret), metrics: m}
}

// Verify checks signature against body in constant time.
func (s *CallbackService) Verify(body []byte, signature string) error {
	if len(s.secret) == 0 {
		return nil
	}
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Handle verifies, parses and applies a callback posted to the provider route.
// Only pending transactions change. A replay of the status already stored is
// accepted without writing; any other status on a settled transaction fails
// with ErrAlreadySettled.
func (s *CallbackService) Handle(ctx context.Context, provider string, body []byte, signature string) (*Transaction, error) {
	method, err := ProviderMethod(provider)
	if err != nil {
		return nil, err
	}
	if err := s.Verify(body, signature); err != nil {
		return nil, err
	}
	cb, err := ParseCallback(body)
	if err != nil {
		return nil, err
	}
	txn, err := s.repo.FindByProviderTxnID(ctx, cb.PaymentID)
	if err != nil {
		return nil, err
	}
	if txn.Provider != method {
		return nil, ErrProviderMismatch
	}
	if txn.Status == cb.Status {
		return txn, nil
	}
	if txn.Status != StatusPending {
		return nil, ErrAlreadySettled
	}
	if err := s.repo.ApplyCallback(ctx, txn.ID, cb.Status); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "apply callback to transaction %d", txn.ID)
	}
	txn.Status = cb.Status
	s.metrics.PaymentCallback(ctx, provider, string(cb.Status))
	return txn, nil
}

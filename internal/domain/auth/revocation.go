package auth

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// RevokedStore persists invalidated access tokens until they expire.
type RevokedStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Active returns every token still unexpired at now.
	Active(ctx context.Context, now time.Time) ([]string, error)
}

// RevocationList answers "is this token revoked" with a bloom filter in front
// of the store. Only filter hits reach the database.
//
// The filter only knows tokens revoked through this process or loaded by
// Reload, so deployments with several API instances must call Reload on an
// interval.
type RevocationList struct {
	store    RevokedStore
	capacity uint

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	// reloads counts Reload calls in flight; while it is non-zero Revoke
	// also records tokens in pending so a swapped in filter keeps them.
	reloads int
	pending []string
}

// NewRevocationList creates a list sized for capacity tokens.
func NewRevocationList(store RevokedStore, capacity uint) *RevocationList {
	if capacity == 0 {
		capacity = 10_000
	}
	return &RevocationList{
		store:    store,
		capacity: capacity,
		filter:   bloom.NewWithEstimates(capacity, 0.001),
	}
}

// Reload rebuilds the filter from the tokens unexpired at now.
func (l *RevocationList) Reload(ctx context.Context, now time.Time) error {
	l.mu.Lock()
	l.reloads++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.reloads--
		if l.reloads == 0 {
			l.pending = nil
		}
		l.mu.Unlock()
	}()

	tokens, err := l.store.Active(ctx, now)
	if err != nil {
		return errors.Wrap(err, "load revoked tokens")
	}
	n := l.capacity
	if uint(len(tokens)) > n {
		n = uint(len(tokens)) * 2
	}
	f := bloom.NewWithEstimates(n, 0.001)
	for _, t := range tokens {
		f.AddString(t)
	}
	l.mu.Lock()
	for _, t := range l.pending {
		f.AddString(t)
	}
	l.filter = f
	l.mu.Unlock()
	return nil
}

// Revoke records token as invalid until expiresAt.
func (l *RevocationList) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := l.store.Revoke(ctx, token, expiresAt); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	l.mu.Lock()
	l.filter.AddString(token)
	if l.reloads > 0 {
		l.pending = append(l.pending, token)
	}
	l.mu.Unlock()
	return nil
}

// IsRevoked reports whether token was revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	l.mu.RLock()
	maybe := l.filter.TestString(token)
	l.mu.RUnlock()
	if !maybe {
		return false, nil
	}
	return l.store.IsRevoked(ctx, token)
}

// Package reminder emails users whose carts have been left alone.
package reminder

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MabsRahman/bamboo-shop-api/internal/metrics"
)

// Buckets are the cart ages, in hours, that trigger a reminder. A cart
// qualifies while its age is in [bucket, bucket+1).
var Buckets = []int{4, 24, 48}

// Cart is a non-empty cart line as seen by the job.
type Cart struct {
	ID          int64
	UserID      int64
	ProductName string
	Quantity    int
	UpdatedAt   time.Time
}

// Entry identifies one reminder: a cart in a bucket at a given update time.
type Entry struct {
	CartID    int64
	Bucket    int
	UpdatedAt time.Time
}

// Recipient is who gets the email.
type Recipient struct {
	Email string
	Name  string
}

// Store is the data the job reads and the ledger it writes.
type Store interface {
	// ActiveCarts returns every cart line with a positive quantity.
	ActiveCarts(ctx context.Context) ([]Cart, error)
	// Claim records entries in the ledger and returns those that were not
	// recorded before.
	Claim(ctx context.Context, entries []Entry) ([]Entry, error)
	// Release forgets entries whose email could not be sent.
	Release(ctx context.Context, entries []Entry) error
	Recipient(ctx context.Context, userID int64) (Recipient, error)
}

// Notifier sends the aggregated reminder.
type Notifier interface {
	SendCartReminder(ctx context.Context, email, name string, items []Cart) error
}

// Result summarizes one run.
type Result struct {
	Users int
	Carts int
}

// Job finds abandoned carts and sends one reminder per user per run.
type Job struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	workers  int
	now      func() time.Time
}

// NewJob creates a Job. m may be nil.
func NewJob(store Store, notifier Notifier, m *metrics.Metrics) *Job {
	return &Job{store: store, notifier: notifier, metrics: m, workers: 4, now: time.Now}
}

// Bucket returns the reminder bucket of a cart of the given age.
func Bucket(age time.Duration) (int, bool) {
	for _, b := range Buckets {
		lo := time.Duration(b) * time.Hour
		if age >= lo && age < lo+time.Hour {
			return b, true
		}
	}
	return 0, false
}

// Run performs one pass. Failures for a single user are logged and skipped.
func (j *Job) Run(ctx context.Context) (Result, error) {
	carts, err := j.store.ActiveCarts(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "load carts")
	}
	now := j.now()
	due := make(map[int64][]Cart)
	for _, c := range carts {
		if _, ok := Bucket(now.Sub(c.UpdatedAt)); ok {
			due[c.UserID] = append(due[c.UserID], c)
		}
	}
	users := make([]int64, 0, len(due))
	for id := range due {
		users = append(users, id)
	}
	sort.Slice(users, func(i, k int) bool { return users[i] < users[k] })

	var sentUsers, sentCarts atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for _, userID := range users {
		g.Go(func() error {
			n, err := j.remind(gctx, now, userID, due[userID])
			if err != nil {
				zctx.From(gctx).Warn("Cart reminder failed", zap.Int64("user_id", userID), zap.Error(err))
				return nil
			}
			if n > 0 {
				sentUsers.Add(1)
				sentCarts.Add(int64(n))
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Users: int(sentUsers.Load()), Carts: int(sentCarts.Load())}
	j.metrics.RemindersSent(ctx, res.Users)
	return res, nil
}

func (j *Job) remind(ctx context.Context, now time.Time, userID int64, carts []Cart) (int, error) {
	entries := make([]Entry, 0, len(carts))
	byID := make(map[int64]Cart, len(carts))
	for _, c := range carts {
		b, _ := Bucket(now.Sub(c.UpdatedAt))
		entries = append(entries, Entry{CartID: c.ID, Bucket: b, UpdatedAt: c.UpdatedAt})
		byID[c.ID] = c
	}
	claimed, err := j.store.Claim(ctx, entries)
	if err != nil {
		return 0, errors.Wrap(err, "claim reminders")
	}
	if len(claimed) == 0 {
		return 0, nil
	}
	items := make([]Cart, 0, len(claimed))
	for _, e := range claimed {
		items = append(items, byID[e.CartID])
	}

	to, err := j.store.Recipient(ctx, userID)
	if err == nil {
		err = j.notifier.SendCartReminder(ctx, to.Email, to.Name, items)
	}
	if err != nil {
		if rerr := j.store.Release(ctx, claimed); rerr != nil {
			zctx.From(ctx).Error("Release reminder claims", zap.Int64("user_id", userID), zap.Error(rerr))
		}
		return 0, errors.Wrap(err, "send reminder")
	}
	return len(items), nil
}

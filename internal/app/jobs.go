package app

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
)

// runEvery calls fn on every tick of interval until ctx is done. A
// non-positive interval disables the loop.
func runEvery(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// TokenPurger deletes expired revocation records.
type TokenPurger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// refreshRevocations drops expired tokens from the store and rebuilds the
// filter, picking up tokens revoked by other instances.
func refreshRevocations(ctx context.Context, list *auth.RevocationList, store TokenPurger) {
	lg := zctx.From(ctx)
	now := time.Now()
	if n, err := store.Purge(ctx, now); err != nil {
		lg.Warn("Purge revoked tokens", zap.Error(err))
	} else if n > 0 {
		lg.Debug("Purged revoked tokens", zap.Int64("count", n))
	}
	if err := list.Reload(ctx, now); err != nil {
		lg.Warn("Reload revoked tokens", zap.Error(err))
	}
}

func runReminders(ctx context.Context, job *reminder.Job) {
	lg := zctx.From(ctx)
	res, err := job.Run(ctx)
	if err != nil {
		lg.Error("Cart reminder run failed", zap.Error(err))
		return
	}
	lg.Info("Cart reminder run",
		zap.Int("users", res.Users),
		zap.Int("carts", res.Carts),
	)
}

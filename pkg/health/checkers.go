package health

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is anything with a connectivity check, such as a pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when p cannot be reached.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// Heartbeat records the last time a periodic job completed.
type Heartbeat struct {
	last atomic.Int64
}

// Beat marks a completed run at t.
func (b *Heartbeat) Beat(t time.Time) {
	b.last.Store(t.UnixNano())
}

// Last returns the time of the last Beat, or the zero time.
func (b *Heartbeat) Last() time.Time {
	n := b.last.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// HeartbeatCheck fails when b has not beaten within maxAge. A job that has
// not completed its first run yet is given maxAge from the moment the check
// was created.
func HeartbeatCheck(b *Heartbeat, maxAge time.Duration, now func() time.Time) CheckFunc {
	started := now()
	return func(context.Context) error {
		last := b.Last()
		if last.IsZero() {
			last = started
		}
		if age := now().Sub(last); age > maxAge {
			return errors.Errorf("last run %s ago exceeds %s", age.Truncate(time.Second), maxAge)
		}
		return nil
	}
}

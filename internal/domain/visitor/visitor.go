// Package visitor records API visits in the background.
package visitor

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain"
)

// Visit is one logged request. The geolocation fields stay empty unless a
// resolver fills them.
type Visit struct {
	ID        int64
	IP        string
	City      string
	Region    string
	Country   string
	UserAgent string
	Path      string
	Referrer  string
	CreatedAt time.Time
}

// Filter selects visits, newest first.
type Filter struct {
	Path    string
	Country string
	Offset  int
	Limit   int
}

// Repository persists visits.
type Repository interface {
	Create(ctx context.Context, v *Visit) error
	List(ctx context.Context, f Filter) ([]Visit, error)
	Count(ctx context.Context) (int64, error)
}

// Recorder writes visits from a single background goroutine so request
// handlers never wait on the database. Visits beyond the buffer are dropped.
type Recorder struct {
	repo  Repository
	queue chan Visit
	lg    *zap.Logger

	wg sync.WaitGroup
}

// NewRecorder creates a Recorder with room for buffer pending visits.
func NewRecorder(repo Repository, buffer int, lg *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{repo: repo, queue: make(chan Visit, buffer), lg: lg}
}

// Record queues v without blocking. It reports whether v was accepted.
func (r *Recorder) Record(v Visit) bool {
	select {
	case r.queue <- v:
		return true
	default:
		r.lg.Warn("Visitor queue full, dropping visit", zap.String("path", v.Path))
		return false
	}
}

// Start drains the queue in the background until ctx is done, then flushes
// what is left.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(zctx.Base(ctx, r.lg))
	}()
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case v := <-r.queue:
			r.store(ctx, v)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

// Wait blocks until the goroutine started by Start has returned.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(zctx.Base(context.Background(), r.lg), 5*time.Second)
	defer cancel()
	for {
		select {
		case v := <-r.queue:
			r.store(ctx, v)
		default:
			return
		}
	}
}

func (r *Recorder) store(ctx context.Context, v Visit) {
	if err := r.repo.Create(ctx, &v); err != nil {
		zctx.From(ctx).Warn("Record visit", zap.String("path", v.Path), zap.Error(err))
	}
}

// Service exposes visit statistics.
type Service struct {
	repo Repository
}

// NewService creates a visitor Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of visits.
func (s *Service) List(ctx context.Context, path, country string, page, limit int) ([]Visit, error) {
	offset, size := domain.Page(page, limit, 50, 500)
	return s.repo.List(ctx, Filter{Path: path, Country: country, Offset: offset, Limit: size})
}

// Count returns the total number of visits.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

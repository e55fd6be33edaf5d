// Command coupon-ingest bulk-loads coupons from gzip compressed JSON-lines
// files and upserts them by code.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/repository"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		workers     int
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupon files")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob selecting coupon files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", 8, "concurrent upserts")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and validate only")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL, workers, dryRun); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string, workers int, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "match coupon files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", pattern, dataDir)
	}
	sort.Strings(files)

	slog.Info("reading coupon files", slog.Int("files", len(files)))

	parsed, err := readFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "read coupon files")
	}

	coupons, stats := dedupe(parsed)
	slog.Info("coupons ready",
		slog.Int("unique", len(coupons)),
		slog.Int("duplicates", stats.duplicates),
		slog.Int("invalid", stats.invalid),
	)

	if dryRun || len(coupons) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := writeCoupons(ctx, repository.NewCouponRepository(pool), coupons, workers); err != nil {
		return errors.Wrap(err, "write coupons to database")
	}

	return nil
}

// CouponWriter upserts a coupon by code.
type CouponWriter interface {
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

// writeCoupons upserts coupons with at most workers in flight.
func writeCoupons(ctx context.Context, repo CouponWriter, coupons []*coupon.Coupon, workers int) error {
	slog.Info("writing coupons to database", slog.Int("count", len(coupons)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, c := range coupons {
		g.Go(func() error {
			if err := repo.Upsert(ctx, c); err != nil {
				return err
			}
			if n := i + 1; n%progressEvery == 0 {
				slog.Info("write progress", slog.Int("written", n), slog.Int("total", len(coupons)))
			}
			return nil
		})
	}

	return g.Wait()
}

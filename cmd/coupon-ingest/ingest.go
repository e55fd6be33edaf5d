package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

// maxLine bounds a single JSON record.
const maxLine = 64 << 10

// record is one line of a coupon file.
type record struct {
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	StartsAt   *time.Time      `json:"startsAt"`
	EndsAt     *time.Time      `json:"endsAt"`
	UsageLimit *int            `json:"usageLimit"`
	ProductID  *int64          `json:"productId"`
}

// coupon validates the record and converts it.
func (r record) coupon() (*coupon.Coupon, error) {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return nil, errors.New("code is required")
	}
	kind, err := pricing.ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	if !r.Value.IsPositive() {
		return nil, errors.New("value must be positive")
	}
	if kind == pricing.Percentage && r.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("percentage cannot exceed 100")
	}
	if r.StartsAt != nil && r.EndsAt != nil && r.EndsAt.Before(*r.StartsAt) {
		return nil, errors.New("endsAt is before startsAt")
	}
	if r.UsageLimit != nil && *r.UsageLimit < 0 {
		return nil, errors.New("usageLimit cannot be negative")
	}
	if r.ProductID != nil && *r.ProductID <= 0 {
		return nil, errors.New("productId must be positive")
	}
	return &coupon.Coupon{
		Code:       code,
		Kind:       kind,
		Value:      r.Value,
		UsageLimit: r.UsageLimit,
		ProductID:  r.ProductID,
		Window:     pricing.Window{StartsAt: r.StartsAt, EndsAt: r.EndsAt},
	}, nil
}

// fileResult holds the valid coupons of one file in line order.
type fileResult struct {
	coupons []*coupon.Coupon
	invalid int
}

// readFiles parses every file concurrently. Results keep the file order.
func readFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			res, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			slog.Info("file parsed",
				slog.String("path", path),
				slog.Int("coupons", len(res.coupons)),
				slog.Int("invalid", res.invalid),
			)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readFile(ctx context.Context, path string) (fileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileResult{}, err
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fileResult{}, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return parseLines(ctx, path, gz)
}

// parseLines decodes JSON-lines from r. Blank lines are ignored; malformed or
// invalid records are logged and counted.
func parseLines(ctx context.Context, name string, r io.Reader) (fileResult, error) {
	var res fileResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			res.invalid++
			slog.Warn("skip malformed line", slog.String("file", name), slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		c, err := rec.coupon()
		if err != nil {
			res.invalid++
			slog.Warn("skip invalid coupon", slog.String("file", name), slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		res.coupons = append(res.coupons, c)
	}

	if err := scanner.Err(); err != nil {
		return res, errors.Wrap(err, "scan")
	}
	return res, nil
}

type dedupeStats struct {
	duplicates int
	invalid    int
	candidates int
}

// dedupe merges file results in order, keeping the first record seen for
// each code. A first pass builds one bloom filter per file and marks a code
// as a candidate when an earlier file's filter, or its own filter before the
// insert, already reports it. Codes that are never candidates are unique, so
// only candidates are confirmed against an exact set in the second pass.
func dedupe(results []fileResult) ([]*coupon.Coupon, dedupeStats) {
	var (
		stats dedupeStats
		total int
	)
	for _, r := range results {
		total += len(r.coupons)
		stats.invalid += r.invalid
	}

	candidates := make(map[string]struct{})
	filters := make([]*bloom.BloomFilter, 0, len(results))
	for _, r := range results {
		filter := bloom.NewWithEstimates(uint(max(len(r.coupons), 1)), bloomFPR)
		for _, c := range r.coupons {
			if filter.TestString(c.Code) || testAny(filters, c.Code) {
				candidates[c.Code] = struct{}{}
			}
			filter.AddString(c.Code)
		}
		filters = append(filters, filter)
	}
	stats.candidates = len(candidates)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]*coupon.Coupon, 0, total)
	for _, r := range results {
		for _, c := range r.coupons {
			if _, ok := candidates[c.Code]; ok {
				if _, dup := seen[c.Code]; dup {
					stats.duplicates++
					continue
				}
				seen[c.Code] = struct{}{}
			}
			out = append(out, c)
		}
	}
	return out, stats
}

func testAny(filters []*bloom.BloomFilter, code string) bool {
	for _, f := range filters {
		if f.TestString(code) {
			return true
		}
	}
	return false
}

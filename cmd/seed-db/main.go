// Command seed-db loads the demo catalog, coupons and blog posts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/blog"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
	"github.com/MabsRahman/bamboo-shop-api/internal/repository"
)

type seedFile struct {
	Categories []categoryJSON `json:"categories"`
	Coupons    []couponJSON   `json:"coupons"`
	Posts      []postJSON     `json:"posts"`
}

type categoryJSON struct {
	Name     string        `json:"name"`
	Products []productJSON `json:"products"`
}

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
	Tags        []string        `json:"tags"`
	Images      []string        `json:"images"`
	Discount    *struct {
		Type  string          `json:"type"`
		Value decimal.Decimal `json:"value"`
	} `json:"discount"`
}

type couponJSON struct {
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	UsageLimit *int            `json:"usageLimit"`
}

type postJSON struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CoverImage string `json:"coverImage"`
	Published  bool   `json:"published"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to the seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, seed.Categories); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, repository.NewCouponRepository(pool), seed.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedPosts(ctx, blog.NewService(repository.NewBlogRepository(pool)), seed.Posts); err != nil {
		return errors.Wrap(err, "seed posts")
	}

	return nil
}

// seedCatalog creates categories with their products and discounts. A
// category that already exists is skipped along with its products, so the
// command can be rerun.
func seedCatalog(ctx context.Context, pool *pgxpool.Pool, categories []categoryJSON) error {
	productRepo := repository.NewProductRepository(pool)
	var (
		categorySvc = category.NewService(repository.NewCategoryRepository(pool))
		productSvc  = product.NewService(productRepo, pricing.NewResolver())
		discountSvc = discount.NewService(repository.NewDiscountRepository(pool), productRepo)
	)

	for _, c := range categories {
		created, err := categorySvc.Create(ctx, c.Name)
		if errors.Is(err, category.ErrAlreadyExists) {
			slog.Info("category exists, skipping", slog.String("name", c.Name))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create category %q", c.Name)
		}
		slog.Info("created category", slog.Int64("id", created.ID), slog.String("name", created.Name))

		for _, p := range c.Products {
			in := product.Input{
				Name:        &p.Name,
				Description: &p.Description,
				Price:       &p.Price,
				Stock:       &p.Stock,
				CategoryID:  &created.ID,
				IsFeatured:  &p.Featured,
				Tags:        p.Tags,
			}
			for i, url := range p.Images {
				in.Images = append(in.Images, product.Image{URL: url, IsPrimary: i == 0})
			}
			view, err := productSvc.Create(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "create product %q", p.Name)
			}
			slog.Info("created product", slog.Int64("id", view.ID), slog.String("name", view.Name))

			if p.Discount == nil {
				continue
			}
			if _, err := discountSvc.Create(ctx, discount.Input{
				ProductID: view.ID,
				Type:      p.Discount.Type,
				Value:     p.Discount.Value,
			}); err != nil {
				return errors.Wrapf(err, "create discount for %q", p.Name)
			}
		}
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository, coupons []couponJSON) error {
	for _, c := range coupons {
		kind, err := pricing.ParseKind(c.Type)
		if err != nil {
			return errors.Wrapf(err, "coupon %s", c.Code)
		}
		if err := repo.Upsert(ctx, &coupon.Coupon{
			Code:       c.Code,
			Kind:       kind,
			Value:      c.Value,
			UsageLimit: c.UsageLimit,
		}); err != nil {
			return err
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("type", c.Type))
	}

	return nil
}

func seedPosts(ctx context.Context, svc *blog.Service, posts []postJSON) error {
	for _, p := range posts {
		post, err := svc.Create(ctx, blog.Input{
			Title:       p.Title,
			Content:     p.Content,
			CoverImage:  p.CoverImage,
			IsPublished: p.Published,
		})
		if errors.Is(err, blog.ErrSlugTaken) {
			slog.Info("post exists, skipping", slog.String("title", p.Title))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create post %q", p.Title)
		}

		slog.Info("created post", slog.String("slug", post.Slug))
	}

	return nil
}

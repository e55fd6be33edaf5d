package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

const (
	findCouponByCodeSQL = `SELECT c.id, c.code, c.type, c.value, c.usage_limit, c.used_count, c.product_id,
			c.starts_at, c.ends_at,
			COALESCE((SELECT array_agg(user_id ORDER BY user_id) FROM coupon_users WHERE coupon_id = c.id), '{}'),
			COALESCE((SELECT array_agg(product_id ORDER BY product_id) FROM coupon_products WHERE coupon_id = c.id), '{}')
		FROM coupons c WHERE c.code = $1`

	upsertCouponSQL = `INSERT INTO coupons (code, type, value, usage_limit, product_id, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value,
			usage_limit = EXCLUDED.usage_limit, product_id = EXCLUDED.product_id,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at
		RETURNING id, used_count`

	clearCouponUsersSQL    = `DELETE FROM coupon_users WHERE coupon_id = $1`
	clearCouponProductsSQL = `DELETE FROM coupon_products WHERE coupon_id = $1`

	insertCouponUsersSQL = `INSERT INTO coupon_users (coupon_id, user_id)
		SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
	insertCouponProductsSQL = `INSERT INTO coupon_products (coupon_id, product_id)
		SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode returns the coupon with its assigned users and products, or
// coupon.ErrInvalidCoupon when no coupon has that code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrap(err, "find coupon")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "find coupon")
	}
	return &c, nil
}

// Upsert inserts or replaces the coupon identified by its code. The assigned
// user and product sets are replaced; the usage counter is preserved.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertCouponSQL,
			c.Code, string(c.Kind), c.Value, c.UsageLimit, c.ProductID, c.StartsAt, c.EndsAt,
		).Scan(&c.ID, &c.UsedCount)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %q", c.Code)
		}

		batch := &pgx.Batch{}
		batch.Queue(clearCouponUsersSQL, c.ID)
		batch.Queue(clearCouponProductsSQL, c.ID)
		if len(c.AssignedUsers) > 0 {
			batch.Queue(insertCouponUsersSQL, c.ID, c.AssignedUsers)
		}
		if len(c.Products) > 0 {
			batch.Queue(insertCouponProductsSQL, c.ID, c.Products)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrapf(err, "write coupon %q restrictions", c.Code)
		}
		return nil
	})
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c    coupon.Coupon
		kind string
	)
	err := row.Scan(
		&c.ID, &c.Code, &kind, &c.Value, &c.UsageLimit, &c.UsedCount, &c.ProductID,
		&c.StartsAt, &c.EndsAt, &c.AssignedUsers, &c.Products,
	)
	c.Kind = pricing.Kind(kind)
	return c, err
}

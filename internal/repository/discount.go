package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/discount"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

const (
	discountColumns = `id, product_id, type, value, starts_at, ends_at, created_at`

	insertDiscountSQL = `INSERT INTO discounts (product_id, type, value, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`

	updateDiscountSQL = `UPDATE discounts SET product_id = $2, type = $3, value = $4, starts_at = $5, ends_at = $6
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`

	getDiscountSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts ORDER BY id`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	err := r.pool.QueryRow(ctx, insertDiscountSQL,
		d.ProductID, string(d.Kind), d.Value, d.StartsAt, d.EndsAt,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert discount")
	}
	return nil
}

func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		d.ID, d.ProductID, string(d.Kind), d.Value, d.StartsAt, d.EndsAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update discount %d", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func (r *DiscountRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete discount %d", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get discount %d", id)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get discount %d", id)
	}
	return &d, nil
}

func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return pgx.CollectRows(rows, scanDiscount)
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d    discount.Discount
		kind string
	)
	err := row.Scan(&d.ID, &d.ProductID, &kind, &d.Value, &d.StartsAt, &d.EndsAt, &d.CreatedAt)
	d.Kind = pricing.Kind(kind)
	return d, err
}

package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/cart"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
)

const (
	addCartLineSQL = `INSERT INTO carts (user_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE
			SET quantity = carts.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`

	listCartLinesSQL = `SELECT id, user_id, product_id, quantity, created_at, updated_at FROM carts
		WHERE user_id = $1 AND quantity > 0 ORDER BY created_at, id`

	setCartQuantitySQL = `UPDATE carts SET quantity = $3, updated_at = now() WHERE id = $1 AND user_id = $2`

	removeCartLineSQL = `DELETE FROM carts WHERE id = $1 AND user_id = $2`

	clearCartSQL = `DELETE FROM carts WHERE user_id = $1`

	activeCartsSQL = `SELECT c.id, c.user_id, p.name, c.quantity, c.updated_at
		FROM carts c JOIN products p ON p.id = c.product_id
		WHERE c.quantity > 0 ORDER BY c.user_id, c.id`

	claimRemindersSQL = `INSERT INTO cart_reminders (cart_id, bucket, cart_updated_at)
		SELECT * FROM unnest($1::bigint[], $2::int[], $3::timestamptz[])
		ON CONFLICT DO NOTHING
		RETURNING cart_id, bucket, cart_updated_at`

	releaseRemindersSQL = `DELETE FROM cart_reminders r
		USING unnest($1::bigint[], $2::int[], $3::timestamptz[]) AS e(cart_id, bucket, cart_updated_at)
		WHERE r.cart_id = e.cart_id AND r.bucket = e.bucket AND r.cart_updated_at = e.cart_updated_at`

	reminderRecipientSQL = `SELECT email, name FROM users WHERE id = $1`
)

var (
	_ cart.Repository = (*CartRepository)(nil)
	_ reminder.Store  = (*CartRepository)(nil)
)

// CartRepository implements cart.Repository and the abandoned-cart reminder
// store backed by PostgreSQL.
type CartRepository struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool, products: NewProductRepository(pool)}
}

func (r *CartRepository) Add(ctx context.Context, userID, productID int64, quantity int) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, addCartLineSQL, userID, productID, quantity)
	if err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}
	lines := []cart.Line{l}
	if err := r.attachProducts(ctx, lines); err != nil {
		return nil, err
	}
	return &lines[0], nil
}

func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, errors.Wrap(err, "scan cart")
	}
	if err := r.attachProducts(ctx, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	return r.exec(ctx, setCartQuantitySQL, lineID, userID, quantity)
}

func (r *CartRepository) Remove(ctx context.Context, userID, lineID int64) error {
	return r.exec(ctx, removeCartLineSQL, lineID, userID)
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (r *CartRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "update cart")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (r *CartRepository) attachProducts(ctx context.Context, lines []cart.Line) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range lines {
		lines[i].Product = byID[lines[i].ProductID]
	}
	return nil
}

func (r *CartRepository) ActiveCarts(ctx context.Context) ([]reminder.Cart, error) {
	rows, err := r.pool.Query(ctx, activeCartsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list active carts")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[reminder.Cart])
}

func (r *CartRepository) Claim(ctx context.Context, entries []reminder.Entry) ([]reminder.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	ids, buckets, times := entryColumns(entries)
	rows, err := r.pool.Query(ctx, claimRemindersSQL, ids, buckets, times)
	if err != nil {
		return nil, errors.Wrap(err, "claim reminders")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[reminder.Entry])
}

func (r *CartRepository) Release(ctx context.Context, entries []reminder.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids, buckets, times := entryColumns(entries)
	if _, err := r.pool.Exec(ctx, releaseRemindersSQL, ids, buckets, times); err != nil {
		return errors.Wrap(err, "release reminders")
	}
	return nil
}

func (r *CartRepository) Recipient(ctx context.Context, userID int64) (reminder.Recipient, error) {
	var rc reminder.Recipient
	if err := r.pool.QueryRow(ctx, reminderRecipientSQL, userID).Scan(&rc.Email, &rc.Name); err != nil {
		return rc, errors.Wrapf(err, "get reminder recipient %d", userID)
	}
	return rc, nil
}

func entryColumns(entries []reminder.Entry) ([]int64, []int32, []time.Time) {
	ids := make([]int64, len(entries))
	buckets := make([]int32, len(entries))
	times := make([]time.Time, len(entries))
	for i, e := range entries {
		ids[i] = e.CartID
		buckets[i] = int32(e.Bucket)
		times[i] = e.UpdatedAt
	}
	return ids, buckets, times
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

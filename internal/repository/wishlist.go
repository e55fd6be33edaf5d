package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/wishlist"
)

const (
	addWishlistSQL = `INSERT INTO wishlists (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	listWishlistSQL = `SELECT product_id, created_at FROM wishlists WHERE user_id = $1
		ORDER BY created_at DESC, product_id`

	removeWishlistSQL = `DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`

	clearWishlistSQL = `DELETE FROM wishlists WHERE user_id = $1`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool, products: NewProductRepository(pool)}
}

func (r *WishlistRepository) Add(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx, addWishlistSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "add to wishlist")
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrAlreadyExists
	}
	return nil
}

func (r *WishlistRepository) List(ctx context.Context, userID int64) ([]wishlist.Item, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	type entry struct {
		ProductID int64
		AddedAt   time.Time
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entry])
	if err != nil {
		return nil, errors.Wrap(err, "scan wishlist")
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := r.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]wishlist.Item, 0, len(entries))
	for _, e := range entries {
		if p, ok := byID[e.ProductID]; ok {
			items = append(items, wishlist.Item{Product: p, AddedAt: e.AddedAt})
		}
	}
	return items, nil
}

func (r *WishlistRepository) Remove(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx, removeWishlistSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "remove from wishlist")
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrNotFound
	}
	return nil
}

func (r *WishlistRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, clearWishlistSQL, userID); err != nil {
		return errors.Wrap(err, "clear wishlist")
	}
	return nil
}

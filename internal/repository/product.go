package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/product"
	"github.com/MabsRahman/bamboo-shop-api/internal/pricing"
)

const (
	selectProductSQL = `SELECT p.id, p.name, p.slug, p.description, p.price, p.stock, p.category_id,
			p.is_featured, p.created_at, p.updated_at,
			COALESCE((SELECT array_agg(t.name ORDER BY t.name)
				FROM product_tags pt JOIN tags t ON t.id = pt.tag_id
				WHERE pt.product_id = p.id), '{}'),
			rs.cnt, rs.total
		FROM products p
		LEFT JOIN LATERAL (
			SELECT count(*) AS cnt, COALESCE(sum(rating), 0) AS total FROM ratings WHERE product_id = p.id
		) rs ON TRUE`

	listImagesSQL = `SELECT product_id, url, is_primary FROM product_images
		WHERE product_id = ANY($1) ORDER BY is_primary DESC, id`

	listProductDiscountsSQL = `SELECT product_id, id, type, value, starts_at, ends_at FROM discounts
		WHERE product_id = ANY($1) ORDER BY id`

	insertProductSQL = `INSERT INTO products (name, slug, description, price, stock, category_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	updateProductSQL = `UPDATE products SET name = $2, slug = $3, description = $4, price = $5, stock = $6,
		category_id = $7, is_featured = $8, updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertTagsSQL = `INSERT INTO tags (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`

	clearProductTagsSQL = `DELETE FROM product_tags WHERE product_id = $1`

	linkProductTagsSQL = `INSERT INTO product_tags (product_id, tag_id)
		SELECT $1, id FROM tags WHERE name = ANY($2) ON CONFLICT DO NOTHING`

	clearProductImagesSQL = `DELETE FROM product_images WHERE product_id = $1`

	insertProductImageSQL = `INSERT INTO product_images (product_id, url, is_primary) VALUES ($1, $2, $3)`

	subscribeStockSQL = `INSERT INTO stock_subscriptions (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	unsubscribeStockSQL = `DELETE FROM stock_subscriptions WHERE user_id = $1 AND product_id = $2`
)

var sortColumns = map[product.SortField]string{
	product.SortCreatedAt: "p.created_at",
	product.SortPrice:     "p.price",
	product.SortName:      "p.name",
	product.SortRating:    "CASE WHEN rs.cnt = 0 THEN 0 ELSE rs.total::float8 / rs.cnt END",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertProductSQL,
			p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID, p.IsFeatured,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "insert product")
		}
		return writeProductChildren(ctx, tx, p)
	})
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, updateProductSQL,
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.CategoryID, p.IsFeatured,
		).Scan(&p.UpdatedAt)
		if err != nil {
			return errors.Wrapf(notFound(err, product.ErrNotFound), "update product %d", p.ID)
		}
		return writeProductChildren(ctx, tx, p)
	})
}

// writeProductChildren replaces the tag and image sets of p.
func writeProductChildren(ctx context.Context, tx pgx.Tx, p *product.Product) error {
	batch := &pgx.Batch{}
	batch.Queue(clearProductTagsSQL, p.ID)
	if len(p.Tags) > 0 {
		batch.Queue(upsertTagsSQL, p.Tags)
		batch.Queue(linkProductTagsSQL, p.ID, p.Tags)
	}
	batch.Queue(clearProductImagesSQL, p.ID)
	for _, img := range p.Images {
		batch.Queue(insertProductImageSQL, p.ID, img.URL, img.IsPrimary)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "write product %d tags and images", p.ID)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if isForeignKeyViolation(err) {
		return product.ErrInUse
	}
	if err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	products, err := r.query(ctx, selectProductSQL+` WHERE p.id = $1`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	if len(products) == 0 {
		return nil, product.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns the products matching ids. Missing ids are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	products, err := r.query(ctx, selectProductSQL+` WHERE p.id = ANY($1) ORDER BY p.id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.CategoryID != nil {
		where = append(where, "p.category_id = "+arg(*f.CategoryID))
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= "+arg(*f.MaxPrice))
	}
	if f.Featured != nil {
		where = append(where, "p.is_featured = "+arg(*f.Featured))
	}

	var sb strings.Builder
	sb.WriteString(selectProductSQL)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[product.SortCreatedAt]
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, p.id %s", col, dir, dir)
	fmt.Fprintf(&sb, " OFFSET %s LIMIT %s", arg(f.Offset), arg(f.Limit))

	products, err := r.query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

func (r *ProductRepository) Subscribe(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx, subscribeStockSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "subscribe back in stock")
	}
	if tag.RowsAffected() == 0 {
		return product.ErrAlreadySubscribed
	}
	return nil
}

func (r *ProductRepository) Unsubscribe(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx, unsubscribeStockSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "unsubscribe back in stock")
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNoSubscription
	}
	return nil
}

// query runs a product select and attaches images and discounts with one
// extra query each.
func (r *ProductRepository) query(ctx context.Context, sql string, args ...any) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err = r.pool.Query(ctx, listImagesSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list images")
	}
	var (
		productID int64
		img       product.Image
	)
	_, err = pgx.ForEachRow(rows, []any{&productID, &img.URL, &img.IsPrimary}, func() error {
		p := index[productID]
		p.Images = append(p.Images, img)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan images")
	}

	rows, err = r.pool.Query(ctx, listProductDiscountsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	var (
		d    pricing.Discount
		kind string
	)
	_, err = pgx.ForEachRow(rows, []any{&productID, &d.ID, &kind, &d.Value, &d.StartsAt, &d.EndsAt}, func() error {
		d.Kind = pricing.Kind(kind)
		p := index[productID]
		p.Discounts = append(p.Discounts, d)
		d = pricing.Discount{}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan discounts")
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.CategoryID,
		&p.IsFeatured, &p.CreatedAt, &p.UpdatedAt, &p.Tags, &p.Ratings.Count, &p.Ratings.Sum,
	)
	return p, err
}

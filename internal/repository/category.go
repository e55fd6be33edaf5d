package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/category"
)

const (
	insertCategorySQL = `INSERT INTO categories (name, slug) VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	updateCategorySQL = `UPDATE categories SET name = $2, slug = $3, updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`

	getCategorySQL = `SELECT id, name, slug, created_at, updated_at FROM categories WHERE id = $1`

	listCategoriesSQL = `SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	err := r.pool.QueryRow(ctx, insertCategorySQL, c.Name, c.Slug).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return category.ErrAlreadyExists
		}
		return errors.Wrap(err, "insert category")
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	err := r.pool.QueryRow(ctx, updateCategorySQL, c.ID, c.Name, c.Slug).Scan(&c.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return category.ErrAlreadyExists
	case errors.Is(err, pgx.ErrNoRows):
		return category.ErrNotFound
	default:
		return errors.Wrapf(err, "update category %d", c.ID)
	}
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete category %d", id)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[category.Category])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[category.Category])
}

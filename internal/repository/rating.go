package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/rating"
)

const (
	ratingColumns = `id, user_id, product_id, rating, COALESCE(comment, ''), created_at, updated_at`

	insertRatingSQL = `INSERT INTO ratings (user_id, product_id, rating, comment)
		VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING id, created_at, updated_at`

	updateRatingSQL = `UPDATE ratings SET rating = $2, comment = NULLIF($3, ''), updated_at = now()
		WHERE id = $1 RETURNING updated_at`

	deleteRatingSQL = `DELETE FROM ratings WHERE id = $1`

	getRatingSQL = `SELECT ` + ratingColumns + ` FROM ratings WHERE id = $1`

	listRatingsSQL = `SELECT ` + ratingColumns + ` FROM ratings WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`
)

var _ rating.Repository = (*RatingRepository)(nil)

// RatingRepository implements rating.Repository backed by PostgreSQL.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository returns a RatingRepository that uses the given pool.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func (r *RatingRepository) Create(ctx context.Context, rt *rating.Rating) error {
	err := r.pool.QueryRow(ctx, insertRatingSQL, rt.UserID, rt.ProductID, rt.Score, rt.Comment).
		Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert rating")
	}
	return nil
}

func (r *RatingRepository) Update(ctx context.Context, rt *rating.Rating) error {
	err := r.pool.QueryRow(ctx, updateRatingSQL, rt.ID, rt.Score, rt.Comment).Scan(&rt.UpdatedAt)
	if err != nil {
		return errors.Wrapf(notFound(err, rating.ErrNotFound), "update rating %d", rt.ID)
	}
	return nil
}

func (r *RatingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteRatingSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete rating %d", id)
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func (r *RatingRepository) GetByID(ctx context.Context, id int64) (*rating.Rating, error) {
	rows, err := r.pool.Query(ctx, getRatingSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get rating %d", id)
	}
	rt, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[rating.Rating])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rating.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get rating %d", id)
	}
	return &rt, nil
}

func (r *RatingRepository) ListByProduct(ctx context.Context, productID int64) ([]rating.Rating, error) {
	rows, err := r.pool.Query(ctx, listRatingsSQL, productID)
	if err != nil {
		return nil, errors.Wrap(err, "list ratings")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[rating.Rating])
}

package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/returns"
)

const (
	insertReturnSQL = `INSERT INTO return_requests (user_id, order_id, status) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	insertReturnDetailSQL = `INSERT INTO return_details (return_request_id, product_id, reason)
		VALUES ($1, $2, $3) RETURNING id`

	insertReturnImagesSQL = `INSERT INTO return_images (return_detail_id, url) SELECT $1, unnest($2::text[])`

	listReturnsSQL = `SELECT id, user_id, order_id, status, created_at, updated_at FROM return_requests
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listReturnDetailsSQL = `SELECT d.return_request_id, d.id, d.product_id, d.reason,
			COALESCE((SELECT array_agg(i.url ORDER BY i.id) FROM return_images i WHERE i.return_detail_id = d.id), '{}')
		FROM return_details d WHERE d.return_request_id = ANY($1) ORDER BY d.id`
)

var _ returns.Repository = (*ReturnRepository)(nil)

// ReturnRepository implements returns.Repository backed by PostgreSQL.
type ReturnRepository struct {
	pool *pgxpool.Pool
}

// NewReturnRepository returns a ReturnRepository that uses the given pool.
func NewReturnRepository(pool *pgxpool.Pool) *ReturnRepository {
	return &ReturnRepository{pool: pool}
}

func (r *ReturnRepository) Create(ctx context.Context, req *returns.Request) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertReturnSQL, req.UserID, req.OrderID, req.Status).
			Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "insert return request")
		}
		for i := range req.Items {
			d := &req.Items[i]
			if err := tx.QueryRow(ctx, insertReturnDetailSQL, req.ID, d.ProductID, d.Reason).Scan(&d.ID); err != nil {
				return errors.Wrapf(err, "insert return detail for product %d", d.ProductID)
			}
			if len(d.Images) == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, insertReturnImagesSQL, d.ID, d.Images); err != nil {
				return errors.Wrapf(err, "insert return images for product %d", d.ProductID)
			}
		}
		return nil
	})
}

func (r *ReturnRepository) ListByUser(ctx context.Context, userID int64) ([]returns.Request, error) {
	rows, err := r.pool.Query(ctx, listReturnsSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list return requests")
	}
	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (returns.Request, error) {
		var q returns.Request
		err := row.Scan(&q.ID, &q.UserID, &q.OrderID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
		return q, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan return requests")
	}
	if len(reqs) == 0 {
		return reqs, nil
	}

	ids := make([]int64, len(reqs))
	index := make(map[int64]*returns.Request, len(reqs))
	for i := range reqs {
		ids[i] = reqs[i].ID
		index[reqs[i].ID] = &reqs[i]
	}
	rows, err = r.pool.Query(ctx, listReturnDetailsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list return details")
	}
	var (
		reqID int64
		d     returns.Detail
	)
	_, err = pgx.ForEachRow(rows, []any{&reqID, &d.ID, &d.ProductID, &d.Reason, &d.Images}, func() error {
		q := index[reqID]
		q.Items = append(q.Items, d)
		d = returns.Detail{}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan return details")
	}
	return reqs, nil
}

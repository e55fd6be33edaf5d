package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/visitor"
)

const (
	insertVisitSQL = `INSERT INTO visitor_logs (ip, city, region, country, user_agent, path, referrer)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''))
		RETURNING id, created_at`

	listVisitsSQL = `SELECT id, ip, COALESCE(city, ''), COALESCE(region, ''), COALESCE(country, ''),
			user_agent, path, COALESCE(referrer, ''), created_at
		FROM visitor_logs
		WHERE ($1 = '' OR path = $1) AND ($2 = '' OR country = $2)
		ORDER BY created_at DESC, id DESC OFFSET $3 LIMIT $4`

	countVisitsSQL = `SELECT count(*) FROM visitor_logs`
)

var _ visitor.Repository = (*VisitorRepository)(nil)

// VisitorRepository implements visitor.Repository backed by PostgreSQL.
type VisitorRepository struct {
	pool *pgxpool.Pool
}

// NewVisitorRepository returns a VisitorRepository that uses the given pool.
func NewVisitorRepository(pool *pgxpool.Pool) *VisitorRepository {
	return &VisitorRepository{pool: pool}
}

func (r *VisitorRepository) Create(ctx context.Context, v *visitor.Visit) error {
	err := r.pool.QueryRow(ctx, insertVisitSQL,
		v.IP, v.City, v.Region, v.Country, v.UserAgent, v.Path, v.Referrer,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert visit")
	}
	return nil
}

func (r *VisitorRepository) List(ctx context.Context, f visitor.Filter) ([]visitor.Visit, error) {
	rows, err := r.pool.Query(ctx, listVisitsSQL, f.Path, f.Country, f.Offset, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list visits")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[visitor.Visit])
}

func (r *VisitorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countVisitsSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count visits")
	}
	return n, nil
}

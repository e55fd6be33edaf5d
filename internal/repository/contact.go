package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/contact"
)

const (
	insertContactSQL = `INSERT INTO contact_messages (name, email, subject, message)
		VALUES ($1, $2, NULLIF($3, ''), $4) RETURNING id, created_at`

	listContactSQL = `SELECT id, name, email, COALESCE(subject, ''), message, created_at FROM contact_messages
		ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`
)

var _ contact.Repository = (*ContactRepository)(nil)

// ContactRepository implements contact.Repository backed by PostgreSQL.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a ContactRepository that uses the given pool.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(ctx context.Context, m *contact.Message) error {
	err := r.pool.QueryRow(ctx, insertContactSQL, m.Name, m.Email, m.Subject, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert contact message")
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context, offset, limit int) ([]contact.Message, error) {
	rows, err := r.pool.Query(ctx, listContactSQL, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list contact messages")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[contact.Message])
}

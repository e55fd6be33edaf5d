package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
)

const (
	revokeTokenSQL = `INSERT INTO invalidated_tokens (token, expires_at) VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING`

	isTokenRevokedSQL = `SELECT EXISTS (SELECT 1 FROM invalidated_tokens WHERE token = $1)`

	activeRevokedTokensSQL = `SELECT token FROM invalidated_tokens WHERE expires_at > $1`

	purgeRevokedTokensSQL = `DELETE FROM invalidated_tokens WHERE expires_at <= $1`
)

var _ auth.RevokedStore = (*RevokedTokenRepository)(nil)

// RevokedTokenRepository stores logged-out access tokens until they expire.
type RevokedTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRevokedTokenRepository returns a RevokedTokenRepository that uses the given pool.
func NewRevokedTokenRepository(pool *pgxpool.Pool) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if _, err := r.pool.Exec(ctx, revokeTokenSQL, token, expiresAt); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	if err := r.pool.QueryRow(ctx, isTokenRevokedSQL, token).Scan(&revoked); err != nil {
		return false, errors.Wrap(err, "check revoked token")
	}
	return revoked, nil
}

func (r *RevokedTokenRepository) Active(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, activeRevokedTokensSQL, now)
	if err != nil {
		return nil, errors.Wrap(err, "list revoked tokens")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Purge deletes tokens that expired at or before now and returns how many
// rows were removed.
func (r *RevokedTokenRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, purgeRevokedTokensSQL, now)
	if err != nil {
		return 0, errors.Wrap(err, "purge revoked tokens")
	}
	return tag.RowsAffected(), nil
}

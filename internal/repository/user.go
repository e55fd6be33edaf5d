package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/user"
)

const (
	userColumns = `id, name, email, mobile, password_hash, is_verified, is_subscribed, is_admin,
		verification_token, reset_token, reset_token_expiry, refresh_token_hash, created_at, updated_at`

	insertUserSQL = `INSERT INTO users (name, email, mobile, password_hash, is_verified, is_subscribed,
		is_admin, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	updateUserSQL = `UPDATE users SET name = $2, mobile = $3, password_hash = $4, is_verified = $5,
		is_subscribed = $6, verification_token = $7, reset_token = $8, reset_token_expiry = $9,
		refresh_token_hash = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	upsertVerifiedUserSQL = `INSERT INTO users (name, email, password_hash, is_verified)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, is_verified = TRUE,
			verification_token = NULL, updated_at = now()
		RETURNING ` + userColumns

	getUserByIDSQL                = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL             = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByVerificationTokenSQL = `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	getUserByResetTokenSQL        = `SELECT ` + userColumns + ` FROM users
		WHERE reset_token = $1 AND reset_token_expiry > $2`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.Name, u.Email, u.Mobile, u.PasswordHash, u.IsVerified, u.IsSubscribed,
		u.IsAdmin, u.VerificationToken,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, updateUserSQL,
		u.ID, u.Name, u.Mobile, u.PasswordHash, u.IsVerified, u.IsSubscribed,
		u.VerificationToken, u.ResetToken, u.ResetTokenExpiry, u.RefreshTokenHash,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return errors.Wrapf(err, "update user %d", u.ID)
	}
	return nil
}

func (r *UserRepository) UpsertVerified(ctx context.Context, u *user.User) error {
	rows, err := r.pool.Query(ctx, upsertVerifiedUserSQL, u.Name, u.Email, u.PasswordHash)
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}
	stored, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		return errors.Wrap(err, "upsert user")
	}
	*u = stored
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*user.User, error) {
	return r.getOne(ctx, getUserByVerificationTokenSQL, token)
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*user.User, error) {
	return r.getOne(ctx, getUserByResetTokenSQL, token, now)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, args ...any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.IsVerified, &u.IsSubscribed, &u.IsAdmin,
		&u.VerificationToken, &u.ResetToken, &u.ResetTokenExpiry, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/address"
)

const (
	addressColumns = `id, user_id, full_name, phone, line1, COALESCE(line2, ''), city,
		COALESCE(postal_code, ''), country, is_default, created_at, updated_at`

	// Locks in id order so concurrent default changes for one user queue
	// instead of deadlocking.
	lockAddressesSQL = `SELECT id FROM addresses WHERE user_id = $1 ORDER BY id FOR UPDATE`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE, updated_at = now()
		WHERE user_id = $1 AND is_default AND id <> $2`

	insertAddressSQL = `INSERT INTO addresses (user_id, full_name, phone, line1, line2, city, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)
		RETURNING id, created_at, updated_at`

	updateAddressSQL = `UPDATE addresses SET full_name = $3, phone = $4, line1 = $5, line2 = NULLIF($6, ''),
		city = $7, postal_code = NULLIF($8, ''), country = $9, is_default = $10, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	setDefaultAddressSQL = `UPDATE addresses SET is_default = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC, id DESC`

	addressExistsSQL = `SELECT EXISTS (SELECT 1 FROM addresses WHERE user_id = $1)`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if a.IsDefault {
			if err := lockAddresses(ctx, tx, a.UserID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.UserID, 0); err != nil {
				return errors.Wrap(err, "clear default address")
			}
		}
		err := tx.QueryRow(ctx, insertAddressSQL,
			a.UserID, a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.PostalCode, a.Country, a.IsDefault,
		).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if isUniqueViolation(err) {
			return address.ErrDefaultConflict
		}
		if err != nil {
			return errors.Wrap(err, "insert address")
		}
		return nil
	})
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if a.IsDefault {
			if err := lockAddresses(ctx, tx, a.UserID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.UserID, a.ID); err != nil {
				return errors.Wrap(err, "clear default address")
			}
		}
		err := tx.QueryRow(ctx, updateAddressSQL,
			a.ID, a.UserID, a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.PostalCode, a.Country, a.IsDefault,
		).Scan(&a.UpdatedAt)
		if isUniqueViolation(err) {
			return address.ErrDefaultConflict
		}
		if err != nil {
			return errors.Wrapf(notFound(err, address.ErrNotFound), "update address %d", a.ID)
		}
		return nil
	})
}

func (r *AddressRepository) SetDefault(ctx context.Context, userID, id int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockAddresses(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, clearDefaultAddressSQL, userID, id); err != nil {
			return errors.Wrap(err, "clear default address")
		}
		tag, err := tx.Exec(ctx, setDefaultAddressSQL, id, userID)
		if isUniqueViolation(err) {
			return address.ErrDefaultConflict
		}
		if err != nil {
			return errors.Wrapf(err, "set default address %d", id)
		}
		if tag.RowsAffected() == 0 {
			return address.ErrNotFound
		}
		return nil
	})
}

func lockAddresses(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, lockAddressesSQL, userID); err != nil {
		return errors.Wrap(err, "lock addresses")
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id, userID)
	if err != nil {
		return errors.Wrapf(err, "delete address %d", id)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Get(ctx context.Context, userID, id int64) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get address %d", id)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get address %d", id)
	}
	return &a, nil
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID int64) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return pgx.CollectRows(rows, scanAddress)
}

func (r *AddressRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, addressExistsSQL, userID).Scan(&ok); err != nil {
		return false, errors.Wrap(err, "check address exists")
	}
	return ok, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.Line1, &a.Line2, &a.City,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

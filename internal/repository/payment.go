package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
)

const (
	findTransactionSQL = `SELECT id, order_id, amount, status, provider, transaction_id, created_at, updated_at
		FROM payment_transactions WHERE transaction_id = $1`

	applyCallbackSQL = `UPDATE payment_transactions SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending' RETURNING order_id`

	markOrderPaidSQL = `UPDATE orders SET status = 'paid', updated_at = now()
		WHERE id = $1 AND status = 'pending'`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) FindByProviderTxnID(ctx context.Context, providerTxnID string) (*payment.Transaction, error) {
	rows, err := r.pool.Query(ctx, findTransactionSQL, providerTxnID)
	if err != nil {
		return nil, errors.Wrap(err, "find transaction")
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTransactionNotFound
		}
		return nil, errors.Wrap(err, "find transaction")
	}
	return &t, nil
}

func (r *PaymentRepository) ApplyCallback(ctx context.Context, id int64, status payment.Status) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var orderID int64
		if err := tx.QueryRow(ctx, applyCallbackSQL, id, string(status)).Scan(&orderID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Found by the caller, so another callback settled it first.
				return payment.ErrAlreadySettled
			}
			return errors.Wrapf(err, "apply callback to %d", id)
		}
		if status != payment.StatusSuccess {
			return nil
		}
		if _, err := tx.Exec(ctx, markOrderPaidSQL, orderID); err != nil {
			return errors.Wrapf(err, "mark order %d paid", orderID)
		}
		return nil
	})
}

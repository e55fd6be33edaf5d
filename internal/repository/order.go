package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/coupon"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/order"
	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
)

const (
	orderColumns = `id, user_id, coupon_id, total_amount, discount_total, final_amount, payment_method,
		status, delivered_at, created_at, updated_at`

	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	insertOrderSQL = `INSERT INTO orders (user_id, coupon_id, total_amount, discount_total, final_amount,
		payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	insertPaymentSQL = `INSERT INTO payment_transactions (order_id, amount, status, provider)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`

	attachPaymentSQL = `UPDATE payment_transactions SET transaction_id = $2, updated_at = now() WHERE id = $1`

	failPaymentSQL = `UPDATE payment_transactions SET status = 'failed', updated_at = now() WHERE id = $1`

	failOrderSQL = `UPDATE orders SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status <> 'failed' RETURNING coupon_id`

	restoreStockSQL = `UPDATE products p SET stock = p.stock + oi.quantity, updated_at = now()
		FROM order_items oi WHERE oi.order_id = $1 AND oi.product_id = p.id`

	releaseCouponSQL = `UPDATE coupons SET used_count = used_count - 1 WHERE id = $1 AND used_count > 0`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT oi.order_id, oi.id, oi.product_id, p.name, oi.quantity, oi.price, oi.subtotal
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1) ORDER BY oi.id`

	listOrderPaymentsSQL = `SELECT id, order_id, amount, status, provider, transaction_id, created_at, updated_at
		FROM payment_transactions WHERE order_id = ANY($1)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, delivered_at = COALESCE($3, delivered_at), updated_at = now()
		WHERE id = $1`
)

var orderSorts = map[order.Sort]string{
	order.SortLatest:  "created_at DESC, id DESC",
	order.SortOldest:  "created_at ASC, id ASC",
	order.SortHighest: "final_amount DESC, id DESC",
	order.SortLowest:  "final_amount ASC, id ASC",
}

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Tx         = (*orderTx)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx runs fn in one database transaction.
func (r *OrderRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx})
	})
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) RedeemCoupon(ctx context.Context, couponID int64) error {
	tag, err := t.tx.Exec(ctx, redeemCouponSQL, couponID)
	if err != nil {
		return errors.Wrapf(err, "redeem coupon %d", couponID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.CouponID, o.TotalAmount, o.DiscountTotal, o.FinalAmount,
		string(o.PaymentMethod), string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		batch.Queue(insertOrderItemSQL, o.ID, it.ProductID, it.Quantity, it.Price, it.Subtotal).
			QueryRow(func(row pgx.Row) error {
				return row.Scan(&it.ID)
			})
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrapf(err, "insert items of order %d", o.ID)
	}
	return nil
}

func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return false, errors.Wrapf(err, "decrement stock of product %d", productID)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *orderTx) CreatePayment(ctx context.Context, p *payment.Transaction) error {
	err := t.tx.QueryRow(ctx, insertPaymentSQL,
		p.OrderID, p.Amount, string(p.Status), string(p.Provider),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert payment for order %d", p.OrderID)
	}
	return nil
}

func (r *OrderRepository) AttachPayment(ctx context.Context, txnID int64, providerTxnID string) error {
	tag, err := r.pool.Exec(ctx, attachPaymentSQL, txnID, providerTxnID)
	if err != nil {
		return errors.Wrapf(err, "attach payment %d", txnID)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrTransactionNotFound
	}
	return nil
}

// FailPayment marks the transaction and order failed and restores stock and
// coupon usage. Calling it again for the same order changes nothing.
func (r *OrderRepository) FailPayment(ctx context.Context, txnID, orderID int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, failPaymentSQL, txnID); err != nil {
			return errors.Wrapf(err, "fail payment %d", txnID)
		}

		var couponID *int64
		err := tx.QueryRow(ctx, failOrderSQL, orderID).Scan(&couponID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "fail order %d", orderID)
		}

		if _, err := tx.Exec(ctx, restoreStockSQL, orderID); err != nil {
			return errors.Wrapf(err, "restore stock of order %d", orderID)
		}
		if couponID != nil {
			if _, err := tx.Exec(ctx, releaseCouponSQL, *couponID); err != nil {
				return errors.Wrapf(err, "release coupon %d", *couponID)
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	orders := []order.Order{o}
	if err := r.attach(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	sort, ok := orderSorts[f.Sort]
	if !ok {
		sort = orderSorts[order.SortLatest]
	}
	sql := `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY ` + sort + ` OFFSET $3 LIMIT $4`

	rows, err := r.pool.Query(ctx, sql, f.UserID, string(f.Status), f.Offset, f.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if err := r.attach(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), deliveredAt)
	if err != nil {
		return errors.Wrapf(err, "update order %d status", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// attach loads items and payment transactions of orders.
func (r *OrderRepository) attach(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	var (
		orderID int64
		it      order.Item
	)
	_, err = pgx.ForEachRow(rows,
		[]any{&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Subtotal},
		func() error {
			o := index[orderID]
			o.Items = append(o.Items, it)
			return nil
		})
	if err != nil {
		return errors.Wrap(err, "scan order items")
	}

	rows, err = r.pool.Query(ctx, listOrderPaymentsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order payments")
	}
	txns, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return errors.Wrap(err, "scan order payments")
	}
	for i := range txns {
		index[txns[i].OrderID].Payment = &txns[i]
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		method, status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.CouponID, &o.TotalAmount, &o.DiscountTotal, &o.FinalAmount,
		&method, &status, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	o.PaymentMethod = payment.Method(method)
	o.Status = order.Status(status)
	return o, err
}

func scanTransaction(row pgx.CollectableRow) (payment.Transaction, error) {
	var (
		t                payment.Transaction
		status, provider string
	)
	err := row.Scan(&t.ID, &t.OrderID, &t.Amount, &status, &provider, &t.ProviderTxnID, &t.CreatedAt, &t.UpdatedAt)
	t.Status = payment.Status(status)
	t.Provider = payment.Method(provider)
	return t, err
}

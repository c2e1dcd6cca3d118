package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

const orderColumns = `id, order_number, user_id, COALESCE(customer_name, ''), COALESCE(customer_phone, ''),
	total, status, payment_method, paid, delivery_method, COALESCE(delivery_address, ''), COALESCE(notes, ''),
	COALESCE(verified_by, ''), verified_at, consumed_at, created_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var (
		o          entity.Order
		verifiedAt sql.NullTime
		consumedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerPhone,
		&o.Total, &o.Status, &o.PaymentMethod, &o.Paid, &o.DeliveryMethod, &o.DeliveryAddress, &o.Notes,
		&o.VerifiedBy, &verifiedAt, &consumedAt, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if verifiedAt.Valid {
		o.VerifiedAt = &verifiedAt.Time
	}
	if consumedAt.Valid {
		o.ConsumedAt = &consumedAt.Time
	}
	return o, nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID string) (*entity.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}

	orders := []entity.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepository) FindOpen(ctx context.Context) ([]entity.Order, error) {
	return r.findOrders(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status NOT IN ('completed', 'cancelled') ORDER BY created_at ASC")
}

func (r *orderRepository) FindRecentCompleted(ctx context.Context, limit int) ([]entity.Order, error) {
	return r.findOrders(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = 'completed' ORDER BY created_at DESC LIMIT $1", limit)
}

func (r *orderRepository) FindAwaitingPayment(ctx context.Context) ([]entity.Order, error) {
	return r.findOrders(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = 'pending_verification' AND paid = FALSE ORDER BY created_at ASC")
}

func (r *orderRepository) findOrders(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for all orders with a single query.
func (r *orderRepository) attachItems(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT order_id, id, product_id, product_name, price, quantity FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position, id",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    entity.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID string, from, to entity.Status) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 AND status = $3",
		to, orderID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return r.checkUpdated(ctx, res, orderID)
}

// checkUpdated tells a missing order apart from a lost compare-and-set.
func (r *orderRepository) checkUpdated(ctx context.Context, res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up order %s: %w", orderID, err)
	}
	if !exists {
		return entity.ErrOrderNotFound
	}
	return entity.ErrStatusConflict
}

func (r *orderRepository) Complete(ctx context.Context, orderID string, from entity.Status) (map[string]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		status     entity.Status
		consumedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, "SELECT status, consumed_at FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&status, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if consumedAt.Valid {
		return nil, entity.ErrAlreadyConsumed
	}
	if status != from {
		return nil, entity.ErrStatusConflict
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, consumed_at = NOW() WHERE id = $2",
		entity.StatusCompleted, orderID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark order completed: %w", err)
	}

	needs, err := orderNeeds(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	consumed := make(map[string]int, len(needs))
	for productID, qty := range needs {
		var taken int
		err := tx.QueryRowContext(ctx, `
			WITH old AS (SELECT qty FROM prepared_inventory WHERE product_id = $1 FOR UPDATE)
			UPDATE prepared_inventory p
			SET qty = GREATEST(p.qty - $2, 0), updated_at = NOW()
			FROM old
			WHERE p.product_id = $1
			RETURNING old.qty - p.qty`,
			productID, qty,
		).Scan(&taken)
		if errors.Is(err, sql.ErrNoRows) {
			continue // nothing prepared for this product
		}
		if err != nil {
			return nil, fmt.Errorf("failed to consume prepared stock for %s: %w", productID, err)
		}
		if taken > 0 {
			consumed[productID] = taken
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return consumed, nil
}

func orderNeeds(ctx context.Context, tx *sql.Tx, orderID string) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT product_id, SUM(quantity) FROM order_items WHERE order_id = $1 GROUP BY product_id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	needs := make(map[string]int)
	for rows.Next() {
		var (
			productID string
			qty       int
		)
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		needs[productID] = qty
	}
	return needs, rows.Err()
}

func (r *orderRepository) VerifyPayment(ctx context.Context, orderID, staffID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET paid = TRUE, status = $1, verified_by = $2, verified_at = $3
		WHERE id = $4 AND status = $5`,
		entity.StatusConfirmed, staffID, at, orderID, entity.StatusPendingVerification,
	)
	if err != nil {
		return fmt.Errorf("failed to verify payment: %w", err)
	}
	return r.paymentUpdated(ctx, res, orderID)
}

func (r *orderRepository) RejectPayment(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET paid = FALSE, status = $1, verified_by = NULL, verified_at = NULL
		WHERE id = $2 AND status = $3`,
		entity.StatusCancelled, orderID, entity.StatusPendingVerification,
	)
	if err != nil {
		return fmt.Errorf("failed to reject payment: %w", err)
	}
	return r.paymentUpdated(ctx, res, orderID)
}

func (r *orderRepository) paymentUpdated(ctx context.Context, res sql.Result, orderID string) error {
	err := r.checkUpdated(ctx, res, orderID)
	if errors.Is(err, entity.ErrStatusConflict) {
		return entity.ErrNotAwaitingPayment
	}
	return err
}

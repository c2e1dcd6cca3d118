package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

type preparedRepository struct {
	db *sql.DB
}

// NewPreparedStockRepository creates the prepared pool backed by the prepared_inventory table.
func NewPreparedStockRepository(db *sql.DB) repository.PreparedStockRepository {
	return &preparedRepository{db: db}
}

// Add increments the product's row server side and returns the new total.
func (r *preparedRepository) Add(ctx context.Context, productID string, qty int) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO prepared_inventory (product_id, qty, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (product_id) DO UPDATE
		SET qty = prepared_inventory.qty + EXCLUDED.qty, updated_at = NOW()
		RETURNING qty`,
		productID, qty,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to add prepared qty for %s: %w", productID, err)
	}
	return total, nil
}

func (r *preparedRepository) Remove(ctx context.Context, productID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM prepared_inventory WHERE product_id = $1", productID); err != nil {
		return fmt.Errorf("failed to remove prepared entry %s: %w", productID, err)
	}
	return nil
}

func (r *preparedRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM prepared_inventory"); err != nil {
		return fmt.Errorf("failed to clear prepared inventory: %w", err)
	}
	return nil
}

func (r *preparedRepository) List(ctx context.Context) ([]entity.PreparedStock, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT product_id, qty, updated_at FROM prepared_inventory WHERE qty > 0 ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query prepared inventory: %w", err)
	}
	defer rows.Close()

	var stock []entity.PreparedStock
	for rows.Next() {
		var s entity.PreparedStock
		if err := rows.Scan(&s.ProductID, &s.Qty, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prepared row: %w", err)
		}
		stock = append(stock, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prepared rows: %w", err)
	}
	return stock, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
)

// ListPrepared returns the prepared pool, most recently updated first.
func (s *OrderService) ListPrepared(ctx context.Context) ([]entity.PreparedStock, error) {
	stock, err := s.prepared.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prepared inventory: %w", err)
	}
	return stock, nil
}

// AddBatch records a finished batch. Invalid quantities are clamped to
// zero and an empty batch is a no-op. Returns the product's new total.
func (s *OrderService) AddBatch(ctx context.Context, productID string, rawQty float64) (int, error) {
	qty := fulfillment.ClampQty(rawQty)
	if productID == "" || qty <= 0 {
		slog.Debug("Ignoring empty batch", "product_id", productID, "qty", rawQty)
		return 0, nil
	}

	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up product: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", entity.ErrProductNotFound, productID)
	}

	total, err := s.prepared.Add(ctx, productID, qty)
	if err != nil {
		return 0, err
	}

	s.metrics.PreparedAdded.Add(float64(qty))
	s.metrics.PreparedUnits.WithLabelValues(productID).Set(float64(total))
	slog.Info("Service: Batch added", "product_id", productID, "qty", qty, "total", total)

	s.events.preparedChanged(ctx, entity.PreparedStockChanged{
		Op:        entity.PreparedAdded,
		ProductID: productID,
		Delta:     qty,
		ChangedAt: s.now(),
	})
	return total, nil
}

// RemovePrepared drops one product from the pool.
func (s *OrderService) RemovePrepared(ctx context.Context, productID string) error {
	if err := s.prepared.Remove(ctx, productID); err != nil {
		return err
	}
	s.metrics.PreparedUnits.DeleteLabelValues(productID)
	slog.Info("Service: Prepared entry removed", "product_id", productID)

	s.events.preparedChanged(ctx, entity.PreparedStockChanged{
		Op:        entity.PreparedRemoved,
		ProductID: productID,
		ChangedAt: s.now(),
	})
	return nil
}

// ClearPrepared empties the pool, e.g. at the start of a new day.
func (s *OrderService) ClearPrepared(ctx context.Context) error {
	if err := s.prepared.Clear(ctx); err != nil {
		return err
	}
	s.metrics.PreparedUnits.Reset()
	slog.Info("Service: Prepared inventory cleared")

	s.events.preparedChanged(ctx, entity.PreparedStockChanged{
		Op:        entity.PreparedCleared,
		ChangedAt: s.now(),
	})
	return nil
}

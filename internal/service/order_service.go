package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

// recentCompletedLimit bounds the completed sector of the board.
const recentCompletedLimit = 50

// OrderService drives order status and the FIFO promotion of ready orders.
type OrderService struct {
	orders   repository.OrderRepository
	prepared repository.PreparedStockRepository
	products repository.ProductRepository
	history  repository.HistoryLog
	events   eventSink
	metrics  *metrics.Registry
	policy   fulfillment.PromotionPolicy
	now      func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	prepared repository.PreparedStockRepository,
	products repository.ProductRepository,
	history repository.HistoryLog,
	publisher messaging.Publisher,
	notifier Notifier,
	reg *metrics.Registry,
	policy fulfillment.PromotionPolicy,
) *OrderService {
	return &OrderService{
		orders:   orders,
		prepared: prepared,
		products: products,
		history:  history,
		events:   eventSink{history: history, publisher: publisher, notifier: notifier},
		metrics:  reg,
		policy:   policy,
		now:      time.Now,
	}
}

// GetProducts returns the catalog.
func (s *OrderService) GetProducts(ctx context.Context) ([]entity.Product, error) {
	return s.products.FindAll(ctx)
}

// Snapshot is what a staff board needs to render.
type Snapshot struct {
	Open      []entity.Order         `json:"open"`
	Completed []entity.Order         `json:"completed"`
	Prepared  []entity.PreparedStock `json:"prepared"`
}

// GetSnapshot returns the staff-visible open orders (oldest first),
// recently completed orders and the prepared pool.
func (s *OrderService) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	open, err := s.workingOrders(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.orders.FindRecentCompleted(ctx, recentCompletedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed orders: %w", err)
	}
	stock, err := s.prepared.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prepared inventory: %w", err)
	}
	return &Snapshot{
		Open:      open,
		Completed: fulfillment.Visible(completed, fulfillment.FilterAll),
		Prepared:  stock,
	}, nil
}

func (s *OrderService) workingOrders(ctx context.Context) ([]entity.Order, error) {
	orders, err := s.orders.FindOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}
	return fulfillment.Visible(fulfillment.Working(orders), fulfillment.FilterAll), nil
}

// GetHistory returns the recorded events of one order.
func (s *OrderService) GetHistory(ctx context.Context, orderID string) ([]entity.HistoryRecord, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return s.history.Load(ctx, orderID)
}

// SetStatus moves an order to status to on behalf of staff. Setting the
// current status again succeeds without writing.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, to entity.Status) error {
	slog.Info("Service: Updating order status", "order_id", orderID, "to", to)

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order.Status == to {
		return nil
	}
	if err := entity.ValidateTransition(order.Status, to); err != nil {
		slog.Warn("Rejected status transition", "order_id", orderID, "from", order.Status, "to", to)
		s.metrics.StatusFailures.WithLabelValues(string(to)).Inc()
		return err
	}
	return s.transition(ctx, order, to, "staff")
}

// transition persists order.Status → to, guarded by the status we read.
func (s *OrderService) transition(ctx context.Context, order *entity.Order, to entity.Status, reason string) error {
	from := order.Status

	if to == entity.StatusCompleted {
		consumed, err := s.orders.Complete(ctx, order.ID, from)
		if err != nil {
			s.metrics.StatusFailures.WithLabelValues(string(to)).Inc()
			return fmt.Errorf("failed to complete order %s: %w", order.ID, err)
		}
		units := 0
		for _, qty := range consumed {
			units += qty
		}
		s.metrics.PreparedConsumed.Add(float64(units))
		s.events.preparedChanged(ctx, entity.PreparedStockChanged{
			Op:        entity.PreparedConsumed,
			OrderID:   order.ID,
			Delta:     units,
			ChangedAt: s.now(),
		})
		slog.Info("Prepared stock consumed", "order_id", order.ID, "units", units)
	} else if err := s.orders.UpdateStatus(ctx, order.ID, from, to); err != nil {
		s.metrics.StatusFailures.WithLabelValues(string(to)).Inc()
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	s.metrics.StatusChanges.WithLabelValues(string(to)).Inc()
	s.events.orderChanged(ctx, order.ID, entity.OrderStatusChanged{
		OrderID:   order.ID,
		From:      from,
		To:        to,
		Reason:    reason,
		ChangedAt: s.now(),
	})
	order.Status = to
	return nil
}

// Skip records a satisfied order the allocator did not promote.
type Skip struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// FIFOResult is the outcome of one allocation run.
type FIFOResult struct {
	Allocation fulfillment.Allocation `json:"allocation"`
	Verdicts   []fulfillment.Verdict  `json:"verdicts"`
	Promoted   []string               `json:"promoted"`
	Skipped    []Skip                 `json:"skipped"`
}

const reasonConflict = "conflict"

// ApplyFIFO allocates the prepared pool to open orders oldest first and
// moves every fully covered, eligible order to ready. An order changed
// by someone else since the snapshot is skipped, not overwritten.
func (s *OrderService) ApplyFIFO(ctx context.Context) (*FIFOResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.AllocationRuns.Inc()
		s.metrics.AllocationSecs.Observe(time.Since(start).Seconds())
	}()

	orders, err := s.workingOrders(ctx)
	if err != nil {
		return nil, err
	}
	stock, err := s.prepared.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prepared inventory: %w", err)
	}

	result := &FIFOResult{Allocation: fulfillment.Allocation{}}
	if len(stock) == 0 {
		slog.Info("Service: FIFO skipped, prepared pool is empty")
		return result, nil
	}

	result.Allocation = fulfillment.Allocate(orders, fulfillment.Prepared(stock))
	result.Verdicts = fulfillment.Decide(orders, result.Allocation, s.policy)

	byID := make(map[string]*entity.Order, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	var failures []error
	for _, v := range result.Verdicts {
		if !v.Promote {
			if v.Satisfied {
				s.metrics.PromotionSkips.WithLabelValues(v.Reason).Inc()
				result.Skipped = append(result.Skipped, Skip{OrderID: v.OrderID, Reason: v.Reason})
			}
			continue
		}
		if v.NoItems {
			slog.Warn("Promoting order without line items", "order_id", v.OrderID)
		}

		err := s.transition(ctx, byID[v.OrderID], entity.StatusReady, "fifo")
		switch {
		case errors.Is(err, entity.ErrStatusConflict), errors.Is(err, entity.ErrOrderNotFound):
			slog.Info("Order changed since snapshot, skipping", "order_id", v.OrderID)
			s.metrics.PromotionSkips.WithLabelValues(reasonConflict).Inc()
			result.Skipped = append(result.Skipped, Skip{OrderID: v.OrderID, Reason: reasonConflict})
		case err != nil:
			failures = append(failures, err)
		default:
			s.metrics.OrdersPromoted.Inc()
			result.Promoted = append(result.Promoted, v.OrderID)
		}
	}

	slog.Info("Service: FIFO applied", "orders", len(orders), "promoted", len(result.Promoted), "skipped", len(result.Skipped))
	return result, errors.Join(failures...)
}

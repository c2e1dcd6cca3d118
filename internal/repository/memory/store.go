// Package memory implements the repository interfaces in process. It is
// used by tests and by the memory store driver for local runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// Store keeps orders, products, the prepared pool and history in maps.
// It satisfies OrderRepository, ProductRepository,
// PreparedStockRepository and HistoryLog.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]entity.Order
	products map[string]entity.Product
	prepared map[string]entity.PreparedStock
	history  map[string][]entity.HistoryRecord
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		orders:   make(map[string]entity.Order),
		products: make(map[string]entity.Product),
		prepared: make(map[string]entity.PreparedStock),
		history:  make(map[string][]entity.HistoryRecord),
		now:      time.Now,
	}
}

// WithClock replaces the time source used for updated_at and consumed_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// PutOrder inserts or replaces an order, standing in for checkout.
func (s *Store) PutOrder(o entity.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (s *Store) collect(keep func(entity.Order) bool) []entity.Order {
	var out []entity.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func (s *Store) FindByID(ctx context.Context, orderID string) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) FindOpen(ctx context.Context) ([]entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.collect(func(o entity.Order) bool { return !o.Status.Terminal() })
	sortOldestFirst(out)
	return out, nil
}

func (s *Store) FindRecentCompleted(ctx context.Context, limit int) ([]entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.collect(func(o entity.Order) bool { return o.Status == entity.StatusCompleted })
	sortOldestFirst(out)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindAwaitingPayment(ctx context.Context) ([]entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.collect(func(o entity.Order) bool {
		return o.Status == entity.StatusPendingVerification && !o.Paid
	})
	sortOldestFirst(out)
	return out, nil
}

// sortOldestFirst orders by creation time, then id, so map iteration
// order never leaks into results.
func sortOldestFirst(orders []entity.Order) {
	slices.SortFunc(orders, func(a, b entity.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func (s *Store) UpdateStatus(ctx context.Context, orderID string, from, to entity.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	if o.Status != from {
		return entity.ErrStatusConflict
	}
	o.Status = to
	s.orders[orderID] = o
	return nil
}

func (s *Store) Complete(ctx context.Context, orderID string, from entity.Status) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	if o.ConsumedAt != nil {
		return nil, entity.ErrAlreadyConsumed
	}
	if o.Status != from {
		return nil, entity.ErrStatusConflict
	}

	now := s.now()
	o.Status = entity.StatusCompleted
	o.ConsumedAt = &now
	s.orders[orderID] = o

	consumed := make(map[string]int)
	for _, item := range o.Items {
		row, ok := s.prepared[item.ProductID]
		if !ok {
			continue
		}
		taken := min(row.Qty, item.Quantity)
		if taken <= 0 {
			continue
		}
		row.Qty -= taken
		row.UpdatedAt = now
		s.prepared[item.ProductID] = row
		consumed[item.ProductID] += taken
	}
	return consumed, nil
}

func (s *Store) VerifyPayment(ctx context.Context, orderID, staffID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	if o.Status != entity.StatusPendingVerification {
		return entity.ErrNotAwaitingPayment
	}
	o.Paid = true
	o.Status = entity.StatusConfirmed
	o.VerifiedBy = staffID
	o.VerifiedAt = &at
	s.orders[orderID] = o
	return nil
}

func (s *Store) RejectPayment(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	if o.Status != entity.StatusPendingVerification {
		return entity.ErrNotAwaitingPayment
	}
	o.Paid = false
	o.Status = entity.StatusCancelled
	o.VerifiedBy = ""
	o.VerifiedAt = nil
	s.orders[orderID] = o
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b entity.Product) int {
		switch {
		case a.Category != b.Category:
			if a.Category < b.Category {
				return -1
			}
			return 1
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) Exists(ctx context.Context, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[productID]
	return ok, nil
}

func (s *Store) Seed(ctx context.Context, products []entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) > 0 {
		return nil
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}

func (s *Store) Add(ctx context.Context, productID string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.prepared[productID]
	row.ProductID = productID
	row.Qty += qty
	row.UpdatedAt = s.now()
	s.prepared[productID] = row
	return row.Qty, nil
}

func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prepared, productID)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.prepared)
	return nil
}

func (s *Store) List(ctx context.Context) ([]entity.PreparedStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.PreparedStock, 0, len(s.prepared))
	for _, row := range s.prepared {
		if row.Qty > 0 {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, func(a, b entity.PreparedStock) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *Store) Append(ctx context.Context, streamID, streamType string, events ...entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := len(s.history[streamID])
	now := s.now()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		version++
		s.history[streamID] = append(s.history[streamID], entity.HistoryRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}
	return nil
}

func (s *Store) Load(ctx context.Context, streamID string) ([]entity.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history[streamID]), nil
}

// Package board keeps the staff-facing snapshot of open orders and the
// prepared pool. Status changes are shown optimistically and reconciled
// against the store once the write settles.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/service"
)

// Source is the authoritative side of the board.
type Source interface {
	GetSnapshot(ctx context.Context) (*service.Snapshot, error)
	SetStatus(ctx context.Context, orderID string, to entity.Status) error
	ApplyFIFO(ctx context.Context) (*service.FIFOResult, error)
}

// ChangeFeed delivers refresh triggers from other sessions.
type ChangeFeed interface {
	Listen(ctx context.Context, onChange func(ctx context.Context, eventType string) error) error
}

type Board struct {
	src     Source
	metrics *metrics.Registry
	log     *slog.Logger

	mu        sync.Mutex
	snap      service.Snapshot
	alloc     fulfillment.Allocation
	overrides map[string]entity.Status
	lastRun   *service.FIFOResult
	started   uint64
	applied   uint64
	refreshed time.Time
}

func New(src Source, reg *metrics.Registry) *Board {
	return &Board{
		src:       src,
		metrics:   reg,
		log:       slog.With("component", "board"),
		alloc:     fulfillment.Allocation{},
		overrides: make(map[string]entity.Status),
	}
}

// Refresh replaces the snapshot with a fresh read. When refreshes
// overlap, the one started last wins.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.started++
	seq := b.started
	b.mu.Unlock()

	snap, err := b.src.GetSnapshot(ctx)
	if err != nil {
		b.metrics.BoardRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to refresh board: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		b.metrics.BoardRefreshes.WithLabelValues("stale").Inc()
		return nil
	}
	b.applied = seq
	b.snap = *snap
	b.alloc = fulfillment.Allocate(snap.Open, fulfillment.Prepared(snap.Prepared))
	b.refreshed = time.Now()
	b.metrics.BoardRefreshes.WithLabelValues("ok").Inc()
	return nil
}

// SetStatus shows the new status at once, flagged pending, and writes it
// through. If the write fails every override is dropped and the board is
// reloaded, so what staff see matches the store again.
func (b *Board) SetStatus(ctx context.Context, orderID string, to entity.Status) error {
	b.mu.Lock()
	b.overrides[orderID] = to
	b.mu.Unlock()

	err := b.src.SetStatus(ctx, orderID, to)

	b.mu.Lock()
	if err != nil {
		clear(b.overrides)
	} else {
		delete(b.overrides, orderID)
		b.setLocal(orderID, to)
	}
	b.mu.Unlock()

	if rerr := b.Refresh(ctx); rerr != nil {
		b.log.Warn("Refresh after status change failed", "order_id", orderID, "err", rerr)
	}
	return err
}

// setLocal patches the cached order until the next refresh lands.
func (b *Board) setLocal(orderID string, to entity.Status) {
	for i := range b.snap.Open {
		if b.snap.Open[i].ID == orderID {
			b.snap.Open[i].Status = to
			return
		}
	}
}

// ApplyFIFO runs an allocation pass and keeps its result for display.
func (b *Board) ApplyFIFO(ctx context.Context) (*service.FIFOResult, error) {
	res, err := b.src.ApplyFIFO(ctx)
	if res != nil {
		b.mu.Lock()
		b.lastRun = res
		b.mu.Unlock()
	}
	if rerr := b.Refresh(ctx); rerr != nil {
		b.log.Warn("Refresh after FIFO failed", "err", rerr)
	}
	return res, err
}

// Listen refreshes the board on every change notification until ctx ends.
func (b *Board) Listen(ctx context.Context, feed ChangeFeed) error {
	return feed.Listen(ctx, func(ctx context.Context, eventType string) error {
		b.log.Debug("Change notification", "event", eventType)
		return b.Refresh(ctx)
	})
}

// HandleOrderPlaced consumes an orders.placed message from checkout.
func (b *Board) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var ev entity.OrderPlaced
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("failed to unmarshal order placed event: %w", err)
	}
	b.log.Info("New order placed", "order_id", ev.OrderID)
	return b.Refresh(ctx)
}

package service

import (
	"context"
	"log/slog"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

// Notifier pushes a refresh trigger to every staff board.
type Notifier interface {
	Notify(ctx context.Context, event entity.Event) error
}

// preparedStream is the single history stream for pool mutations.
const preparedStream = "prepared_inventory"

// eventSink fans a committed change out to history, Kafka and the change
// feed. The store write already succeeded, so failures here are logged
// and never undo it.
type eventSink struct {
	history   repository.HistoryLog
	publisher messaging.Publisher
	notifier  Notifier
}

func (e eventSink) orderChanged(ctx context.Context, orderID string, events ...entity.Event) {
	if err := e.history.Append(ctx, orderID, entity.StreamOrder, events...); err != nil {
		slog.Error("Failed to append order history", "order_id", orderID, "err", err)
	}
	for _, ev := range events {
		if err := e.publisher.PublishEvent(ctx, messaging.TopicOrdersStatus, orderID, ev); err != nil {
			slog.Error("Failed to publish order event", "order_id", orderID, "event", ev.EventType(), "err", err)
		}
	}
	if len(events) > 0 {
		e.notify(ctx, events[len(events)-1])
	}
}

func (e eventSink) preparedChanged(ctx context.Context, ev entity.PreparedStockChanged) {
	if err := e.history.Append(ctx, preparedStream, entity.StreamPrepared, ev); err != nil {
		slog.Error("Failed to append prepared history", "op", ev.Op, "err", err)
	}
	e.notify(ctx, ev)
}

func (e eventSink) notify(ctx context.Context, ev entity.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		slog.Error("Failed to notify staff boards", "event", ev.EventType(), "err", err)
	}
}

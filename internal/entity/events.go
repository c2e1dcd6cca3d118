package entity

import (
	"encoding/json"
	"time"
)

// Event represents a domain event.
type Event interface {
	EventType() string
}

// HistoryRecord represents an event stored in the history log.
type HistoryRecord struct {
	ID         string          `json:"id"`
	StreamID   string          `json:"stream_id"`
	StreamType string          `json:"stream_type"`
	Version    int             `json:"version"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	StreamOrder    = "order"
	StreamPrepared = "prepared"
)

// OrderPlaced is emitted by checkout when a new order lands in the store.
type OrderPlaced struct {
	OrderID  string    `json:"order_id"`
	PlacedAt time.Time `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted after a status change was persisted.
type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// PaymentVerified is emitted when staff accept a transfer proof.
type PaymentVerified struct {
	OrderID    string    `json:"order_id"`
	VerifiedBy string    `json:"verified_by"`
	VerifiedAt time.Time `json:"verified_at"`
}

func (e PaymentVerified) EventType() string { return "PaymentVerified" }

// PaymentRejected is emitted when staff reject a transfer proof.
type PaymentRejected struct {
	OrderID    string    `json:"order_id"`
	RejectedAt time.Time `json:"rejected_at"`
}

func (e PaymentRejected) EventType() string { return "PaymentRejected" }

// PreparedOp names the pool mutation behind a PreparedStockChanged event.
type PreparedOp string

const (
	PreparedAdded    PreparedOp = "added"
	PreparedRemoved  PreparedOp = "removed"
	PreparedCleared  PreparedOp = "cleared"
	PreparedConsumed PreparedOp = "consumed"
)

// PreparedStockChanged signals that the prepared pool moved. Listeners
// only use it as a refresh trigger.
type PreparedStockChanged struct {
	Op        PreparedOp `json:"op"`
	ProductID string     `json:"product_id,omitempty"`
	OrderID   string     `json:"order_id,omitempty"`
	Delta     int        `json:"delta,omitempty"`
	ChangedAt time.Time  `json:"changed_at"`
}

func (e PreparedStockChanged) EventType() string { return "PreparedStockChanged" }

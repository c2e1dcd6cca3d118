package repository

import (
	"context"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]entity.Product, error)
	Exists(ctx context.Context, productID string) (bool, error)
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// OrderRepository handles persistence for Orders. Only status and
// payment verification fields are written here; checkout owns creation.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (*entity.Order, error)
	// FindOpen returns every order not yet completed or cancelled, oldest first.
	FindOpen(ctx context.Context) ([]entity.Order, error)
	FindRecentCompleted(ctx context.Context, limit int) ([]entity.Order, error)
	FindAwaitingPayment(ctx context.Context) ([]entity.Order, error)
	// UpdateStatus moves the order from → to, failing with
	// entity.ErrStatusConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, orderID string, from, to entity.Status) error
	// Complete marks the order completed and consumes its line items from
	// the prepared pool in one atomic step. Completing twice returns
	// entity.ErrAlreadyConsumed and leaves the pool untouched.
	Complete(ctx context.Context, orderID string, from entity.Status) (map[string]int, error)
	VerifyPayment(ctx context.Context, orderID, staffID string, at time.Time) error
	RejectPayment(ctx context.Context, orderID string) error
}

// PreparedStockRepository is the shared prepared-quantity pool. Every
// mutation is atomic in the backing store.
type PreparedStockRepository interface {
	Add(ctx context.Context, productID string, qty int) (int, error)
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
	// List returns rows with a positive quantity, most recently updated first.
	List(ctx context.Context) ([]entity.PreparedStock, error)
}

// HistoryLog appends and loads events for a stream.
type HistoryLog interface {
	Append(ctx context.Context, streamID, streamType string, events ...entity.Event) error
	Load(ctx context.Context, streamID string) ([]entity.HistoryRecord, error)
}

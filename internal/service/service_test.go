package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []entity.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event entity.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type fixture struct {
	store    *memory.Store
	pub      *recordingPublisher
	notifier *recordingNotifier
	orders   *OrderService
	payments *PaymentService
}

func newFixture(t *testing.T, policy fulfillment.PromotionPolicy) *fixture {
	t.Helper()
	store := memory.NewStore()
	if err := store.Seed(context.Background(), entity.BakeryCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pub := &recordingPublisher{}
	n := &recordingNotifier{}
	reg := metrics.NewRegistry()
	return &fixture{
		store:    store,
		pub:      pub,
		notifier: n,
		orders:   NewOrderService(store, store, store, store, pub, n, reg, policy),
		payments: NewPaymentService(store, store, pub, n, reg),
	}
}

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func putOrder(f *fixture, id string, minute int, status entity.Status, items ...entity.OrderItem) {
	f.store.PutOrder(entity.Order{
		ID:             id,
		OrderNumber:    "ORD-" + id,
		Status:         status,
		PaymentMethod:  entity.PaymentCash,
		DeliveryMethod: entity.DeliveryPickup,
		CreatedAt:      base.Add(time.Duration(minute) * time.Minute),
		Items:          items,
	})
}

func need(productID string, qty int) entity.OrderItem {
	return entity.OrderItem{ID: productID + "-item", ProductID: productID, Quantity: qty}
}

func TestApplyFIFO_PromotesEarliestAndConsumesOnCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "A", 1, entity.StatusPreparing, need("1", 6))
	putOrder(f, "B", 2, entity.StatusPreparing, need("1", 6))

	if _, err := f.orders.AddBatch(ctx, "1", 10); err != nil {
		t.Fatalf("add batch: %v", err)
	}

	res, err := f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("apply fifo: %v", err)
	}
	if res.Allocation.For("A", "1") != 6 || res.Allocation.For("B", "1") != 4 {
		t.Fatalf("unexpected allocation: %+v", res.Allocation)
	}
	if len(res.Promoted) != 1 || res.Promoted[0] != "A" {
		t.Fatalf("want only A promoted, got %v", res.Promoted)
	}

	a, _ := f.store.FindByID(ctx, "A")
	b, _ := f.store.FindByID(ctx, "B")
	if a.Status != entity.StatusReady || b.Status != entity.StatusPreparing {
		t.Fatalf("statuses: A=%s B=%s", a.Status, b.Status)
	}

	if err := f.orders.SetStatus(ctx, "A", entity.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	stock, _ := f.orders.ListPrepared(ctx)
	if len(stock) != 1 || stock[0].Qty != 4 {
		t.Fatalf("want 4 left after consume, got %+v", stock)
	}

	res, err = f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Allocation.For("B", "1") != 4 {
		t.Fatalf("B should now get the remaining 4: %+v", res.Allocation)
	}
	if len(res.Promoted) != 0 {
		t.Fatalf("B is still short, nothing to promote: %v", res.Promoted)
	}
}

func TestSetStatus_CompletingTwiceConsumesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "A", 1, entity.StatusReady, need("1", 3))
	f.orders.AddBatch(ctx, "1", 5)

	for i := 0; i < 2; i++ {
		if err := f.orders.SetStatus(ctx, "A", entity.StatusCompleted); err != nil {
			t.Fatalf("complete #%d: %v", i+1, err)
		}
	}

	stock, _ := f.orders.ListPrepared(ctx)
	if len(stock) != 1 || stock[0].Qty != 2 {
		t.Fatalf("want 2 left, got %+v", stock)
	}
	if _, err := f.store.Complete(ctx, "A", entity.StatusCompleted); !errors.Is(err, entity.ErrAlreadyConsumed) {
		t.Fatalf("repository should refuse a second consume, got %v", err)
	}
}

func TestSetStatus_RejectsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "A", 1, entity.StatusCompleted, need("1", 1))
	putOrder(f, "B", 2, entity.StatusPreparing, need("1", 1))

	if err := f.orders.SetStatus(ctx, "A", entity.StatusReady); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
	if err := f.orders.SetStatus(ctx, "B", entity.StatusPending); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
	if err := f.orders.SetStatus(ctx, "missing", entity.StatusReady); !errors.Is(err, entity.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("rejected transitions must not publish: %v", f.pub.events)
	}
}

func TestSetStatus_ManualReadyOverrideAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "A", 1, entity.StatusPreparing, need("1", 10))

	// No stock at all: staff may still mark it ready.
	if err := f.orders.SetStatus(ctx, "A", entity.StatusReady); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if err := f.orders.SetStatus(ctx, "A", entity.StatusReady); err != nil {
		t.Fatalf("same status should be a no-op: %v", err)
	}

	hist, err := f.orders.GetHistory(ctx, "A")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].EventType != "OrderStatusChanged" {
		t.Fatalf("unexpected history: %+v", hist)
	}
	if len(f.pub.topics) != 1 || f.pub.topics[0] != "orders.status" {
		t.Fatalf("unexpected publishes: %v", f.pub.topics)
	}
	if len(f.notifier.events) != 1 {
		t.Fatalf("want one board notification, got %d", len(f.notifier.events))
	}
}

func TestApplyFIFO_PreparingPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromotePreparing)
	putOrder(f, "A", 1, entity.StatusConfirmed, need("1", 1))
	putOrder(f, "B", 2, entity.StatusPreparing, need("1", 1))
	f.orders.AddBatch(ctx, "1", 5)

	res, err := f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("apply fifo: %v", err)
	}
	if len(res.Promoted) != 1 || res.Promoted[0] != "B" {
		t.Fatalf("want only B promoted, got %v", res.Promoted)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != fulfillment.ReasonNotEligible {
		t.Fatalf("A should be skipped as not eligible: %+v", res.Skipped)
	}
	a, _ := f.store.FindByID(ctx, "A")
	if a.Status != entity.StatusConfirmed {
		t.Fatalf("confirmed order moved to %s", a.Status)
	}
}

func TestApplyFIFO_HiddenAndTerminalOrdersGetNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	f.store.PutOrder(entity.Order{
		ID:            "unpaid",
		Status:        entity.StatusPending,
		PaymentMethod: entity.PaymentBCA,
		CreatedAt:     base,
		Items:         []entity.OrderItem{need("1", 2)},
	})
	putOrder(f, "gone", 1, entity.StatusCancelled, need("1", 2))
	putOrder(f, "A", 2, entity.StatusPreparing, need("1", 2))
	f.orders.AddBatch(ctx, "1", 2)

	res, err := f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("apply fifo: %v", err)
	}
	if res.Allocation.For("A", "1") != 2 {
		t.Fatalf("A should receive all stock: %+v", res.Allocation)
	}
	if _, ok := res.Allocation["unpaid"]; ok {
		t.Fatalf("unpaid transfer order must be excluded")
	}
	if _, ok := res.Allocation["gone"]; ok {
		t.Fatalf("cancelled order must be excluded")
	}
}

func TestApplyFIFO_EmptyPoolIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "empty", 1, entity.StatusPreparing)

	res, err := f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("apply fifo: %v", err)
	}
	if len(res.Promoted) != 0 || len(res.Allocation) != 0 {
		t.Fatalf("empty pool should do nothing: %+v", res)
	}
}

// Zero-item orders are promoted once any stock exists. Kept as observed
// behavior and flagged by the NoItems verdict for review.
func TestApplyFIFO_ZeroItemOrderPromoted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	putOrder(f, "empty", 1, entity.StatusPreparing)
	f.orders.AddBatch(ctx, "1", 1)

	res, err := f.orders.ApplyFIFO(ctx)
	if err != nil {
		t.Fatalf("apply fifo: %v", err)
	}
	if len(res.Promoted) != 1 || !res.Verdicts[0].NoItems {
		t.Fatalf("zero-item order should be promoted and flagged: %+v", res)
	}
}

func TestAddBatch_ClampsAndValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)

	f.orders.AddBatch(ctx, "1", 3)
	if total, err := f.orders.AddBatch(ctx, "1", -5); err != nil || total != 0 {
		t.Fatalf("negative batch: total=%d err=%v", total, err)
	}
	if total, err := f.orders.AddBatch(ctx, "1", 2.7); err != nil || total != 5 {
		t.Fatalf("fractional batch: total=%d err=%v", total, err)
	}
	if _, err := f.orders.AddBatch(ctx, "", 4); err != nil {
		t.Fatalf("empty product should be ignored: %v", err)
	}
	if _, err := f.orders.AddBatch(ctx, "nope", 4); !errors.Is(err, entity.ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound, got %v", err)
	}

	stock, _ := f.orders.ListPrepared(ctx)
	if len(stock) != 1 || stock[0].Qty != 5 {
		t.Fatalf("want 5, got %+v", stock)
	}
}

func TestRemoveAndClearPrepared(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	f.orders.AddBatch(ctx, "1", 3)
	f.orders.AddBatch(ctx, "2", 3)

	if err := f.orders.RemovePrepared(ctx, "1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stock, _ := f.orders.ListPrepared(ctx)
	if len(stock) != 1 || stock[0].ProductID != "2" {
		t.Fatalf("after remove: %+v", stock)
	}

	if err := f.orders.ClearPrepared(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stock, _ = f.orders.ListPrepared(ctx)
	if len(stock) != 0 {
		t.Fatalf("after clear: %+v", stock)
	}

	hist, _ := f.store.Load(ctx, preparedStream)
	if len(hist) != 4 {
		t.Fatalf("want 4 prepared history records, got %d", len(hist))
	}
}

func TestPaymentVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fulfillment.PromoteOpen)
	for _, id := range []string{"V", "R"} {
		f.store.PutOrder(entity.Order{
			ID:            id,
			Status:        entity.StatusPendingVerification,
			PaymentMethod: entity.PaymentBCA,
			CreatedAt:     base,
			Items:         []entity.OrderItem{need("1", 1)},
		})
	}

	awaiting, err := f.payments.AwaitingPayment(ctx)
	if err != nil || len(awaiting) != 2 {
		t.Fatalf("awaiting: %d %v", len(awaiting), err)
	}

	if err := f.payments.VerifyPayment(ctx, "V", "staff-7"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := f.payments.RejectPayment(ctx, "R"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := f.payments.RejectPayment(ctx, "V"); !errors.Is(err, entity.ErrNotAwaitingPayment) {
		t.Fatalf("want ErrNotAwaitingPayment, got %v", err)
	}

	snap, err := f.orders.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Open) != 1 || snap.Open[0].ID != "V" || snap.Open[0].Status != entity.StatusConfirmed {
		t.Fatalf("verified order should be on the board: %+v", snap.Open)
	}

	hist, _ := f.orders.GetHistory(ctx, "V")
	if len(hist) != 2 || hist[0].EventType != "PaymentVerified" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

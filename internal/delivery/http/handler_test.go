package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/board"
	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/idempotency"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository/memory"
	"github.com/limguytheboy/CasWebsiteFinal/internal/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.Seed(ctx, entity.BakeryCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	store.PutOrder(entity.Order{
		ID: "A", Status: entity.StatusPreparing, PaymentMethod: entity.PaymentCash,
		DeliveryMethod: entity.DeliveryPickup, CreatedAt: created,
		Items: []entity.OrderItem{{ID: "a1", ProductID: "1", Quantity: 2}},
	})
	store.PutOrder(entity.Order{
		ID: "P", Status: entity.StatusPendingVerification, PaymentMethod: entity.PaymentBCA,
		DeliveryMethod: entity.DeliveryDelivery, CreatedAt: created,
		Items: []entity.OrderItem{{ID: "p1", ProductID: "2", Quantity: 1}},
	})

	reg := metrics.NewRegistry()
	orders := service.NewOrderService(store, store, store, store, messaging.Discard{}, nil, reg, fulfillment.PromoteOpen)
	payments := service.NewPaymentService(store, store, messaging.Discard{}, nil, reg)
	b := board.New(orders, reg)
	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(b, orders, payments, idempotency.NewMemoryGuard(), time.Minute, reg.Handler()).RegisterRoutes(mux)
	srv := httptest.NewServer(EnableCORS(mux))
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: want %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func TestGetProducts(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/api/products", "")
	expectStatus(t, resp, http.StatusOK)

	var products []entity.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 8 {
		t.Fatalf("want 8 products, got %d", len(products))
	}
}

func TestBoardAndFIFOFlow(t *testing.T) {
	srv, store := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", `{"product_id":"1","qty":3}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/fifo", ""), http.StatusOK)

	a, _ := store.FindByID(context.Background(), "A")
	if a.Status != entity.StatusReady {
		t.Fatalf("A should be ready, got %s", a.Status)
	}

	resp := do(t, srv, http.MethodGet, "/api/staff/board?delivery=pickup", "")
	expectStatus(t, resp, http.StatusOK)
	var view board.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Pickup) != 1 || view.Pickup[0].Status != entity.StatusReady || !view.Pickup[0].ReadyByFIFO {
		t.Fatalf("unexpected pickup sector: %+v", view.Pickup)
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/api/staff/board?delivery=drone", ""), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/board/refresh", ""), http.StatusOK)
}

func TestSetStatusErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/A/status", `{"status":"baking"}`), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/A/status", `not json`), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/nope/status", `{"status":"ready"}`), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/A/status", `{"status":"pending"}`), http.StatusConflict)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/A/status", `{"status":"completed"}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/orders/A/status", `{"status":"ready"}`), http.StatusConflict)

	resp := do(t, srv, http.MethodGet, "/api/staff/orders/A/history", "")
	expectStatus(t, resp, http.StatusOK)
	var history []entity.HistoryRecord
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one history record, got %d", len(history))
	}
}

func TestIdempotencyKey(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"product_id":"1","qty":2}`
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", body, "Idempotency-Key", "k1"), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", body, "Idempotency-Key", "k1"), http.StatusConflict)

	resp := do(t, srv, http.MethodGet, "/api/staff/prepared", "")
	var stock []entity.PreparedStock
	if err := json.NewDecoder(resp.Body).Decode(&stock); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stock) != 1 || stock[0].Qty != 2 {
		t.Fatalf("duplicate batch was applied: %+v", stock)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", body, "Idempotency-Key", "k2"), http.StatusOK)
}

func TestPreparedDeleteAndUnknownProduct(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", `{"product_id":"404","qty":2}`), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", `{"product_id":"1","qty":2}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/prepared", `{"product_id":"2","qty":2}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/staff/prepared/1", ""), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/staff/prepared", ""), http.StatusNoContent)

	resp := do(t, srv, http.MethodGet, "/api/staff/prepared", "")
	var stock []entity.PreparedStock
	if err := json.NewDecoder(resp.Body).Decode(&stock); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stock) != 0 {
		t.Fatalf("pool should be empty: %+v", stock)
	}
}

func TestPaymentRoutes(t *testing.T) {
	srv, store := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/staff/payments/pending", "")
	expectStatus(t, resp, http.StatusOK)
	var pending []entity.Order
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "P" {
		t.Fatalf("unexpected pending payments: %+v", pending)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/payments/P/verify", `{"staff_id":"s1"}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/payments/P/reject", ""), http.StatusConflict)

	p, _ := store.FindByID(context.Background(), "P")
	if !p.Paid || p.Status != entity.StatusConfirmed || p.VerifiedBy != "s1" {
		t.Fatalf("unexpected order after verify: %+v", p)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/staff/fifo", ""), http.StatusOK)
	resp := do(t, srv, http.MethodGet, "/metrics", "")
	expectStatus(t, resp, http.StatusOK)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(raw), "bakery_fifo_runs_total 1") {
		t.Fatalf("fifo run not counted:\n%s", raw)
	}

	resp = do(t, srv, http.MethodOptions, "/api/staff/prepared", "")
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Fatalf("CORS methods: %q", got)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/board"
	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/idempotency"
	"github.com/limguytheboy/CasWebsiteFinal/internal/service"
)

// Handler handles HTTP requests for the staff dashboard.
type Handler struct {
	board    *board.Board
	orderSvc *service.OrderService
	payments *service.PaymentService
	guard    idempotency.Guard
	keyTTL   time.Duration
	metrics  http.Handler
}

func NewHandler(
	b *board.Board,
	orderSvc *service.OrderService,
	payments *service.PaymentService,
	guard idempotency.Guard,
	keyTTL time.Duration,
	metrics http.Handler,
) *Handler {
	return &Handler{
		board:    b,
		orderSvc: orderSvc,
		payments: payments,
		guard:    guard,
		keyTTL:   keyTTL,
		metrics:  metrics,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)

	mux.HandleFunc("GET /api/staff/board", h.handleGetBoard)
	mux.HandleFunc("POST /api/staff/board/refresh", h.handleRefreshBoard)
	mux.HandleFunc("POST /api/staff/fifo", h.idempotent(h.handleApplyFIFO))
	mux.HandleFunc("POST /api/staff/orders/{id}/status", h.idempotent(h.handleSetStatus))
	mux.HandleFunc("GET /api/staff/orders/{id}/history", h.handleGetHistory)

	mux.HandleFunc("GET /api/staff/prepared", h.handleListPrepared)
	mux.HandleFunc("POST /api/staff/prepared", h.idempotent(h.handleAddBatch))
	mux.HandleFunc("DELETE /api/staff/prepared/{productID}", h.idempotent(h.handleRemovePrepared))
	mux.HandleFunc("DELETE /api/staff/prepared", h.idempotent(h.handleClearPrepared))

	mux.HandleFunc("GET /api/staff/payments/pending", h.handleAwaitingPayment)
	mux.HandleFunc("POST /api/staff/payments/{id}/verify", h.idempotent(h.handleVerifyPayment))
	mux.HandleFunc("POST /api/staff/payments/{id}/reject", h.idempotent(h.handleRejectPayment))

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.orderSvc.GetProducts(r.Context())
	if err != nil {
		slog.Error("Failed to get products", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	filter, err := fulfillment.ParseDeliveryFilter(r.URL.Query().Get("delivery"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.board.View(filter))
}

func (h *Handler) handleRefreshBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Refresh(r.Context()); err != nil {
		slog.Error("Failed to refresh board", "err", err)
		http.Error(w, "failed to refresh board", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.board.View(fulfillment.FilterAll))
}

func (h *Handler) handleApplyFIFO(w http.ResponseWriter, r *http.Request) {
	res, err := h.board.ApplyFIFO(r.Context())
	if err != nil {
		writeError(w, "Failed to apply FIFO", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	to, err := entity.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	if err := h.board.SetStatus(r.Context(), id, to); err != nil {
		writeError(w, "Failed to set order status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": id,
		"status":   string(to),
	})
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.orderSvc.GetHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "Failed to get order history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleListPrepared(w http.ResponseWriter, r *http.Request) {
	stock, err := h.orderSvc.ListPrepared(r.Context())
	if err != nil {
		writeError(w, "Failed to list prepared inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

type AddBatchRequest struct {
	ProductID string  `json:"product_id"`
	Qty       float64 `json:"qty"`
}

func (h *Handler) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	var req AddBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	total, err := h.orderSvc.AddBatch(r.Context(), req.ProductID, req.Qty)
	h.refresh(r)
	if err != nil {
		writeError(w, "Failed to add batch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": req.ProductID,
		"qty":        total,
	})
}

func (h *Handler) handleRemovePrepared(w http.ResponseWriter, r *http.Request) {
	err := h.orderSvc.RemovePrepared(r.Context(), r.PathValue("productID"))
	h.refresh(r)
	if err != nil {
		writeError(w, "Failed to remove prepared entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearPrepared(w http.ResponseWriter, r *http.Request) {
	err := h.orderSvc.ClearPrepared(r.Context())
	h.refresh(r)
	if err != nil {
		writeError(w, "Failed to clear prepared inventory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAwaitingPayment(w http.ResponseWriter, r *http.Request) {
	orders, err := h.payments.AwaitingPayment(r.Context())
	if err != nil {
		writeError(w, "Failed to list orders awaiting payment", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type VerifyPaymentRequest struct {
	StaffID string `json:"staff_id"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	id := r.PathValue("id")
	err := h.payments.VerifyPayment(r.Context(), id, req.StaffID)
	h.refresh(r)
	if err != nil {
		writeError(w, "Failed to verify payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": id,
		"status":   string(entity.StatusConfirmed),
	})
}

func (h *Handler) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.payments.RejectPayment(r.Context(), id)
	h.refresh(r)
	if err != nil {
		writeError(w, "Failed to reject payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": id,
		"status":   string(entity.StatusCancelled),
	})
}

// refresh reloads the board after a write, successful or not.
func (h *Handler) refresh(r *http.Request) {
	if err := h.board.Refresh(r.Context()); err != nil {
		slog.Warn("Board refresh after write failed", "path", r.URL.Path, "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "err", err)
		http.Error(w, "internal server error", status)
		return
	}
	slog.Warn(msg, "err", err)
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrOrderNotFound), errors.Is(err, entity.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrStatusConflict),
		errors.Is(err, entity.ErrAlreadyConsumed),
		errors.Is(err, entity.ErrNotAwaitingPayment):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"log/slog"
	"net/http"
)

// EnableCORS is a middleware to allow the React frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const idempotencyHeader = "Idempotency-Key"

// idempotent rejects a repeated Idempotency-Key with 409. The key is
// released again when the first attempt failed on the server side, so
// the client may retry it.
func (h *Handler) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if key == "" || h.guard == nil {
			next(w, r)
			return
		}

		scoped := r.Method + " " + r.URL.Path + " " + key
		fresh, err := h.guard.Claim(r.Context(), scoped, h.keyTTL)
		if err != nil {
			slog.Error("Failed to claim idempotency key", "key", key, "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !fresh {
			http.Error(w, "duplicate request", http.StatusConflict)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		if rec.status >= http.StatusInternalServerError {
			if err := h.guard.Release(r.Context(), scoped); err != nil {
				slog.Warn("Failed to release idempotency key", "key", key, "err", err)
			}
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

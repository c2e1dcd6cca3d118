package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

// PaymentService reviews bank-transfer proofs. Verified orders become
// visible to the staff board.
type PaymentService struct {
	orders  repository.OrderRepository
	events  eventSink
	metrics *metrics.Registry
	now     func() time.Time
}

func NewPaymentService(
	orders repository.OrderRepository,
	history repository.HistoryLog,
	publisher messaging.Publisher,
	notifier Notifier,
	reg *metrics.Registry,
) *PaymentService {
	return &PaymentService{
		orders:  orders,
		events:  eventSink{history: history, publisher: publisher, notifier: notifier},
		metrics: reg,
		now:     time.Now,
	}
}

// AwaitingPayment lists unpaid orders waiting for proof review.
func (s *PaymentService) AwaitingPayment(ctx context.Context) ([]entity.Order, error) {
	orders, err := s.orders.FindAwaitingPayment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders awaiting payment: %w", err)
	}
	return orders, nil
}

// VerifyPayment marks the order paid and confirmed.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID, staffID string) error {
	slog.Info("Service: Verifying payment", "order_id", orderID, "staff_id", staffID)

	at := s.now()
	if err := s.orders.VerifyPayment(ctx, orderID, staffID, at); err != nil {
		s.metrics.StatusFailures.WithLabelValues(string(entity.StatusConfirmed)).Inc()
		return fmt.Errorf("failed to verify payment for %s: %w", orderID, err)
	}

	s.metrics.StatusChanges.WithLabelValues(string(entity.StatusConfirmed)).Inc()
	s.events.orderChanged(ctx, orderID,
		entity.PaymentVerified{OrderID: orderID, VerifiedBy: staffID, VerifiedAt: at},
		entity.OrderStatusChanged{
			OrderID:   orderID,
			From:      entity.StatusPendingVerification,
			To:        entity.StatusConfirmed,
			Reason:    "payment_verified",
			ChangedAt: at,
		},
	)
	return nil
}

// RejectPayment cancels the order and clears any verification.
func (s *PaymentService) RejectPayment(ctx context.Context, orderID string) error {
	slog.Info("Service: Rejecting payment", "order_id", orderID)

	if err := s.orders.RejectPayment(ctx, orderID); err != nil {
		s.metrics.StatusFailures.WithLabelValues(string(entity.StatusCancelled)).Inc()
		return fmt.Errorf("failed to reject payment for %s: %w", orderID, err)
	}

	at := s.now()
	s.metrics.StatusChanges.WithLabelValues(string(entity.StatusCancelled)).Inc()
	s.events.orderChanged(ctx, orderID,
		entity.PaymentRejected{OrderID: orderID, RejectedAt: at},
		entity.OrderStatusChanged{
			OrderID:   orderID,
			From:      entity.StatusPendingVerification,
			To:        entity.StatusCancelled,
			Reason:    "payment_rejected",
			ChangedAt: at,
		},
	)
	return nil
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/limguytheboy/CasWebsiteFinal/internal/board"
	"github.com/limguytheboy/CasWebsiteFinal/internal/config"
	grpcdelivery "github.com/limguytheboy/CasWebsiteFinal/internal/delivery/grpc"
	httpdelivery "github.com/limguytheboy/CasWebsiteFinal/internal/delivery/http"
	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/idempotency"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging"
	"github.com/limguytheboy/CasWebsiteFinal/internal/messaging/kafka"
	"github.com/limguytheboy/CasWebsiteFinal/internal/metrics"
	"github.com/limguytheboy/CasWebsiteFinal/internal/realtime"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository/memory"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository/postgres"
	"github.com/limguytheboy/CasWebsiteFinal/internal/service"
)

type stores struct {
	orders   repository.OrderRepository
	prepared repository.PreparedStockRepository
	products repository.ProductRepository
	history  repository.HistoryLog
	db       *sql.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Startup failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- Storage ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}
	if cfg.SeedProducts {
		if err := st.products.Seed(ctx, entity.BakeryCatalog()); err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
	}

	// --- Kafka ---
	var publisher messaging.Publisher = messaging.Discard{}
	var subscriber messaging.Subscriber
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		broker := kafka.NewKafkaBroker(brokers)
		defer broker.Close()
		publisher, subscriber = broker, broker
	} else {
		slog.Warn("KAFKA_BROKERS empty, order events are not published")
	}

	// --- Change feed ---
	feed, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer feed.Close()

	// --- Idempotency ---
	guard, closeGuard, err := openGuard(cfg)
	if err != nil {
		return err
	}
	defer closeGuard.Close()

	policy, err := fulfillment.ParsePromotionPolicy(cfg.FIFOPromotion)
	if err != nil {
		return err
	}

	// --- Services ---
	reg := metrics.NewRegistry()
	orderSvc := service.NewOrderService(st.orders, st.prepared, st.products, st.history, publisher, feed, reg, policy)
	paymentSvc := service.NewPaymentService(st.orders, st.history, publisher, feed, reg)
	staffBoard := board.New(orderSvc, reg)
	if err := staffBoard.Refresh(ctx); err != nil {
		return err
	}

	// --- HTTP API ---
	handler := httpdelivery.NewHandler(staffBoard, orderSvc, paymentSvc, guard, cfg.IdempotencyTTL, reg.Handler())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpdelivery.EnableCORS(mux),
	}
	healthServer := grpcdelivery.NewServer()

	// --- Start everything ---
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := staffBoard.Listen(ctx, feed); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Change feed listener stopped", "err", err)
		}
	}()

	// Consumer: orders.placed → board refresh
	if subscriber != nil {
		go subscriber.Consume(ctx, cfg.PlacedTopic, cfg.ConsumerGroup, staffBoard.HandleOrderPlaced)
		slog.Info("Kafka consumer started", "topic", cfg.PlacedTopic)
	}

	go func() {
		if err := healthServer.ListenAndServe(ctx, cfg.GRPCAddr); err != nil {
			slog.Error("gRPC server error", "err", err)
			cancel()
		}
	}()

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()
	healthServer.SetServing(true)

	<-ctx.Done()
	slog.Info("Shutting down...")
	healthServer.SetServing(false)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return httpServer.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("Using in-memory store, data is lost on exit")
		m := memory.NewStore()
		return &stores{orders: m, prepared: m, products: m, history: m}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	return &stores{
		orders:   postgres.NewOrderRepository(db),
		prepared: postgres.NewPreparedStockRepository(db),
		products: postgres.NewProductRepository(db),
		history:  postgres.NewHistoryLog(db),
		db:       db,
	}, nil
}

func openFeed(cfg *config.Config) (*realtime.Feed, error) {
	logger := slog.Default().With("component", "realtime")
	if cfg.RealtimeDriver == "kafka" {
		feed, err := realtime.NewKafkaFeed(cfg.RealtimeTopic, cfg.Brokers(), cfg.ConsumerGroup, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open kafka change feed: %w", err)
		}
		return feed, nil
	}
	return realtime.NewGoChannelFeed(cfg.RealtimeTopic, logger), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openGuard(cfg *config.Config) (idempotency.Guard, io.Closer, error) {
	switch cfg.IdempotencyDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return idempotency.NewRedisGuard(client), client, nil
	case "pebble":
		g, err := idempotency.NewPebbleGuard(cfg.IdempotencyDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open idempotency store: %w", err)
		}
		return g, g, nil
	default:
		return idempotency.NewMemoryGuard(), nopCloser{}, nil
	}
}

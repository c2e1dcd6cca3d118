package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10, 2) NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			allergens TEXT[] NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			customer_name TEXT,
			customer_phone TEXT,
			total NUMERIC(10, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			payment_method TEXT NOT NULL DEFAULT 'cash',
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			delivery_method TEXT NOT NULL DEFAULT 'pickup',
			delivery_address TEXT,
			notes TEXT,
			verified_by TEXT,
			verified_at TIMESTAMPTZ,
			consumed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS orders_status_created_at_idx ON orders (status, created_at);

		CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL DEFAULT '',
			price NUMERIC(10, 2) NOT NULL DEFAULT 0,
			quantity INT NOT NULL CHECK (quantity > 0),
			position INT NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS order_items_order_id_idx ON order_items (order_id);

		CREATE TABLE IF NOT EXISTS prepared_inventory (
			product_id TEXT PRIMARY KEY,
			qty INT NOT NULL DEFAULT 0 CHECK (qty >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (stream_id, version)
		);
	`)
	return err
}

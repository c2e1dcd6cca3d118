package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/repository"
)

type historyLog struct {
	db *sql.DB
}

// NewHistoryLog creates a HistoryLog backed by the events table.
func NewHistoryLog(db *sql.DB) repository.HistoryLog {
	return &historyLog{db: db}
}

func (s *historyLog) Append(ctx context.Context, streamID, streamType string, events ...entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize appends per stream so versions stay gapless.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", streamID); err != nil {
		return fmt.Errorf("failed to lock stream %s: %w", streamID, err)
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1", streamID).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO events (id, stream_id, stream_type, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, event := range events {
		version++

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		_, err = stmt.ExecContext(ctx, uuid.NewString(), streamID, streamType, version, event.EventType(), payload, now)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *historyLog) Load(ctx context.Context, streamID string) ([]entity.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, stream_id, stream_type, version, event_type, payload, created_at FROM events WHERE stream_id = $1 ORDER BY version ASC", streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var records []entity.HistoryRecord
	for rows.Next() {
		var rec entity.HistoryRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.StreamID, &rec.StreamType, &rec.Version, &rec.EventType, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return records, nil
}

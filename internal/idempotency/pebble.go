package idempotency

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleGuard keeps claims on local disk for single-instance deployments,
// so they survive a restart.
type PebbleGuard struct {
	mu  sync.Mutex
	db  *pebble.DB
	now func() time.Time
}

func NewPebbleGuard(dir string) (*PebbleGuard, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleGuard{db: d, now: time.Now}, nil
}

func (g *PebbleGuard) Close() error { return g.db.Close() }

func (g *PebbleGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	k := []byte(key)
	v, closer, err := g.db.Get(k)
	switch {
	case err == nil:
		held := len(v) == 8 && now.Before(time.Unix(0, int64(binary.BigEndian.Uint64(v))))
		_ = closer.Close()
		if held {
			return false, nil
		}
	case !errors.Is(err, pebble.ErrNotFound):
		return false, fmt.Errorf("pebble get: %w", err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(now.Add(ttl).UnixNano()))
	if err := g.db.Set(k, buf[:], pebble.Sync); err != nil {
		return false, fmt.Errorf("pebble set: %w", err)
	}
	return true, nil
}

func (g *PebbleGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

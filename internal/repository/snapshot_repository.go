package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/kyoso-cafe/shift-api/pkg/errors"
)

// Snapshot collection keys.
const (
	SnapshotShifts       = "snapshot:shifts"
	SnapshotClockRecords = "snapshot:clock_records"
	SnapshotSlotConfig   = "snapshot:slot_config"
)

// SnapshotRepository keeps last-known-good copies of hot collections in
// Redis so reads can degrade when the database is unavailable.
type SnapshotRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSnapshotRepository constructs a snapshot repository. A nil client
// disables snapshots: gets miss and sets become no-ops.
func NewSnapshotRepository(client *redis.Client, logger *zap.Logger, ttl time.Duration) *SnapshotRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotRepository{client: client, logger: logger, ttl: ttl}
}

// Get retrieves and unmarshals the snapshot into the provided destination.
func (r *SnapshotRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrSnapshotMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrSnapshotMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}

	return nil
}

// Set marshals and stores the snapshot. Failures are logged, not
// returned: a stale snapshot must never fail the write that produced it.
func (r *SnapshotRepository) Set(ctx context.Context, key string, value interface{}) {
	if r.client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("marshal snapshot failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("store snapshot failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete drops a snapshot.
func (r *SnapshotRepository) Delete(ctx context.Context, key string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("delete snapshot failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the underlying Redis connection if present.
func (r *SnapshotRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/munivet/campo-api/internal/models"
)

// SnapshotStore keeps the last known position per worker for each
// campaign, so a fresh subscriber gets the initial bulk snapshot without
// waiting for the next watch tick.
type SnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotStore constructs a store. ttl bounds how long stale
// positions survive after a campaign goes quiet.
func NewSnapshotStore(client *redis.Client, prefix string, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SnapshotStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SnapshotStore) key(campaignID string) string {
	return s.prefix + ":pos:" + campaignID
}

// Store records a worker's last known position.
func (s *SnapshotStore) Store(ctx context.Context, campaignID string, update models.LocationUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode location update: %w", err)
	}
	key := s.key(campaignID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, update.WorkerID, payload)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store position: %w", err)
	}
	return nil
}

// Positions returns the bulk snapshot of active worker positions, ordered
// by worker id.
func (s *SnapshotStore) Positions(ctx context.Context, campaignID string) ([]models.LocationUpdate, error) {
	entries, err := s.client.HGetAll(ctx, s.key(campaignID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	updates := make([]models.LocationUpdate, 0, len(entries))
	for _, raw := range entries {
		var update models.LocationUpdate
		if err := json.Unmarshal([]byte(raw), &update); err != nil {
			continue
		}
		updates = append(updates, update)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].WorkerID < updates[j].WorkerID })
	return updates, nil
}

// Clear drops the snapshot for a campaign.
func (s *SnapshotStore) Clear(ctx context.Context, campaignID string) error {
	return s.client.Del(ctx, s.key(campaignID)).Err()
}

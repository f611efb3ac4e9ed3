package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// snapshotKeyPrefix is the key prefix for persisted playback snapshots.
// The full key is playbackState_<mode>.
const snapshotKeyPrefix = "playbackState_"

var _ ports.SnapshotStore = (*RedisSnapshotStore)(nil)

// RedisSnapshotStore persists snapshots as JSON values in Redis, one key per
// playback mode, so playback state survives daemon restarts.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a new RedisSnapshotStore.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func snapshotKey(mode domain.PlaybackMode) string {
	return snapshotKeyPrefix + string(mode)
}

// Save writes the snapshot under playbackState_<mode>. Snapshots have no
// TTL; a stale snapshot is better than none.
func (s *RedisSnapshotStore) Save(ctx context.Context, mode domain.PlaybackMode, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(mode), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot for mode %s: %w", mode, err)
	}
	return nil
}

// Load reads the snapshot for the given mode, or ErrSnapshotNotFound when
// the key does not exist.
func (s *RedisSnapshotStore) Load(ctx context.Context, mode domain.PlaybackMode) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(mode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for mode %s: %w", mode, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for mode %s: %w", mode, err)
	}
	return &snap, nil
}

package infrastructure

import (
	"context"
	"sync"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

var _ ports.SnapshotStore = (*MemorySnapshotStore)(nil)

// MemorySnapshotStore keeps snapshots in process memory. Used when no Redis
// backend is configured; snapshots then survive mode switches but not daemon
// restarts.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[domain.PlaybackMode]*domain.Snapshot
}

// NewMemorySnapshotStore creates a new MemorySnapshotStore.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[domain.PlaybackMode]*domain.Snapshot),
	}
}

// Save stores a copy of the snapshot under the given mode.
func (s *MemorySnapshotStore) Save(_ context.Context, mode domain.PlaybackMode, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[mode] = snap.Clone()
	return nil
}

// Load returns a copy of the snapshot for the given mode, or
// ErrSnapshotNotFound.
func (s *MemorySnapshotStore) Load(_ context.Context, mode domain.PlaybackMode) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[mode]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

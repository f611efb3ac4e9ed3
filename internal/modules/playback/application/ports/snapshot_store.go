package ports

import (
	"context"
	"errors"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has been saved
// for the requested mode.
var ErrSnapshotNotFound = errors.New("playback snapshot not found")

// SnapshotStore durably stores one playback snapshot per playback mode.
type SnapshotStore interface {
	// Save stores the snapshot under the mode's key, replacing any
	// previous snapshot for that mode.
	Save(ctx context.Context, mode domain.PlaybackMode, snap *domain.Snapshot) error

	// Load returns the snapshot for the mode, or ErrSnapshotNotFound.
	Load(ctx context.Context, mode domain.PlaybackMode) (*domain.Snapshot, error)
}

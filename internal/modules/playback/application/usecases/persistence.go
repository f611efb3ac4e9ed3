package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// persistInterval is how often the snapshot is written while playing.
const persistInterval = 10 * time.Second

// PersistenceService saves and restores playback snapshots, one per mode.
// Saves happen eagerly on pause/resume/seek/rate-change and track changes,
// periodically while playing, and on mode switches.
type PersistenceService struct {
	player *PlayerService
	store  ports.SnapshotStore
}

// NewPersistenceService creates a new PersistenceService.
func NewPersistenceService(player *PlayerService, store ports.SnapshotStore) *PersistenceService {
	return &PersistenceService{
		player: player,
		store:  store,
	}
}

// Save writes the active snapshot. It is a no-op when there is no current
// track or the engine has nothing loaded, so a fresh start never overwrites
// a good snapshot with an uninitialized one.
func (s *PersistenceService) Save(ctx context.Context) error {
	mode, snap := s.player.Snapshot()
	if snap.CurrentTrack == nil || !s.player.Ready() {
		return nil
	}
	return s.store.Save(ctx, mode, snap)
}

// Load restores the snapshot for the given mode into the player. The saved
// track is re-queued at the saved position without starting playback.
// A missing snapshot is not an error.
func (s *PersistenceService) Load(ctx context.Context, mode domain.PlaybackMode) error {
	snap, err := s.store.Load(ctx, mode)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.player.Restore(ctx, snap)
}

// SwitchMode saves the outgoing mode's snapshot, swaps the active mode, and
// restores the incoming mode's snapshot. Persistence failures are logged
// but never block the switch.
func (s *PersistenceService) SwitchMode(ctx context.Context, mode domain.PlaybackMode) error {
	if mode == s.player.Mode() {
		return nil
	}

	if err := s.Save(ctx); err != nil {
		slog.Warn("failed to save outgoing mode snapshot", "mode", s.player.Mode(), "error", err)
	}

	s.player.SetMode(mode)

	if err := s.Load(ctx, mode); err != nil {
		slog.Warn("failed to load incoming mode snapshot", "mode", mode, "error", err)
	}
	return nil
}

// Register subscribes the eager-save triggers on the event bus.
func (s *PersistenceService) Register(subscriber ports.EventSubscriber) {
	subscriber.OnTrackChanged(func(ctx context.Context, _ domain.TrackChangedEvent) {
		s.save(ctx)
	})
	subscriber.OnPlayStateChanged(func(ctx context.Context, _ domain.PlayStateChangedEvent) {
		s.save(ctx)
	})
	subscriber.OnPositionChanged(func(ctx context.Context, _ domain.PositionChangedEvent) {
		s.save(ctx)
	})
	subscriber.OnRateChanged(func(ctx context.Context, _ domain.RateChangedEvent) {
		s.save(ctx)
	})
}

func (s *PersistenceService) save(ctx context.Context) {
	if err := s.Save(ctx); err != nil {
		slog.Warn("failed to persist playback snapshot", "error", err)
	}
}

// Run periodically persists the snapshot while playing, until ctx is done.
func (s *PersistenceService) Run(ctx context.Context) {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.player.IsPlaying() {
				s.save(ctx)
			}
		}
	}
}

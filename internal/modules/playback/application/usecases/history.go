package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// historyInterval is how often listening progress is reported while playing.
const historyInterval = 15 * time.Second

// HistoryService asynchronously reports consumption events to the catalog
// service: on every track change, on every pause transition, and
// periodically while playing. All reporting failures are logged and
// swallowed; history never blocks playback.
type HistoryService struct {
	player   *PlayerService
	reporter ports.HistoryReporter
	isSynced func() bool
	identity DeviceIdentity
}

// NewHistoryService creates a new HistoryService. isSynced reports whether
// a sync session is active at reporting time.
func NewHistoryService(
	player *PlayerService,
	reporter ports.HistoryReporter,
	isSynced func() bool,
	identity DeviceIdentity,
) *HistoryService {
	return &HistoryService{
		player:   player,
		reporter: reporter,
		isSynced: isSynced,
		identity: identity,
	}
}

// Register subscribes the reporting triggers on the event bus.
func (s *HistoryService) Register(subscriber ports.EventSubscriber) {
	subscriber.OnTrackChanged(func(ctx context.Context, event domain.TrackChangedEvent) {
		s.report(ctx, event.Track, event.Position)
	})
	subscriber.OnPlayStateChanged(func(ctx context.Context, event domain.PlayStateChangedEvent) {
		if event.Playing {
			return
		}
		if track := s.player.CurrentTrack(); track != nil {
			s.report(ctx, *track, event.Position)
		}
	})
}

// Run reports progress every historyInterval while playing, until ctx is
// done.
func (s *HistoryService) Run(ctx context.Context) {
	ticker := time.NewTicker(historyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.player.IsPlaying() {
				continue
			}
			if track := s.player.CurrentTrack(); track != nil {
				s.report(ctx, *track, s.player.Position())
			}
		}
	}
}

// report sends the track-listen event, plus an album-listen for album
// tracks and a progress report for audiobooks. Positions are floored to
// whole seconds.
func (s *HistoryService) report(ctx context.Context, track domain.Track, position float64) {
	if s.reporter == nil {
		return
	}

	listen := domain.TrackListen{
		TrackID:    track.ID,
		UserID:     s.identity.UserID,
		Position:   int(position),
		DeviceID:   s.identity.DeviceID,
		DeviceName: s.identity.DeviceName,
		Synced:     s.isSynced(),
	}
	if err := s.reporter.ReportTrackListen(ctx, listen); err != nil {
		slog.Warn("failed to report track listen", "track", track.ID, "error", err)
	}

	if track.HasAlbum() {
		album := domain.AlbumListen{
			Album:   track.Album,
			TrackID: track.ID,
			UserID:  s.identity.UserID,
		}
		if err := s.reporter.ReportAlbumListen(ctx, album); err != nil {
			slog.Warn("failed to report album listen", "album", track.Album, "error", err)
		}
	}

	if track.IsAudiobook() {
		progress := domain.AudiobookProgress{
			TrackID:  track.ID,
			UserID:   s.identity.UserID,
			Position: int(position),
		}
		if err := s.reporter.ReportAudiobookProgress(ctx, progress); err != nil {
			slog.Warn("failed to report audiobook progress", "track", track.ID, "error", err)
		}
	}
}

// Latest returns the user's most recent listen across devices, for the
// cross-device resume prompt.
func (s *HistoryService) Latest(ctx context.Context) (*domain.TrackListen, error) {
	if s.reporter == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.reporter.LatestTrackListen(ctx, s.identity.UserID)
}

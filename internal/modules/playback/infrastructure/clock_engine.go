package infrastructure

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// endPollInterval is how often the engine checks for end-of-track.
const endPollInterval = 500 * time.Millisecond

var _ ports.AudioEngine = (*ClockEngine)(nil)

// ClockEngine is a headless audio engine that models playback position
// against the wall clock: position = anchor + elapsed * rate while playing.
// It produces no sound itself; the daemon's consumers read the position and
// end-of-track notifications arrive on the event bus.
type ClockEngine struct {
	mu        sync.Mutex
	clock     ports.Clock
	publisher ports.EventPublisher

	track    *domain.Track
	anchor   float64 // position at anchoredAt, in seconds
	anchored time.Time
	rate     float64
	playing  bool
	ended    bool
}

// NewClockEngine creates a new ClockEngine.
func NewClockEngine(clock ports.Clock, publisher ports.EventPublisher) *ClockEngine {
	return &ClockEngine{
		clock:     clock,
		publisher: publisher,
		rate:      1.0,
	}
}

// positionLocked computes the live position. Callers must hold mu.
func (e *ClockEngine) positionLocked() float64 {
	if e.track == nil {
		return 0
	}
	position := e.anchor
	if e.playing {
		elapsed := e.clock.Now().Sub(e.anchored).Seconds()
		position += elapsed * e.rate
	}
	if e.track.Duration > 0 && position > e.track.Duration {
		position = e.track.Duration
	}
	if position < 0 {
		position = 0
	}
	return position
}

// reanchorLocked freezes the live position into the anchor. Callers must
// hold mu.
func (e *ClockEngine) reanchorLocked() {
	e.anchor = e.positionLocked()
	e.anchored = e.clock.Now()
}

// Load replaces the loaded track, seeks to position, and optionally starts
// the position clock.
func (e *ClockEngine) Load(_ context.Context, track domain.Track, position float64, autoplay bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.track = &track
	e.anchor = position
	e.anchored = e.clock.Now()
	e.playing = autoplay
	e.ended = false

	slog.Debug("engine loaded track", "track", track.ID, "position", position, "autoplay", autoplay)
	return nil
}

// Play starts the position clock.
func (e *ClockEngine) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil || e.playing {
		return nil
	}
	e.anchored = e.clock.Now()
	e.playing = true
	e.ended = false
	return nil
}

// Pause freezes the position clock.
func (e *ClockEngine) Pause(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil || !e.playing {
		return nil
	}
	e.reanchorLocked()
	e.playing = false
	return nil
}

// SeekTo moves the position clock to an absolute position.
func (e *ClockEngine) SeekTo(_ context.Context, position float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil {
		return nil
	}
	if position < 0 {
		position = 0
	}
	if e.track.Duration > 0 && position > e.track.Duration {
		position = e.track.Duration
	}
	e.anchor = position
	e.anchored = e.clock.Now()
	e.ended = false
	return nil
}

// SetRate changes how fast the position clock advances.
func (e *ClockEngine) SetRate(_ context.Context, rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reanchorLocked()
	e.rate = rate
	return nil
}

// Reset unloads the current track.
func (e *ClockEngine) Reset(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.track = nil
	e.anchor = 0
	e.rate = 1.0
	e.playing = false
	e.ended = false
	return nil
}

// Position returns the live position in seconds.
func (e *ClockEngine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// Duration returns the loaded track's duration in seconds.
func (e *ClockEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.track == nil {
		return 0
	}
	return e.track.Duration
}

// Ready reports whether a track is loaded.
func (e *ClockEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.track != nil
}

// Run polls for end-of-track until ctx is done. Each completion is reported
// exactly once.
func (e *ClockEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(endPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkEnded()
		}
	}
}

// checkEnded stops the clock and publishes a TrackEndedEvent once the
// position reaches the track's duration.
func (e *ClockEngine) checkEnded() {
	e.mu.Lock()
	if e.track == nil || !e.playing || e.ended || e.track.Duration <= 0 {
		e.mu.Unlock()
		return
	}
	if e.positionLocked() < e.track.Duration {
		e.mu.Unlock()
		return
	}

	e.reanchorLocked()
	e.playing = false
	e.ended = true
	trackID := e.track.ID
	e.mu.Unlock()

	slog.Debug("track played to completion", "track", trackID)
	e.publisher.PublishTrackEnded(domain.TrackEndedEvent{TrackID: trackID})
}

package ports

import (
	"context"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// AudioEngine is the process-wide playback backend. Only the player service
// may issue commands to it; every other component observes playback through
// the event bus.
type AudioEngine interface {
	// Load resets the engine and loads the track, seeking to position
	// (seconds). When autoplay is false the track is left queued and paused.
	Load(ctx context.Context, track domain.Track, position float64, autoplay bool) error

	// Play resumes the loaded track.
	Play(ctx context.Context) error

	// Pause pauses the loaded track.
	Pause(ctx context.Context) error

	// SeekTo performs an absolute seek, in seconds.
	SeekTo(ctx context.Context, position float64) error

	// SetRate sets the playback rate (1.0 is normal speed).
	SetRate(ctx context.Context, rate float64) error

	// Reset unloads the current track and clears engine state.
	Reset(ctx context.Context) error

	// Position returns the current playback position in seconds.
	Position() float64

	// Duration returns the loaded track's duration in seconds, 0 if none.
	Duration() float64

	// Ready returns true once a track has been loaded.
	Ready() bool
}

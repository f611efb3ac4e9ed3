package domain

// State represents the playback state of the local player.
type State int

const (
	// StateIdle means no current track.
	StateIdle State = iota
	// StateLoading means a track was handed to the audio engine and the
	// buffer is not ready yet.
	StateLoading
	StatePlaying
	StatePaused
	// StateEnded means the queue is exhausted.
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}

// IsActive returns true if a track is loaded (playing or paused).
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}

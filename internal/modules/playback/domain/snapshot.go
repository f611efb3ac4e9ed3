package domain

// Snapshot is the serializable playback state for one playback mode, used
// for persistence and resume. One snapshot exists per mode; switching mode
// swaps the active snapshot.
type Snapshot struct {
	CurrentTrack *Track     `json:"currentTrack"`
	Queue        []Track    `json:"queue"`
	Position     float64    `json:"position"` // seconds
	RepeatMode   RepeatMode `json:"repeatMode"`
	PlaybackRate float64    `json:"playbackRate"`
}

// NewSnapshot creates an empty snapshot with default mode and rate.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Queue:        make([]Track, 0),
		RepeatMode:   RepeatSequence,
		PlaybackRate: 1.0,
	}
}

// CurrentIndex returns the index of the current track in the queue, or -1
// when there is no current track or it is not a queue member (single-track
// playback without a full queue).
func (s *Snapshot) CurrentIndex() int {
	if s.CurrentTrack == nil {
		return -1
	}
	return IndexOf(s.Queue, s.CurrentTrack.ID)
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Queue:        make([]Track, len(s.Queue)),
		Position:     s.Position,
		RepeatMode:   s.RepeatMode,
		PlaybackRate: s.PlaybackRate,
	}
	copy(clone.Queue, s.Queue)
	if s.CurrentTrack != nil {
		track := *s.CurrentTrack
		clone.CurrentTrack = &track
	}
	return clone
}

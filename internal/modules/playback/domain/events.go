package domain

// Events published by the player when its state mutates. Observers drive
// persistence, sync broadcasting, and history recording off these without
// touching the audio engine. Every event carries the Origin of the mutation
// so the sync broadcaster can skip re-emitting remote commands.

// TrackChangedEvent is published when the current track is replaced.
type TrackChangedEvent struct {
	Mode     PlaybackMode
	Track    Track
	Position float64 // seconds, initial position of the new track
	Origin   Origin
}

// PlayStateChangedEvent is published on play/pause transitions.
type PlayStateChangedEvent struct {
	Mode     PlaybackMode
	Playing  bool
	Position float64 // seconds at the moment of the transition
	Origin   Origin
}

// PositionChangedEvent is published when an absolute seek occurs.
type PositionChangedEvent struct {
	Mode     PlaybackMode
	Position float64 // seconds
	Origin   Origin
}

// QueueReplacedEvent is published when the play queue is replaced wholesale.
type QueueReplacedEvent struct {
	Mode   PlaybackMode
	Tracks []Track
	Index  int // index the playback (re)starts from, -1 if unchanged
	Origin Origin
}

// RateChangedEvent is published when the playback rate changes.
type RateChangedEvent struct {
	Mode   PlaybackMode
	Rate   float64
	Origin Origin
}

// TrackEndedEvent is published by the audio engine when a track plays to
// completion. The player advances the queue in response.
type TrackEndedEvent struct {
	TrackID TrackID
}

package domain

// PlaybackMode selects which snapshot is active. Music and audiobook playback
// keep independent queues, positions, and rates.
type PlaybackMode string

const (
	ModeMusic     PlaybackMode = "music"
	ModeAudiobook PlaybackMode = "audiobook"
)

// ParsePlaybackMode converts a string to a PlaybackMode.
// Returns false if the string is not a known mode.
func ParsePlaybackMode(s string) (PlaybackMode, bool) {
	switch s {
	case "music":
		return ModeMusic, true
	case "audiobook":
		return ModeAudiobook, true
	default:
		return "", false
	}
}

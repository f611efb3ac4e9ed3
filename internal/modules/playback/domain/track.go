package domain

import "strconv"

// TrackID is a unique identifier for a track, owned by the catalog service.
type TrackID string

// TrackType distinguishes music tracks from audiobook chapters.
type TrackType string

const (
	TrackTypeMusic     TrackType = "MUSIC"
	TrackTypeAudiobook TrackType = "AUDIOBOOK"
)

// Track represents a playable audio track. Tracks are immutable from the
// player's perspective; the catalog service owns them.
type Track struct {
	ID       TrackID   `json:"id"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	Cover    string    `json:"cover,omitempty"`
	Duration float64   `json:"duration"` // seconds
	Type     TrackType `json:"type"`
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.ID != "" && t.Path != ""
}

// IsAudiobook returns true if the track is an audiobook chapter.
func (t *Track) IsAudiobook() bool {
	return t.Type == TrackTypeAudiobook
}

// HasAlbum returns true if the track belongs to an album.
func (t *Track) HasAlbum() bool {
	return t.Album != ""
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t *Track) FormattedDuration() string {
	totalSeconds := int(t.Duration)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

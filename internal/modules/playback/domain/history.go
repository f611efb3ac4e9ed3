package domain

// TrackListen is a consumption event reported to the catalog service.
// Position is floored to whole seconds before reporting.
type TrackListen struct {
	TrackID    TrackID `json:"trackId"`
	UserID     string  `json:"userId"`
	Position   int     `json:"position"` // whole seconds
	DeviceID   string  `json:"deviceId"`
	DeviceName string  `json:"deviceName"`
	Synced     bool    `json:"synced"` // listened inside a sync session
}

// AlbumListen is reported alongside a TrackListen when the track belongs
// to an album.
type AlbumListen struct {
	Album   string  `json:"album"`
	TrackID TrackID `json:"trackId"`
	UserID  string  `json:"userId"`
}

// AudiobookProgress is reported for audiobook tracks so other devices can
// offer to resume from the same spot.
type AudiobookProgress struct {
	TrackID  TrackID `json:"trackId"`
	UserID   string  `json:"userId"`
	Position int     `json:"position"` // whole seconds
}

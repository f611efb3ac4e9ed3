package usecases

import (
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// TrackID is an alias for domain.TrackID.
type TrackID = domain.TrackID

// PlaybackMode is an alias for domain.PlaybackMode.
type PlaybackMode = domain.PlaybackMode

// RepeatMode is an alias for domain.RepeatMode.
type RepeatMode = domain.RepeatMode

// Snapshot is an alias for domain.Snapshot.
type Snapshot = domain.Snapshot

// SyncSession is an alias for domain.SyncSession.
type SyncSession = domain.SyncSession

// SyncInvite is an alias for domain.SyncInvite.
type SyncInvite = domain.SyncInvite

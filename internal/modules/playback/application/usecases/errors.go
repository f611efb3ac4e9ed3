package usecases

import "errors"

// Domain errors for the playback module.
var (
	// ErrInvalidTrack is returned when a track is missing its id or path.
	ErrInvalidTrack = errors.New("track is missing required fields")

	// ErrInvalidRate is returned for non-positive playback rates.
	ErrInvalidRate = errors.New("playback rate must be positive")

	// ErrInvalidMode is returned for unknown playback modes.
	ErrInvalidMode = errors.New("unknown playback mode")

	// ErrNoInvite is returned when accepting or rejecting without a
	// pending (unexpired) invite.
	ErrNoInvite = errors.New("no pending sync invite")

	// ErrAlreadySynced is returned when joining a session while one is
	// already active. A device holds at most one sync session.
	ErrAlreadySynced = errors.New("already in a sync session")

	// ErrNotSynced is returned when a session operation requires an
	// active session.
	ErrNotSynced = errors.New("no active sync session")

	// ErrSyncUnavailable is returned when no relay transport is configured.
	ErrSyncUnavailable = errors.New("sync relay not configured")

	// ErrHistoryUnavailable is returned when no catalog service is
	// configured.
	ErrHistoryUnavailable = errors.New("catalog not configured")

	// ErrInvalidDuration is returned for non-positive sleep timer durations.
	ErrInvalidDuration = errors.New("duration must be positive")
)

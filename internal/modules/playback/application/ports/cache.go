package ports

import (
	"context"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// AudioCache is a content-addressed file cache keyed by track id. Downloads
// are best-effort and must never block playback start.
type AudioCache interface {
	// IsCached returns the local path for the track if it is cached.
	IsCached(id domain.TrackID, originalPath string) (string, bool)

	// Download fetches the track's audio into the cache and returns the
	// local path.
	Download(ctx context.Context, id domain.TrackID, url string) (string, error)
}

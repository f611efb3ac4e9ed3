package ports

import (
	"context"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// HistoryReporter reports consumption events to the catalog service.
// Reporting is best-effort: callers log failures and move on.
type HistoryReporter interface {
	ReportTrackListen(ctx context.Context, listen domain.TrackListen) error
	ReportAlbumListen(ctx context.Context, listen domain.AlbumListen) error
	ReportAudiobookProgress(ctx context.Context, progress domain.AudiobookProgress) error

	// LatestTrackListen returns the user's most recent listen across all
	// devices, or nil if none exists. Used for cross-device resume prompts.
	LatestTrackListen(ctx context.Context, userID string) (*domain.TrackListen, error)
}

// ImportClient creates and polls catalog import tasks on behalf of the UI.
type ImportClient interface {
	CreateImportTask(ctx context.Context, path string) (*domain.ImportTask, error)
	GetImportTask(ctx context.Context, id string) (*domain.ImportTask, error)
}

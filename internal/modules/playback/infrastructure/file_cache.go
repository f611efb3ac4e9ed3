package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

var _ ports.AudioCache = (*FileCache)(nil)

// FileCache stores downloaded audio files on disk, one file per track id.
// The original file extension is kept so the engine can sniff the format.
type FileCache struct {
	dir    string
	client *http.Client

	mu       sync.Mutex
	inflight map[domain.TrackID]struct{}
}

// NewFileCache creates a cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{
		dir:      dir,
		client:   &http.Client{},
		inflight: make(map[domain.TrackID]struct{}),
	}, nil
}

// cachePath derives the on-disk path for a track, keeping the source
// extension.
func (c *FileCache) cachePath(id domain.TrackID, source string) string {
	ext := filepath.Ext(source)
	if i := strings.IndexByte(ext, '?'); i >= 0 {
		ext = ext[:i]
	}
	return filepath.Join(c.dir, string(id)+ext)
}

// IsCached returns the local path for the track if a cached copy exists.
func (c *FileCache) IsCached(id domain.TrackID, originalPath string) (string, bool) {
	path := c.cachePath(id, originalPath)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Download fetches the track's audio into the cache and returns the local
// path. Only http(s) sources are downloaded; local paths are already
// playable and are returned unchanged. Concurrent downloads of the same
// track collapse into one.
func (c *FileCache) Download(ctx context.Context, id domain.TrackID, source string) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return source, nil
	}

	path := c.cachePath(id, source)
	if local, ok := c.IsCached(id, source); ok {
		return local, nil
	}

	c.mu.Lock()
	if _, busy := c.inflight[id]; busy {
		c.mu.Unlock()
		return "", fmt.Errorf("download already in progress for track %s", id)
	}
	c.inflight[id] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download track %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of track %s returned status %d", id, resp.StatusCode)
	}

	// Write to a temp file first so a partial download never looks cached.
	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write track %s to cache: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move track %s into cache: %w", id, err)
	}

	slog.Debug("cached track audio", "track", id, "path", path)
	return path, nil
}

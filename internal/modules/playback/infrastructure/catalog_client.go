package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// catalogTimeout bounds every catalog request. History reporting is
// best-effort and must never stall playback for long.
const catalogTimeout = 10 * time.Second

var (
	_ ports.HistoryReporter = (*CatalogClient)(nil)
	_ ports.ImportClient    = (*CatalogClient)(nil)
)

// catalogEnvelope is the catalog service's response wrapper.
type catalogEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CatalogClient talks to the catalog service's REST API for history
// reporting and import tasks.
type CatalogClient struct {
	baseURL string
	client  *http.Client
}

// NewCatalogClient creates a client for the catalog service at baseURL.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: catalogTimeout},
	}
}

// do performs one request and decodes the response envelope. A non-zero
// envelope code is an application-level error.
func (c *CatalogClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog returned status %d for %s %s", resp.StatusCode, method, path)
	}

	var env catalogEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("catalog error %d: %s", env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode catalog response data: %w", err)
		}
	}
	return nil
}

// ReportTrackListen records one track listen.
func (c *CatalogClient) ReportTrackListen(ctx context.Context, listen domain.TrackListen) error {
	return c.do(ctx, http.MethodPost, "/api/v1/history/track", listen, nil)
}

// ReportAlbumListen records one album listen.
func (c *CatalogClient) ReportAlbumListen(ctx context.Context, listen domain.AlbumListen) error {
	return c.do(ctx, http.MethodPost, "/api/v1/history/album", listen, nil)
}

// ReportAudiobookProgress records audiobook progress.
func (c *CatalogClient) ReportAudiobookProgress(ctx context.Context, progress domain.AudiobookProgress) error {
	return c.do(ctx, http.MethodPost, "/api/v1/history/audiobook", progress, nil)
}

// LatestTrackListen returns the user's most recent listen across devices,
// or nil when the user has no history yet.
func (c *CatalogClient) LatestTrackListen(ctx context.Context, userID string) (*domain.TrackListen, error) {
	var listen domain.TrackListen
	path := "/api/v1/history/latest?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &listen); err != nil {
		return nil, err
	}
	if listen.TrackID == "" {
		return nil, nil
	}
	return &listen, nil
}

// CreateImportTask asks the catalog to scan the given library path.
func (c *CatalogClient) CreateImportTask(ctx context.Context, path string) (*domain.ImportTask, error) {
	body := map[string]string{"path": path}
	var task domain.ImportTask
	if err := c.do(ctx, http.MethodPost, "/api/v1/import-tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetImportTask polls an import task's progress.
func (c *CatalogClient) GetImportTask(ctx context.Context, id string) (*domain.ImportTask, error) {
	var task domain.ImportTask
	if err := c.do(ctx, http.MethodGet, "/api/v1/import-tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

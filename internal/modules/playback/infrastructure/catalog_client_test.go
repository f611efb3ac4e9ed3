package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, code int, message string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("encode envelope data: %v", err)
		}
		raw = encoded
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(catalogEnvelope{Code: code, Message: message, Data: raw}); err != nil {
		t.Errorf("write envelope: %v", err)
	}
}

func TestCatalogClient_ReportTrackListen(t *testing.T) {
	ctx := context.Background()
	received := make(chan domain.TrackListen, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/history/track" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var listen domain.TrackListen
		if err := json.NewDecoder(r.Body).Decode(&listen); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- listen
		writeEnvelope(t, w, 0, "ok", nil)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL)
	listen := domain.TrackListen{
		TrackID:    "a",
		UserID:     "user-1",
		Position:   42,
		DeviceID:   "device-1",
		DeviceName: "Desktop",
		Synced:     true,
	}
	if err := client.ReportTrackListen(ctx, listen); err != nil {
		t.Fatalf("report: %v", err)
	}

	got := <-received
	if got != listen {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestCatalogClient_EnvelopeError(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, 1001, "user not found", nil)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL)
	err := client.ReportAlbumListen(ctx, domain.AlbumListen{Album: "Greatest Hits", TrackID: "a", UserID: "user-1"})
	if err == nil {
		t.Fatal("expected envelope error")
	}
}

func TestCatalogClient_HTTPError(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL)
	if err := client.ReportAudiobookProgress(ctx, domain.AudiobookProgress{TrackID: "a", UserID: "user-1"}); err == nil {
		t.Fatal("expected status error")
	}
}

func TestCatalogClient_LatestTrackListen(t *testing.T) {
	ctx := context.Background()

	t.Run("returns latest listen", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v1/history/latest" || r.URL.Query().Get("userId") != "user-1" {
				t.Errorf("unexpected request: %s", r.URL.String())
			}
			writeEnvelope(t, w, 0, "ok", domain.TrackListen{TrackID: "a", UserID: "user-1", Position: 12})
		}))
		defer server.Close()

		client := NewCatalogClient(server.URL)
		latest, err := client.LatestTrackListen(ctx, "user-1")
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		if latest == nil || latest.TrackID != "a" || latest.Position != 12 {
			t.Errorf("unexpected listen: %+v", latest)
		}
	})

	t.Run("no history returns nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(t, w, 0, "ok", nil)
		}))
		defer server.Close()

		client := NewCatalogClient(server.URL)
		latest, err := client.LatestTrackListen(ctx, "user-1")
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		if latest != nil {
			t.Errorf("expected nil listen, got %+v", latest)
		}
	})
}

func TestCatalogClient_ImportTasks(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/import-tasks":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if body["path"] != "/library" {
				t.Errorf("unexpected path: %q", body["path"])
			}
			writeEnvelope(t, w, 0, "ok", domain.ImportTask{ID: "task-1", Status: domain.ImportInitializing})

		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/import-tasks/task-1":
			writeEnvelope(t, w, 0, "ok", domain.ImportTask{
				ID:      "task-1",
				Status:  domain.ImportSuccess,
				Total:   100,
				Current: 100,
			})

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL)

	task, err := client.CreateImportTask(ctx, "/library")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "task-1" || task.Status != domain.ImportInitializing {
		t.Errorf("unexpected task: %+v", task)
	}

	task, err = client.GetImportTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != domain.ImportSuccess || !task.Status.Terminal() {
		t.Errorf("unexpected task: %+v", task)
	}
}

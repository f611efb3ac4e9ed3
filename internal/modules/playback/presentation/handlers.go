package presentation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/muselink/muselink/internal/daemon"
	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/application/usecases"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// Handlers exposes the playback module over the daemon's control API.
type Handlers struct {
	player       *usecases.PlayerService
	persistence  *usecases.PersistenceService
	sync         *usecases.SyncService
	history      *usecases.HistoryService
	sleepTimer   *usecases.SleepTimerService
	importClient ports.ImportClient // optional
}

// NewHandlers creates the playback HTTP handlers. importClient may be nil
// when no catalog service is configured.
func NewHandlers(
	player *usecases.PlayerService,
	persistence *usecases.PersistenceService,
	syncService *usecases.SyncService,
	history *usecases.HistoryService,
	sleepTimer *usecases.SleepTimerService,
	importClient ports.ImportClient,
) *Handlers {
	return &Handlers{
		player:       player,
		persistence:  persistence,
		sync:         syncService,
		history:      history,
		sleepTimer:   sleepTimer,
		importClient: importClient,
	}
}

// MountRoutes registers the playback routes.
func (h *Handlers) MountRoutes(router chi.Router) {
	router.Route("/player", func(r chi.Router) {
		r.Get("/", h.handleStatus)
		r.Post("/play", h.handlePlay)
		r.Post("/playlist", h.handlePlaylist)
		r.Post("/pause", h.handlePause)
		r.Post("/resume", h.handleResume)
		r.Post("/next", h.handleNext)
		r.Post("/previous", h.handlePrevious)
		r.Post("/seek", h.handleSeek)
		r.Post("/rate", h.handleRate)
		r.Post("/repeat-mode/toggle", h.handleToggleRepeatMode)
		r.Post("/mode", h.handleSwitchMode)
		r.Put("/sleep-timer", h.handleSetSleepTimer)
		r.Delete("/sleep-timer", h.handleClearSleepTimer)
	})

	router.Route("/session", func(r chi.Router) {
		r.Get("/", h.handleSessionStatus)
		r.Post("/invite", h.handleSendInvite)
		r.Post("/accept", h.handleAcceptInvite)
		r.Post("/reject", h.handleRejectInvite)
		r.Post("/leave", h.handleLeaveSession)
	})

	router.Get("/history/latest", h.handleLatestListen)

	router.Post("/import-tasks", h.handleCreateImportTask)
	router.Get("/import-tasks/{id}", h.handleGetImportTask)
}

// playerStatus is the GET /player response body.
type playerStatus struct {
	Mode         domain.PlaybackMode `json:"mode"`
	State        string              `json:"state"`
	Playing      bool                `json:"playing"`
	CurrentTrack *domain.Track       `json:"currentTrack,omitempty"`
	Queue        []domain.Track      `json:"queue"`
	Position     float64             `json:"position"`
	Duration     float64             `json:"duration"`
	RepeatMode   domain.RepeatMode   `json:"repeatMode"`
	PlaybackRate float64             `json:"playbackRate"`
	SleepTimer   *time.Time          `json:"sleepTimerExpiry,omitempty"`
	Session      *domain.SyncSession `json:"session,omitempty"`
}

func (h *Handlers) handleStatus(w http.ResponseWriter, _ *http.Request) {
	mode, snap := h.player.Snapshot()

	status := playerStatus{
		Mode:         mode,
		State:        h.player.State().String(),
		Playing:      h.player.IsPlaying(),
		CurrentTrack: snap.CurrentTrack,
		Queue:        snap.Queue,
		Position:     snap.Position,
		Duration:     h.player.Duration(),
		RepeatMode:   snap.RepeatMode,
		PlaybackRate: snap.PlaybackRate,
		SleepTimer:   h.sleepTimer.Expiry(),
		Session:      h.sync.Session(),
	}
	daemon.RespondData(w, status)
}

type playRequest struct {
	Track    domain.Track `json:"track"`
	Position float64      `json:"position"`
}

func (h *Handlers) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.player.PlayTrack(r.Context(), usecases.PlayTrackInput{
		Track:    req.Track,
		Position: req.Position,
		Origin:   domain.OriginLocal,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

type playlistRequest struct {
	Tracks []domain.Track `json:"tracks"`
	Index  int            `json:"index"`
}

func (h *Handlers) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Index < 0 || req.Index >= len(req.Tracks) {
		daemon.RespondError(w, http.StatusBadRequest, "index out of bounds")
		return
	}

	err := h.player.PlayTrackList(r.Context(), usecases.PlayTrackListInput{
		Tracks: req.Tracks,
		Index:  req.Index,
		Origin: domain.OriginLocal,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Pause(r.Context(), domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Resume(r.Context(), domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handleNext(w http.ResponseWriter, r *http.Request) {
	if err := h.player.PlayNext(r.Context(), domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if err := h.player.PlayPrevious(r.Context(), domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

type seekRequest struct {
	Position float64 `json:"position"`
}

func (h *Handlers) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.player.SeekTo(r.Context(), req.Position, domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

type rateRequest struct {
	Rate float64 `json:"rate"`
}

func (h *Handlers) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.player.SetPlaybackRate(r.Context(), req.Rate, domain.OriginLocal); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handleToggleRepeatMode(w http.ResponseWriter, _ *http.Request) {
	mode := h.player.ToggleRepeatMode()
	daemon.RespondData(w, map[string]string{"repeatMode": mode.String()})
}

type switchModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handlers) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var req switchModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, ok := domain.ParsePlaybackMode(req.Mode)
	if !ok {
		daemon.RespondError(w, http.StatusBadRequest, "unknown playback mode")
		return
	}

	if err := h.persistence.SwitchMode(r.Context(), mode); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, map[string]string{"mode": string(mode)})
}

type sleepTimerRequest struct {
	Minutes int `json:"minutes"`
}

func (h *Handlers) handleSetSleepTimer(w http.ResponseWriter, r *http.Request) {
	var req sleepTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sleepTimer.Set(req.Minutes); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, map[string]any{"expiry": h.sleepTimer.Expiry()})
}

func (h *Handlers) handleClearSleepTimer(w http.ResponseWriter, _ *http.Request) {
	h.sleepTimer.Clear()
	daemon.RespondData(w, nil)
}

// sessionStatus is the GET /session response body.
type sessionStatus struct {
	Synced  bool                `json:"synced"`
	Session *domain.SyncSession `json:"session,omitempty"`
	Invite  *domain.SyncInvite  `json:"invite,omitempty"`
}

func (h *Handlers) handleSessionStatus(w http.ResponseWriter, _ *http.Request) {
	daemon.RespondData(w, sessionStatus{
		Synced:  h.sync.IsSynced(),
		Session: h.sync.Session(),
		Invite:  h.sync.Invite(),
	})
}

func (h *Handlers) handleSendInvite(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sync.SendInvite(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, map[string]string{"sessionId": sessionID})
}

func (h *Handlers) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.AcceptInvite(r.Context()); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, h.sync.Session())
}

func (h *Handlers) handleRejectInvite(w http.ResponseWriter, _ *http.Request) {
	if err := h.sync.RejectInvite(); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Leave(r.Context()); err != nil {
		respondUsecaseError(w, err)
		return
	}
	daemon.RespondData(w, nil)
}

func (h *Handlers) handleLatestListen(w http.ResponseWriter, r *http.Request) {
	latest, err := h.history.Latest(r.Context())
	if errors.Is(err, usecases.ErrHistoryUnavailable) {
		daemon.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		slog.Warn("failed to fetch latest listen", "error", err)
		daemon.RespondError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	daemon.RespondData(w, latest)
}

type importTaskRequest struct {
	Path string `json:"path"`
}

func (h *Handlers) handleCreateImportTask(w http.ResponseWriter, r *http.Request) {
	if h.importClient == nil {
		daemon.RespondError(w, http.StatusServiceUnavailable, "catalog not configured")
		return
	}

	var req importTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		daemon.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.importClient.CreateImportTask(r.Context(), req.Path)
	if err != nil {
		slog.Warn("failed to create import task", "error", err)
		daemon.RespondError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	daemon.RespondData(w, task)
}

func (h *Handlers) handleGetImportTask(w http.ResponseWriter, r *http.Request) {
	if h.importClient == nil {
		daemon.RespondError(w, http.StatusServiceUnavailable, "catalog not configured")
		return
	}

	task, err := h.importClient.GetImportTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Warn("failed to fetch import task", "error", err)
		daemon.RespondError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	daemon.RespondData(w, task)
}

// respondUsecaseError maps use case errors onto HTTP statuses.
func respondUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecases.ErrInvalidTrack),
		errors.Is(err, usecases.ErrInvalidRate),
		errors.Is(err, usecases.ErrInvalidMode),
		errors.Is(err, usecases.ErrInvalidDuration):
		daemon.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecases.ErrNoInvite):
		daemon.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecases.ErrAlreadySynced), errors.Is(err, usecases.ErrNotSynced):
		daemon.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecases.ErrSyncUnavailable):
		daemon.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("unhandled playback error", "error", err)
		daemon.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

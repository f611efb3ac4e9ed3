package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// Relay event names.
const (
	eventInvite              = "invite"
	eventInviteAccepted      = "invite_accepted"
	eventInviteRejected      = "invite_rejected"
	eventSyncCommand         = "sync_command"
	eventRequestInitialState = "request_initial_state"
	eventPlayerLeft          = "player_left"
	eventSessionEnded        = "session_ended"
)

// Sync command types.
const (
	commandPlay        = "play"
	commandPause       = "pause"
	commandSeek        = "seek"
	commandTrackChange = "track_change"
	commandPlaylist    = "playlist"
)

// initialStateReplyDelay is the pause between the track_change reply and the
// play/pause reply to a late joiner, so the track can load before a
// transport command arrives. Empirical constant, not a protocol guarantee.
const initialStateReplyDelay = 200 * time.Millisecond

// syncCommand is the wire shape of a transport state command.
type syncCommand struct {
	SessionID      string          `json:"sessionId"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data,omitempty"`
	TargetSocketID string          `json:"targetSocketId,omitempty"`
}

// trackChangeData is the payload of a track_change command.
type trackChangeData struct {
	Track    domain.Track `json:"track"`
	Position float64      `json:"position"`
}

// playlistData is the payload of a playlist command.
type playlistData struct {
	Tracks []domain.Track `json:"tracks"`
	Index  int            `json:"index"`
}

// inviteReply answers an invite (accept or reject).
type inviteReply struct {
	SessionID  string `json:"sessionId"`
	UserID     string `json:"userId"`
	DeviceName string `json:"deviceName"`
}

// initialStateRequest asks the host to push full transport state.
type initialStateRequest struct {
	SessionID    string `json:"sessionId"`
	FromSocketID string `json:"fromSocketId"`
}

// sessionEvent notifies peers of membership changes.
type sessionEvent struct {
	SessionID  string `json:"sessionId"`
	UserID     string `json:"userId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`
}

// DeviceIdentity identifies this device to sync peers and the catalog.
type DeviceIdentity struct {
	UserID     string
	Username   string
	DeviceID   string
	DeviceName string
}

// SyncService coordinates membership in a cross-device playback session and
// mirrors transport state between peers. It never touches the audio engine
// directly: remote commands are applied through the player's public
// operations with a remote origin, and the broadcaster skips events that
// carry one, so nothing a peer sent is ever echoed back.
type SyncService struct {
	mu        sync.Mutex
	player    *PlayerService
	transport ports.Transport
	clock     ports.Clock
	identity  DeviceIdentity

	replyDelay time.Duration
	after      func(time.Duration, func()) // timer hook, swapped in tests

	session          *domain.SyncSession
	invite           *domain.SyncInvite
	pendingSessionID string // outgoing invite awaiting acceptance
}

// NewSyncService creates a new SyncService. transport may be nil when no
// relay is configured; session operations then return ErrSyncUnavailable.
func NewSyncService(
	player *PlayerService,
	transport ports.Transport,
	clock ports.Clock,
	identity DeviceIdentity,
) *SyncService {
	return &SyncService{
		player:     player,
		transport:  transport,
		clock:      clock,
		identity:   identity,
		replyDelay: initialStateReplyDelay,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Start registers relay handlers and the outbound broadcast triggers.
func (s *SyncService) Start(subscriber ports.EventSubscriber) {
	if s.transport == nil {
		slog.Info("sync relay not configured, playback sync disabled")
		return
	}

	s.transport.On(eventInvite, s.handleInvite)
	s.transport.On(eventInviteAccepted, s.handleInviteAccepted)
	s.transport.On(eventInviteRejected, s.handleInviteRejected)
	s.transport.On(eventSyncCommand, s.handleSyncCommand)
	s.transport.On(eventRequestInitialState, s.handleInitialStateRequest)
	s.transport.On(eventPlayerLeft, s.handlePlayerLeft)
	s.transport.On(eventSessionEnded, s.handleSessionEnded)

	// Outbound broadcast triggers: local-origin mutations only. Remote
	// origins are what the peer just sent us; re-emitting them would loop.
	subscriber.OnTrackChanged(func(_ context.Context, event domain.TrackChangedEvent) {
		if event.Origin.IsRemote() {
			return
		}
		s.broadcast(commandTrackChange, trackChangeData{Track: event.Track, Position: event.Position})
	})
	subscriber.OnPlayStateChanged(func(_ context.Context, event domain.PlayStateChangedEvent) {
		if event.Origin.IsRemote() {
			return
		}
		command := commandPause
		if event.Playing {
			command = commandPlay
		}
		s.broadcast(command, event.Position)
	})
	subscriber.OnPositionChanged(func(_ context.Context, event domain.PositionChangedEvent) {
		if event.Origin.IsRemote() {
			return
		}
		s.broadcast(commandSeek, event.Position)
	})
	subscriber.OnQueueReplaced(func(_ context.Context, event domain.QueueReplacedEvent) {
		if event.Origin.IsRemote() {
			return
		}
		s.broadcast(commandPlaylist, playlistData{Tracks: event.Tracks, Index: event.Index})
	})
}

// broadcast emits a sync command to the whole session, if one is active.
func (s *SyncService) broadcast(commandType string, data any) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return
	}
	s.emitCommand(session.SessionID, commandType, data, "")
}

func (s *SyncService) emitCommand(sessionID, commandType string, data any, target string) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("failed to encode sync command", "type", commandType, "error", err)
		return
	}

	command := syncCommand{
		SessionID:      sessionID,
		Type:           commandType,
		Data:           raw,
		TargetSocketID: target,
	}
	if err := s.transport.Emit(eventSyncCommand, command); err != nil {
		slog.Warn("failed to emit sync command", "type", commandType, "error", err)
	}
}

// SendInvite proposes a new sync session to the user's other devices,
// carrying enough playback state for a preview. Returns the proposed
// session id.
func (s *SyncService) SendInvite(_ context.Context) (string, error) {
	if s.transport == nil {
		return "", ErrSyncUnavailable
	}

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return "", ErrAlreadySynced
	}
	sessionID := uuid.NewString()
	s.pendingSessionID = sessionID
	s.mu.Unlock()

	_, snap := s.player.Snapshot()
	invite := domain.SyncInvite{
		SessionID:      sessionID,
		FromUserID:     s.identity.UserID,
		FromDeviceID:   s.identity.DeviceID,
		FromDeviceName: s.identity.DeviceName,
		FromUsername:   s.identity.Username,
		CurrentTrack:   snap.CurrentTrack,
		Playlist:       snap.Queue,
		Progress:       snap.Position,
	}
	if err := s.transport.Emit(eventInvite, invite); err != nil {
		return "", err
	}

	slog.Info("sent sync invite", "session", sessionID)
	return sessionID, nil
}

// AcceptInvite joins the pending invite's session and asks the host to push
// full transport state.
func (s *SyncService) AcceptInvite(_ context.Context) error {
	if s.transport == nil {
		return ErrSyncUnavailable
	}

	s.mu.Lock()
	if s.invite == nil || s.invite.Expired(s.clock.Now()) {
		s.invite = nil
		s.mu.Unlock()
		return ErrNoInvite
	}
	if s.session != nil {
		s.mu.Unlock()
		return ErrAlreadySynced
	}
	invite := s.invite
	s.invite = nil

	session := &domain.SyncSession{SessionID: invite.SessionID, IsHost: false}
	session.AddParticipant(domain.Participant{UserID: invite.FromUserID, DeviceName: invite.FromDeviceName})
	session.AddParticipant(domain.Participant{UserID: s.identity.UserID, DeviceName: s.identity.DeviceName})
	s.session = session
	s.mu.Unlock()

	reply := inviteReply{
		SessionID:  invite.SessionID,
		UserID:     s.identity.UserID,
		DeviceName: s.identity.DeviceName,
	}
	if err := s.transport.Emit(eventInviteAccepted, reply); err != nil {
		slog.Warn("failed to acknowledge invite", "error", err)
	}

	// Ask the host to push current track and play state.
	request := initialStateRequest{SessionID: invite.SessionID, FromSocketID: s.identity.DeviceID}
	if err := s.transport.Emit(eventRequestInitialState, request); err != nil {
		slog.Warn("failed to request initial state", "error", err)
	}

	slog.Info("joined sync session", "session", invite.SessionID, "host", invite.FromDeviceName)
	return nil
}

// RejectInvite discards the pending invite and notifies the inviter.
func (s *SyncService) RejectInvite() error {
	if s.transport == nil {
		return ErrSyncUnavailable
	}

	s.mu.Lock()
	if s.invite == nil {
		s.mu.Unlock()
		return ErrNoInvite
	}
	invite := s.invite
	s.invite = nil
	s.mu.Unlock()

	reply := inviteReply{
		SessionID:  invite.SessionID,
		UserID:     s.identity.UserID,
		DeviceName: s.identity.DeviceName,
	}
	if err := s.transport.Emit(eventInviteRejected, reply); err != nil {
		slog.Warn("failed to send invite rejection", "error", err)
	}
	return nil
}

// Leave exits the active session. The host ends the session for everyone;
// other participants just drop out. The UI must confirm with the user
// before calling, since leaving drops the shared listening context.
func (s *SyncService) Leave(_ context.Context) error {
	if s.transport == nil {
		return ErrSyncUnavailable
	}

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return ErrNotSynced
	}

	if session.IsHost {
		event := sessionEvent{SessionID: session.SessionID}
		if err := s.transport.Emit(eventSessionEnded, event); err != nil {
			slog.Warn("failed to announce session end", "error", err)
		}
	} else {
		event := sessionEvent{
			SessionID:  session.SessionID,
			UserID:     s.identity.UserID,
			DeviceName: s.identity.DeviceName,
		}
		if err := s.transport.Emit(eventPlayerLeft, event); err != nil {
			slog.Warn("failed to announce leave", "error", err)
		}
	}

	s.teardown("left by user")
	return nil
}

func (s *SyncService) teardown(reason string) {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.pendingSessionID = ""
	s.mu.Unlock()

	if session != nil {
		slog.Info("sync session ended", "session", session.SessionID, "reason", reason)
	}
}

// IsSynced returns true while a session is active.
func (s *SyncService) IsSynced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Session returns a copy of the active session, or nil.
func (s *SyncService) Session() *domain.SyncSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	return s.session.Clone()
}

// Invite returns a copy of the pending invite, or nil if none or expired.
func (s *SyncService) Invite() *domain.SyncInvite {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invite == nil || s.invite.Expired(s.clock.Now()) {
		return nil
	}
	invite := *s.invite
	return &invite
}

// --- relay handlers ---

func (s *SyncService) handleInvite(payload json.RawMessage) {
	var invite domain.SyncInvite
	if err := json.Unmarshal(payload, &invite); err != nil {
		slog.Warn("malformed sync invite", "error", err)
		return
	}
	if invite.FromDeviceID == s.identity.DeviceID {
		// Our own invite reflected by the relay.
		return
	}

	invite.ReceivedAt = s.clock.Now()

	s.mu.Lock()
	s.invite = &invite
	s.mu.Unlock()

	slog.Info("received sync invite",
		"session", invite.SessionID,
		"from", invite.FromUsername,
		"device", invite.FromDeviceName,
	)

	sessionID := invite.SessionID
	s.after(domain.InviteTTL, func() {
		s.expireInvite(sessionID)
	})
}

func (s *SyncService) expireInvite(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invite != nil && s.invite.SessionID == sessionID {
		s.invite = nil
		slog.Info("sync invite expired", "session", sessionID)
	}
}

func (s *SyncService) handleInviteAccepted(payload json.RawMessage) {
	var reply inviteReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		slog.Warn("malformed invite acceptance", "error", err)
		return
	}

	participant := domain.Participant{UserID: reply.UserID, DeviceName: reply.DeviceName}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.SessionID == reply.SessionID {
		s.session.AddParticipant(participant)
		return
	}
	if s.pendingSessionID != reply.SessionID {
		return
	}

	session := &domain.SyncSession{SessionID: reply.SessionID, IsHost: true}
	session.AddParticipant(domain.Participant{UserID: s.identity.UserID, DeviceName: s.identity.DeviceName})
	session.AddParticipant(participant)
	s.session = session
	s.pendingSessionID = ""

	slog.Info("sync invite accepted", "session", reply.SessionID, "device", reply.DeviceName)
}

func (s *SyncService) handleInviteRejected(payload json.RawMessage) {
	var reply inviteReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingSessionID == reply.SessionID {
		s.pendingSessionID = ""
		slog.Info("sync invite rejected", "session", reply.SessionID, "device", reply.DeviceName)
	}
}

func (s *SyncService) handleSyncCommand(payload json.RawMessage) {
	var command syncCommand
	if err := json.Unmarshal(payload, &command); err != nil {
		slog.Warn("malformed sync command", "error", err)
		return
	}

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil || command.SessionID != session.SessionID {
		return
	}
	if command.TargetSocketID != "" && command.TargetSocketID != s.identity.DeviceID {
		// Directed reply for another participant.
		return
	}

	ctx := context.Background()

	switch command.Type {
	case commandPlay:
		if position, ok := decodePosition(command.Data); ok && position > 0 {
			_ = s.player.SeekTo(ctx, position, domain.OriginRemote)
		}
		_ = s.player.Resume(ctx, domain.OriginRemote)

	case commandPause:
		_ = s.player.Pause(ctx, domain.OriginRemote)

	case commandSeek:
		if position, ok := decodePosition(command.Data); ok {
			_ = s.player.SeekTo(ctx, position, domain.OriginRemote)
		}

	case commandTrackChange:
		var data trackChangeData
		if err := json.Unmarshal(command.Data, &data); err != nil {
			slog.Warn("malformed track_change command", "error", err)
			return
		}
		_ = s.player.PlayTrack(ctx, PlayTrackInput{
			Track:    data.Track,
			Position: data.Position,
			Origin:   domain.OriginRemote,
		})

	case commandPlaylist:
		var data playlistData
		if err := json.Unmarshal(command.Data, &data); err != nil {
			slog.Warn("malformed playlist command", "error", err)
			return
		}
		_ = s.player.ReplaceQueue(ctx, ReplaceQueueInput{
			Tracks: data.Tracks,
			Origin: domain.OriginRemote,
		})

	default:
		// Unmatched command types are protocol no-ops.
		slog.Debug("ignoring unknown sync command", "type", command.Type)
	}
}

func (s *SyncService) handleInitialStateRequest(payload json.RawMessage) {
	var request initialStateRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		slog.Warn("malformed initial state request", "error", err)
		return
	}

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil || !session.IsHost || request.SessionID != session.SessionID {
		return
	}

	track := s.player.CurrentTrack()
	if track == nil {
		return
	}

	s.emitCommand(session.SessionID, commandTrackChange,
		trackChangeData{Track: *track, Position: s.player.Position()},
		request.FromSocketID,
	)

	// Give the joiner time to load the track before the play/pause command.
	s.after(s.replyDelay, func() {
		command := commandPause
		if s.player.IsPlaying() {
			command = commandPlay
		}
		s.emitCommand(session.SessionID, command, s.player.Position(), request.FromSocketID)
	})
}

func (s *SyncService) handlePlayerLeft(payload json.RawMessage) {
	var event sessionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return
	}

	s.mu.Lock()
	session := s.session
	if session == nil || session.SessionID != event.SessionID {
		s.mu.Unlock()
		return
	}
	remaining := session.RemoveParticipant(domain.Participant{
		UserID:     event.UserID,
		DeviceName: event.DeviceName,
	})
	s.mu.Unlock()

	slog.Info("sync participant left", "session", event.SessionID, "device", event.DeviceName)

	if remaining <= 1 {
		s.teardown("all peers left")
	}
}

func (s *SyncService) handleSessionEnded(payload json.RawMessage) {
	var event sessionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return
	}

	s.mu.Lock()
	match := s.session != nil && s.session.SessionID == event.SessionID
	s.mu.Unlock()

	if match {
		s.teardown("ended by host")
	}
}

// decodePosition parses a bare number payload (seconds).
func decodePosition(data json.RawMessage) (float64, bool) {
	var position float64
	if err := json.Unmarshal(data, &position); err != nil {
		slog.Warn("malformed position payload", "error", err)
		return 0, false
	}
	return position, true
}

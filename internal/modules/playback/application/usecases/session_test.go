package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

var testIdentity = DeviceIdentity{
	UserID:     "user-1",
	Username:   "alex",
	DeviceID:   "device-1",
	DeviceName: "Desktop",
}

// newTestSync wires a SyncService to a mock transport, a fake clock, and
// manually fired timers.
func newTestSync(t *testing.T) (*SyncService, *PlayerService, *mockEngine, *mockTransport, *fakeClock, *afterRecorder) {
	t.Helper()

	player, engine, bus := newTestPlayer()
	transport := newMockTransport()
	clock := newFakeClock()
	recorder := &afterRecorder{}

	sync := NewSyncService(player, transport, clock, testIdentity)
	sync.after = recorder.after
	sync.Start(bus)

	return sync, player, engine, transport, clock, recorder
}

// hostSession establishes a session with this device as host.
func hostSession(t *testing.T, sync *SyncService, transport *mockTransport) string {
	t.Helper()

	sessionID, err := sync.SendInvite(context.Background())
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}
	transport.deliver(eventInviteAccepted, inviteReply{
		SessionID:  sessionID,
		UserID:     "user-1",
		DeviceName: "Phone",
	})
	if !sync.IsSynced() {
		t.Fatal("expected active session")
	}
	return sessionID
}

func remoteInvite(sessionID string) domain.SyncInvite {
	return domain.SyncInvite{
		SessionID:      sessionID,
		FromUserID:     "user-1",
		FromDeviceID:   "device-2",
		FromDeviceName: "Phone",
		FromUsername:   "alex",
	}
}

func TestSyncService_TransportUnavailable(t *testing.T) {
	player, _, bus := newTestPlayer()
	sync := NewSyncService(player, nil, newFakeClock(), testIdentity)
	sync.Start(bus)

	if _, err := sync.SendInvite(context.Background()); !errors.Is(err, ErrSyncUnavailable) {
		t.Errorf("expected ErrSyncUnavailable, got %v", err)
	}
	if err := sync.AcceptInvite(context.Background()); !errors.Is(err, ErrSyncUnavailable) {
		t.Errorf("expected ErrSyncUnavailable, got %v", err)
	}
}

func TestSyncService_InviteLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("own invite reflected by relay is ignored", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		invite := remoteInvite("s-1")
		invite.FromDeviceID = testIdentity.DeviceID
		transport.deliver(eventInvite, invite)

		if sync.Invite() != nil {
			t.Error("expected no pending invite")
		}
	})

	t.Run("invite expires after its ttl", func(t *testing.T) {
		sync, _, _, transport, clock, recorder := newTestSync(t)

		transport.deliver(eventInvite, remoteInvite("s-1"))
		if sync.Invite() == nil {
			t.Fatal("expected pending invite")
		}

		clock.advance(domain.InviteTTL + time.Second)
		if sync.Invite() != nil {
			t.Error("expected invite hidden after ttl")
		}

		recorder.fire()
		if err := sync.AcceptInvite(ctx); !errors.Is(err, ErrNoInvite) {
			t.Errorf("expected ErrNoInvite after expiry, got %v", err)
		}
	})

	t.Run("accept joins the session and requests state", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		transport.deliver(eventInvite, remoteInvite("s-1"))
		if err := sync.AcceptInvite(ctx); err != nil {
			t.Fatalf("accept: %v", err)
		}

		session := sync.Session()
		if session == nil {
			t.Fatal("expected active session")
		}
		if session.IsHost {
			t.Error("joiner must not be host")
		}
		if len(session.Participants) != 2 {
			t.Errorf("expected 2 participants, got %+v", session.Participants)
		}

		var sawAccept, sawRequest bool
		for _, msg := range transport.emitted {
			switch msg.event {
			case eventInviteAccepted:
				sawAccept = true
			case eventRequestInitialState:
				sawRequest = true
				var request initialStateRequest
				if err := json.Unmarshal(msg.payload, &request); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if request.SessionID != "s-1" || request.FromSocketID != testIdentity.DeviceID {
					t.Errorf("unexpected request: %+v", request)
				}
			}
		}
		if !sawAccept || !sawRequest {
			t.Errorf("expected acceptance and state request, got accept=%v request=%v", sawAccept, sawRequest)
		}
	})

	t.Run("reject discards and notifies", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		transport.deliver(eventInvite, remoteInvite("s-1"))
		if err := sync.RejectInvite(); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if sync.Invite() != nil {
			t.Error("expected invite discarded")
		}
		if sync.IsSynced() {
			t.Error("expected no session")
		}

		var sawReject bool
		for _, msg := range transport.emitted {
			if msg.event == eventInviteRejected {
				sawReject = true
			}
		}
		if !sawReject {
			t.Error("expected rejection emitted")
		}
	})

	t.Run("acceptance promotes the inviter to host", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)
		hostSession(t, sync, transport)

		session := sync.Session()
		if !session.IsHost {
			t.Error("inviter must be host")
		}
		if len(session.Participants) != 2 {
			t.Errorf("expected 2 participants, got %+v", session.Participants)
		}
	})

	t.Run("acceptance for an unknown session is ignored", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		transport.deliver(eventInviteAccepted, inviteReply{
			SessionID:  "never-sent",
			UserID:     "user-1",
			DeviceName: "Phone",
		})
		if sync.IsSynced() {
			t.Error("expected no session")
		}
	})
}

func TestSyncService_RemoteCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("pause applies without echo", func(t *testing.T) {
		sync, player, engine, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a", "b"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{SessionID: sessionID, Type: commandPause})

		if player.State() != domain.StatePaused || engine.playing {
			t.Error("expected paused")
		}
		if got := transport.commandsOfType(commandPause); len(got) != 0 {
			t.Errorf("remote pause must not be rebroadcast, got %d", len(got))
		}
	})

	t.Run("play seeks then resumes", func(t *testing.T) {
		sync, player, engine, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := player.Pause(ctx, domain.OriginLocal); err != nil {
			t.Fatalf("setup: %v", err)
		}
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{
			SessionID: sessionID,
			Type:      commandPlay,
			Data:      json.RawMessage("63.5"),
		})

		if !engine.playing || engine.position != 63.5 {
			t.Errorf("expected playing at 63.5, got playing=%v position=%v", engine.playing, engine.position)
		}
		if got := transport.commandsOfType(commandPlay); len(got) != 0 {
			t.Errorf("remote play must not be rebroadcast, got %d", len(got))
		}
	})

	t.Run("seek applies without echo", func(t *testing.T) {
		sync, player, engine, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{
			SessionID: sessionID,
			Type:      commandSeek,
			Data:      json.RawMessage("30"),
		})

		if engine.position != 30 {
			t.Errorf("expected position 30, got %v", engine.position)
		}
		if got := transport.commandsOfType(commandSeek); len(got) != 0 {
			t.Errorf("remote seek must not be rebroadcast, got %d", len(got))
		}
	})

	t.Run("track change loads the peer's track", func(t *testing.T) {
		sync, player, engine, transport, _, _ := newTestSync(t)
		sessionID := hostSession(t, sync, transport)

		data, _ := json.Marshal(trackChangeData{Track: mockTrack("z"), Position: 15})
		transport.deliver(eventSyncCommand, syncCommand{
			SessionID: sessionID,
			Type:      commandTrackChange,
			Data:      data,
		})

		if engine.loaded == nil || engine.loaded.ID != "z" || engine.position != 15 {
			t.Errorf("unexpected engine state: %+v at %v", engine.loaded, engine.position)
		}
		if current := player.CurrentTrack(); current == nil || current.ID != "z" {
			t.Errorf("unexpected current track: %+v", current)
		}
		if got := transport.commandsOfType(commandTrackChange); len(got) != 0 {
			t.Errorf("remote track change must not be rebroadcast, got %d", len(got))
		}
	})

	t.Run("playlist replaces the queue without starting playback", func(t *testing.T) {
		sync, player, engine, transport, _, _ := newTestSync(t)
		sessionID := hostSession(t, sync, transport)

		data, _ := json.Marshal(playlistData{Tracks: mockTracks("x", "y"), Index: 0})
		transport.deliver(eventSyncCommand, syncCommand{
			SessionID: sessionID,
			Type:      commandPlaylist,
			Data:      data,
		})

		if engine.loaded != nil {
			t.Error("playlist command must not start playback")
		}
		_, snap := player.Snapshot()
		if len(snap.Queue) != 2 || snap.Queue[0].ID != "x" {
			t.Errorf("unexpected queue: %+v", snap.Queue)
		}
	})

	t.Run("mismatched session id is ignored", func(t *testing.T) {
		sync, player, _, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{SessionID: "other", Type: commandPause})
		if player.State() != domain.StatePlaying {
			t.Errorf("expected playing, got %v", player.State())
		}
	})

	t.Run("directed reply for another device is ignored", func(t *testing.T) {
		sync, player, _, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{
			SessionID:      sessionID,
			Type:           commandPause,
			TargetSocketID: "someone-else",
		})
		if player.State() != domain.StatePlaying {
			t.Errorf("expected playing, got %v", player.State())
		}
	})

	t.Run("unknown command type is a no-op", func(t *testing.T) {
		sync, player, _, transport, _, _ := newTestSync(t)
		if err := playQueue(player, mockTracks("a"), 0); err != nil {
			t.Fatalf("setup: %v", err)
		}
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventSyncCommand, syncCommand{SessionID: sessionID, Type: "volume"})
		if player.State() != domain.StatePlaying {
			t.Errorf("expected playing, got %v", player.State())
		}
	})
}

func TestSyncService_LocalBroadcast(t *testing.T) {
	ctx := context.Background()
	sync, player, engine, transport, _, _ := newTestSync(t)
	sessionID := hostSession(t, sync, transport)

	if err := playQueue(player, mockTracks("a", "b"), 0); err != nil {
		t.Fatalf("play: %v", err)
	}

	playlists := transport.commandsOfType(commandPlaylist)
	if len(playlists) != 1 || playlists[0].SessionID != sessionID {
		t.Fatalf("expected one playlist broadcast, got %+v", playlists)
	}
	changes := transport.commandsOfType(commandTrackChange)
	if len(changes) != 1 {
		t.Fatalf("expected one track change broadcast, got %d", len(changes))
	}
	var change trackChangeData
	if err := json.Unmarshal(changes[0].Data, &change); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if change.Track.ID != "a" {
		t.Errorf("unexpected broadcast track: %+v", change.Track)
	}

	engine.position = 21
	if err := player.Pause(ctx, domain.OriginLocal); err != nil {
		t.Fatalf("pause: %v", err)
	}
	pauses := transport.commandsOfType(commandPause)
	if len(pauses) != 1 {
		t.Fatalf("expected one pause broadcast, got %d", len(pauses))
	}
	if position, ok := decodePosition(pauses[0].Data); !ok || position != 21 {
		t.Errorf("expected pause at 21, got %v", position)
	}

	if err := player.SeekTo(ctx, 44, domain.OriginLocal); err != nil {
		t.Fatalf("seek: %v", err)
	}
	seeks := transport.commandsOfType(commandSeek)
	if len(seeks) != 1 {
		t.Fatalf("expected one seek broadcast, got %d", len(seeks))
	}
}

func TestSyncService_BroadcastWithoutSession(t *testing.T) {
	_, player, _, transport, _, _ := newTestSync(t)

	if err := playQueue(player, mockTracks("a"), 0); err != nil {
		t.Fatalf("play: %v", err)
	}
	for _, msg := range transport.emitted {
		if msg.event == eventSyncCommand {
			t.Fatalf("expected no sync traffic without a session, got %s", msg.payload)
		}
	}
}

func TestSyncService_InitialStateReply(t *testing.T) {
	sync, player, engine, transport, _, recorder := newTestSync(t)
	if err := playQueue(player, mockTracks("a", "b"), 0); err != nil {
		t.Fatalf("setup: %v", err)
	}
	engine.position = 87
	sessionID := hostSession(t, sync, transport)

	transport.emitted = nil
	transport.deliver(eventRequestInitialState, initialStateRequest{
		SessionID:    sessionID,
		FromSocketID: "joiner-socket",
	})

	// The track lands first so the joiner can load it.
	changes := transport.commandsOfType(commandTrackChange)
	if len(changes) != 1 {
		t.Fatalf("expected immediate track change reply, got %d", len(changes))
	}
	if changes[0].TargetSocketID != "joiner-socket" {
		t.Errorf("reply must be directed, got %q", changes[0].TargetSocketID)
	}
	var change trackChangeData
	if err := json.Unmarshal(changes[0].Data, &change); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if change.Track.ID != "a" || change.Position != 87 {
		t.Errorf("unexpected reply state: %+v", change)
	}
	if len(transport.commandsOfType(commandPlay)) != 0 {
		t.Fatal("play reply must be delayed")
	}

	recorder.fire()
	plays := transport.commandsOfType(commandPlay)
	if len(plays) != 1 {
		t.Fatalf("expected delayed play reply, got %d", len(plays))
	}
	if plays[0].TargetSocketID != "joiner-socket" {
		t.Errorf("play reply must be directed, got %q", plays[0].TargetSocketID)
	}
	if position, ok := decodePosition(plays[0].Data); !ok || position != 87 {
		t.Errorf("expected play at 87, got %v", position)
	}
}

func TestSyncService_InitialStateReplyPaused(t *testing.T) {
	ctx := context.Background()
	sync, player, _, transport, _, recorder := newTestSync(t)
	if err := playQueue(player, mockTracks("a"), 0); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := player.Pause(ctx, domain.OriginLocal); err != nil {
		t.Fatalf("pause: %v", err)
	}
	sessionID := hostSession(t, sync, transport)

	transport.emitted = nil
	transport.deliver(eventRequestInitialState, initialStateRequest{
		SessionID:    sessionID,
		FromSocketID: "joiner-socket",
	})
	recorder.fire()

	if len(transport.commandsOfType(commandPlay)) != 0 {
		t.Error("paused host must not send play")
	}
	if len(transport.commandsOfType(commandPause)) != 1 {
		t.Error("expected directed pause reply")
	}
}

func TestSyncService_NonHostIgnoresStateRequests(t *testing.T) {
	ctx := context.Background()
	sync, player, _, transport, _, _ := newTestSync(t)
	if err := playQueue(player, mockTracks("a"), 0); err != nil {
		t.Fatalf("setup: %v", err)
	}

	transport.deliver(eventInvite, remoteInvite("s-1"))
	if err := sync.AcceptInvite(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	transport.emitted = nil
	transport.deliver(eventRequestInitialState, initialStateRequest{
		SessionID:    "s-1",
		FromSocketID: "other",
	})
	if len(transport.emitted) != 0 {
		t.Errorf("non-host must not answer state requests, got %d messages", len(transport.emitted))
	}
}

func TestSyncService_MembershipChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("last peer leaving ends the session", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)
		sessionID := hostSession(t, sync, transport)

		transport.deliver(eventPlayerLeft, sessionEvent{
			SessionID:  sessionID,
			UserID:     "user-1",
			DeviceName: "Phone",
		})
		if sync.IsSynced() {
			t.Error("expected session torn down")
		}
	})

	t.Run("session ended by host", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		transport.deliver(eventInvite, remoteInvite("s-1"))
		if err := sync.AcceptInvite(ctx); err != nil {
			t.Fatalf("accept: %v", err)
		}

		transport.deliver(eventSessionEnded, sessionEvent{SessionID: "s-1"})
		if sync.IsSynced() {
			t.Error("expected session torn down")
		}
	})

	t.Run("host leave announces session end", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)
		hostSession(t, sync, transport)

		if err := sync.Leave(ctx); err != nil {
			t.Fatalf("leave: %v", err)
		}
		if sync.IsSynced() {
			t.Error("expected session torn down")
		}

		var sawEnd bool
		for _, msg := range transport.emitted {
			if msg.event == eventSessionEnded {
				sawEnd = true
			}
		}
		if !sawEnd {
			t.Error("host leave must end the session for everyone")
		}
	})

	t.Run("participant leave announces departure", func(t *testing.T) {
		sync, _, _, transport, _, _ := newTestSync(t)

		transport.deliver(eventInvite, remoteInvite("s-1"))
		if err := sync.AcceptInvite(ctx); err != nil {
			t.Fatalf("accept: %v", err)
		}

		if err := sync.Leave(ctx); err != nil {
			t.Fatalf("leave: %v", err)
		}

		var sawLeft bool
		for _, msg := range transport.emitted {
			if msg.event == eventPlayerLeft {
				var event sessionEvent
				if err := json.Unmarshal(msg.payload, &event); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if event.UserID != testIdentity.UserID || event.DeviceName != testIdentity.DeviceName {
					t.Errorf("unexpected leave event: %+v", event)
				}
				sawLeft = true
			}
		}
		if !sawLeft {
			t.Error("expected player_left emitted")
		}
	})

	t.Run("leave without session", func(t *testing.T) {
		sync, _, _, _, _, _ := newTestSync(t)
		if err := sync.Leave(ctx); !errors.Is(err, ErrNotSynced) {
			t.Errorf("expected ErrNotSynced, got %v", err)
		}
	})
}

package usecases

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// PlayTrackInput contains the input for the PlayTrack use case.
type PlayTrackInput struct {
	Track    domain.Track
	Position float64 // seconds, 0 to start at the beginning
	Origin   domain.Origin
}

// PlayTrackListInput contains the input for the PlayTrackList use case.
type PlayTrackListInput struct {
	Tracks []domain.Track
	Index  int
	Origin domain.Origin
}

// ReplaceQueueInput contains the input for the ReplaceQueue use case.
type ReplaceQueueInput struct {
	Tracks []domain.Track
	Origin domain.Origin
}

// PlayerService is the single source of truth for what is currently playing
// on this device. It owns one snapshot per playback mode and is the only
// component allowed to command the audio engine.
//
// Engine faults are logged and swallowed: playback degrades to paused/idle
// rather than propagating errors to callers.
type PlayerService struct {
	mu         sync.Mutex
	engine     ports.AudioEngine
	publisher  ports.EventPublisher
	cache      ports.AudioCache // optional
	intn       func(int) int    // shuffle source
	mode       domain.PlaybackMode
	snapshots  map[domain.PlaybackMode]*domain.Snapshot
	state      domain.State
	generation uint64 // incremented per PlayTrack; stale loads abandon their state transition
}

// NewPlayerService creates a PlayerService starting in the given mode.
// cache may be nil when no audio cache is configured.
func NewPlayerService(
	engine ports.AudioEngine,
	publisher ports.EventPublisher,
	cache ports.AudioCache,
	startMode domain.PlaybackMode,
) *PlayerService {
	return &PlayerService{
		engine:    engine,
		publisher: publisher,
		cache:     cache,
		intn:      rand.Intn,
		mode:      startMode,
		snapshots: map[domain.PlaybackMode]*domain.Snapshot{
			startMode: domain.NewSnapshot(),
		},
		state: domain.StateIdle,
	}
}

// active returns the snapshot for the current mode. Callers must hold mu.
func (p *PlayerService) active() *domain.Snapshot {
	snap, ok := p.snapshots[p.mode]
	if !ok {
		snap = domain.NewSnapshot()
		p.snapshots[p.mode] = snap
	}
	return snap
}

// PlayTrack replaces current playback unconditionally: resets the engine,
// loads the track, seeks to the initial position, and starts playback.
// A second call while a load is in flight supersedes the first (last call
// wins); the superseded call abandons its state transition.
func (p *PlayerService) PlayTrack(ctx context.Context, input PlayTrackInput) error {
	if !input.Track.IsValid() {
		return ErrInvalidTrack
	}

	track := input.Track

	p.mu.Lock()
	p.generation++
	gen := p.generation
	mode := p.mode
	snap := p.active()
	snap.CurrentTrack = &track
	snap.Position = input.Position
	rate := snap.PlaybackRate
	p.state = domain.StateLoading
	p.mu.Unlock()

	p.publisher.PublishTrackChanged(domain.TrackChangedEvent{
		Mode:     mode,
		Track:    track,
		Position: input.Position,
		Origin:   input.Origin,
	})

	playable := p.resolvePath(ctx, track)

	if err := p.engine.Reset(ctx); err != nil {
		slog.Warn("failed to reset audio engine", "track", track.ID, "error", err)
	}
	err := p.engine.Load(ctx, playable, input.Position, true)
	if err == nil && rate != 1.0 {
		if rateErr := p.engine.SetRate(ctx, rate); rateErr != nil {
			slog.Warn("failed to restore playback rate", "rate", rate, "error", rateErr)
		}
	}

	p.mu.Lock()
	if p.generation != gen {
		// Superseded by a newer PlayTrack while the load was in flight.
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		p.state = domain.StatePaused
		p.mu.Unlock()
		slog.Error("failed to load track", "track", track.ID, "error", err)
		return nil
	}
	p.state = domain.StatePlaying
	p.mu.Unlock()

	return nil
}

// resolvePath swaps the track's path for a cached local copy when one
// exists, and kicks off a background download otherwise. The download never
// blocks playback start.
func (p *PlayerService) resolvePath(ctx context.Context, track domain.Track) domain.Track {
	if p.cache == nil {
		return track
	}

	if local, ok := p.cache.IsCached(track.ID, track.Path); ok {
		track.Path = local
		return track
	}

	go func() {
		if _, err := p.cache.Download(context.WithoutCancel(ctx), track.ID, track.Path); err != nil {
			slog.Debug("background cache download failed", "track", track.ID, "error", err)
		}
	}()

	return track
}

// PlayTrackList replaces the queue and starts playback at the given index.
// No-op if the index is out of bounds.
func (p *PlayerService) PlayTrackList(ctx context.Context, input PlayTrackListInput) error {
	if input.Index < 0 || input.Index >= len(input.Tracks) {
		return nil
	}

	p.mu.Lock()
	mode := p.mode
	snap := p.active()
	snap.Queue = make([]domain.Track, len(input.Tracks))
	copy(snap.Queue, input.Tracks)
	p.mu.Unlock()

	p.publisher.PublishQueueReplaced(domain.QueueReplacedEvent{
		Mode:   mode,
		Tracks: input.Tracks,
		Index:  input.Index,
		Origin: input.Origin,
	})

	return p.PlayTrack(ctx, PlayTrackInput{
		Track:  input.Tracks[input.Index],
		Origin: input.Origin,
	})
}

// ReplaceQueue replaces the queue without touching the current track.
func (p *PlayerService) ReplaceQueue(_ context.Context, input ReplaceQueueInput) error {
	p.mu.Lock()
	mode := p.mode
	snap := p.active()
	snap.Queue = make([]domain.Track, len(input.Tracks))
	copy(snap.Queue, input.Tracks)
	p.mu.Unlock()

	p.publisher.PublishQueueReplaced(domain.QueueReplacedEvent{
		Mode:   mode,
		Tracks: input.Tracks,
		Index:  -1,
		Origin: input.Origin,
	})

	return nil
}

// Pause pauses playback. No-op if the engine has no track loaded or
// playback is not active.
func (p *PlayerService) Pause(ctx context.Context, origin domain.Origin) error {
	if !p.engine.Ready() {
		return nil
	}

	p.mu.Lock()
	if p.state != domain.StatePlaying && p.state != domain.StateLoading {
		p.mu.Unlock()
		return nil
	}
	mode := p.mode
	p.mu.Unlock()

	if err := p.engine.Pause(ctx); err != nil {
		slog.Warn("failed to pause audio engine", "error", err)
	}
	position := p.engine.Position()

	p.mu.Lock()
	p.state = domain.StatePaused
	p.active().Position = position
	p.mu.Unlock()

	p.publisher.PublishPlayStateChanged(domain.PlayStateChangedEvent{
		Mode:     mode,
		Playing:  false,
		Position: position,
		Origin:   origin,
	})

	return nil
}

// Resume resumes paused playback. No-op if the engine has no track loaded
// or nothing is paused.
func (p *PlayerService) Resume(ctx context.Context, origin domain.Origin) error {
	if !p.engine.Ready() {
		return nil
	}

	p.mu.Lock()
	if p.state != domain.StatePaused && p.state != domain.StateEnded {
		p.mu.Unlock()
		return nil
	}
	mode := p.mode
	p.mu.Unlock()

	if err := p.engine.Play(ctx); err != nil {
		slog.Warn("failed to resume audio engine", "error", err)
		return nil
	}
	position := p.engine.Position()

	p.mu.Lock()
	p.state = domain.StatePlaying
	p.active().Position = position
	p.mu.Unlock()

	p.publisher.PublishPlayStateChanged(domain.PlayStateChangedEvent{
		Mode:     mode,
		Playing:  true,
		Position: position,
		Origin:   origin,
	})

	return nil
}

// SeekTo performs an absolute seek, in seconds.
func (p *PlayerService) SeekTo(ctx context.Context, position float64, origin domain.Origin) error {
	if !p.engine.Ready() {
		return nil
	}
	if position < 0 {
		position = 0
	}

	if err := p.engine.SeekTo(ctx, position); err != nil {
		slog.Warn("failed to seek", "position", position, "error", err)
		return nil
	}

	p.mu.Lock()
	mode := p.mode
	p.active().Position = position
	p.mu.Unlock()

	p.publisher.PublishPositionChanged(domain.PositionChangedEvent{
		Mode:     mode,
		Position: position,
		Origin:   origin,
	})

	return nil
}

// SetPlaybackRate sets the playback rate and propagates it to the engine.
func (p *PlayerService) SetPlaybackRate(ctx context.Context, rate float64, origin domain.Origin) error {
	if rate <= 0 {
		return ErrInvalidRate
	}

	if p.engine.Ready() {
		if err := p.engine.SetRate(ctx, rate); err != nil {
			slog.Warn("failed to set playback rate", "rate", rate, "error", err)
		}
	}

	p.mu.Lock()
	mode := p.mode
	p.active().PlaybackRate = rate
	p.mu.Unlock()

	p.publisher.PublishRateChanged(domain.RateChangedEvent{
		Mode:   mode,
		Rate:   rate,
		Origin: origin,
	})

	return nil
}

// ToggleRepeatMode advances the repeat mode to the next value in the fixed
// cycle and returns the new mode.
func (p *PlayerService) ToggleRepeatMode() domain.RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.active()
	snap.RepeatMode = snap.RepeatMode.Next()
	return snap.RepeatMode
}

// PlayNext advances to the next track per the repeat mode rules. No-op if
// the queue is empty or the current track is not a queue member. When there
// is no next track, playback pauses and the player enters the ended state.
func (p *PlayerService) PlayNext(ctx context.Context, origin domain.Origin) error {
	p.mu.Lock()
	snap := p.active()
	length := len(snap.Queue)
	current := snap.CurrentIndex()
	repeatMode := snap.RepeatMode

	if length == 0 || current < 0 {
		p.mu.Unlock()
		return nil
	}

	if repeatMode == domain.RepeatLoopSingle {
		p.mu.Unlock()
		return p.restartCurrent(ctx, origin)
	}

	next, ok := domain.NextIndex(length, current, repeatMode, p.intn)
	if !ok {
		p.mu.Unlock()
		return p.stopAtQueueEnd(ctx, origin)
	}

	track := snap.Queue[next]
	p.mu.Unlock()

	return p.PlayTrack(ctx, PlayTrackInput{Track: track, Origin: origin})
}

// PlayPrevious steps back one queue position, wrapping to the last track at
// index 0. No-op if the queue is empty or the current track is not a member.
func (p *PlayerService) PlayPrevious(ctx context.Context, origin domain.Origin) error {
	p.mu.Lock()
	snap := p.active()
	length := len(snap.Queue)
	current := snap.CurrentIndex()

	if length == 0 || current < 0 {
		p.mu.Unlock()
		return nil
	}

	track := snap.Queue[domain.PreviousIndex(length, current)]
	p.mu.Unlock()

	return p.PlayTrack(ctx, PlayTrackInput{Track: track, Origin: origin})
}

// restartCurrent reseeks the current track to 0 without advancing the queue
// index (loop-single behavior). The engine may have stopped on its own at
// end-of-track, so playback is restarted explicitly.
func (p *PlayerService) restartCurrent(ctx context.Context, origin domain.Origin) error {
	if !p.engine.Ready() {
		return nil
	}

	if err := p.engine.SeekTo(ctx, 0); err != nil {
		slog.Warn("failed to restart current track", "error", err)
		return nil
	}
	if err := p.engine.Play(ctx); err != nil {
		slog.Warn("failed to resume after restart", "error", err)
	}

	p.mu.Lock()
	mode := p.mode
	p.state = domain.StatePlaying
	p.active().Position = 0
	p.mu.Unlock()

	p.publisher.PublishPositionChanged(domain.PositionChangedEvent{
		Mode:   mode,
		Origin: origin,
	})

	return nil
}

// stopAtQueueEnd pauses the engine and marks the queue exhausted.
func (p *PlayerService) stopAtQueueEnd(ctx context.Context, origin domain.Origin) error {
	if p.engine.Ready() {
		if err := p.engine.Pause(ctx); err != nil {
			slog.Warn("failed to pause at queue end", "error", err)
		}
	}
	position := p.engine.Position()

	p.mu.Lock()
	mode := p.mode
	p.state = domain.StateEnded
	p.active().Position = position
	p.mu.Unlock()

	p.publisher.PublishPlayStateChanged(domain.PlayStateChangedEvent{
		Mode:     mode,
		Playing:  false,
		Position: position,
		Origin:   origin,
	})

	return nil
}

// HandleTrackEnded advances the queue when the engine reports the current
// track played to completion. Stale notifications for a superseded track
// are ignored.
func (p *PlayerService) HandleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	p.mu.Lock()
	snap := p.active()
	stale := snap.CurrentTrack == nil || snap.CurrentTrack.ID != event.TrackID
	p.mu.Unlock()

	if stale {
		slog.Debug("ignoring track end for superseded track", "track", event.TrackID)
		return
	}

	if err := p.PlayNext(ctx, domain.OriginLocal); err != nil {
		slog.Warn("failed to advance queue after track end", "error", err)
	}
}

// Mode returns the active playback mode.
func (p *PlayerService) Mode() domain.PlaybackMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches the active snapshot. The caller (persistence service)
// is responsible for saving the outgoing snapshot and restoring the
// incoming one.
func (p *PlayerService) SetMode(mode domain.PlaybackMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == mode {
		return
	}
	p.mode = mode
	if _, ok := p.snapshots[mode]; !ok {
		p.snapshots[mode] = domain.NewSnapshot()
	}
	p.state = domain.StateIdle
}

// Snapshot returns the active mode and a copy of its snapshot with the
// position refreshed from the engine.
func (p *PlayerService) Snapshot() (domain.PlaybackMode, *domain.Snapshot) {
	p.mu.Lock()
	mode := p.mode
	snap := p.active().Clone()
	ready := p.state.IsActive() || p.state == domain.StateEnded
	p.mu.Unlock()

	if ready && p.engine.Ready() {
		snap.Position = p.engine.Position()
	}
	return mode, snap
}

// Restore loads a persisted snapshot into the active mode and re-queues the
// saved track at the saved position without starting playback.
func (p *PlayerService) Restore(ctx context.Context, snap *domain.Snapshot) error {
	restored := snap.Clone()

	p.mu.Lock()
	p.generation++
	p.snapshots[p.mode] = restored
	track := restored.CurrentTrack
	position := restored.Position
	rate := restored.PlaybackRate
	if track == nil {
		p.state = domain.StateIdle
	} else {
		p.state = domain.StatePaused
	}
	p.mu.Unlock()

	if track == nil {
		if err := p.engine.Reset(ctx); err != nil {
			slog.Warn("failed to reset engine on restore", "error", err)
		}
		return nil
	}

	playable := p.resolvePath(ctx, *track)
	if err := p.engine.Load(ctx, playable, position, false); err != nil {
		slog.Error("failed to restore track", "track", track.ID, "error", err)
		p.mu.Lock()
		p.state = domain.StateIdle
		p.mu.Unlock()
		return nil
	}
	if rate != 1.0 {
		if err := p.engine.SetRate(ctx, rate); err != nil {
			slog.Warn("failed to restore playback rate", "rate", rate, "error", err)
		}
	}
	return nil
}

// State returns the player state.
func (p *PlayerService) State() domain.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsPlaying returns true while playback is active and not paused.
func (p *PlayerService) IsPlaying() bool {
	return p.State() == domain.StatePlaying
}

// Ready reports whether the audio engine has a track loaded.
func (p *PlayerService) Ready() bool {
	return p.engine.Ready()
}

// Position returns the live playback position in seconds.
func (p *PlayerService) Position() float64 {
	if !p.engine.Ready() {
		return 0
	}
	return p.engine.Position()
}

// Duration returns the current track's duration in seconds.
func (p *PlayerService) Duration() float64 {
	if !p.engine.Ready() {
		return 0
	}
	return p.engine.Duration()
}

// CurrentTrack returns a copy of the current track, or nil.
func (p *PlayerService) CurrentTrack() *domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.active().CurrentTrack
	if current == nil {
		return nil
	}
	track := *current
	return &track
}

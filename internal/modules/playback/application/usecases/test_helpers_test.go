package usecases

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

func mockTrack(id string) domain.Track {
	return domain.Track{
		ID:       domain.TrackID(id),
		Path:     "/music/" + id + ".mp3",
		Name:     "Track " + id,
		Artist:   "Artist",
		Duration: 180,
		Type:     domain.TrackTypeMusic,
	}
}

func mockTracks(ids ...string) []domain.Track {
	tracks := make([]domain.Track, len(ids))
	for i, id := range ids {
		tracks[i] = mockTrack(id)
	}
	return tracks
}

// mockEngine is a test double for ports.AudioEngine. It applies its state
// before firing onLoad, so a reentrant PlayTrack issued mid-load leaves the
// engine holding the newer track, like a real engine processing commands in
// order.
type mockEngine struct {
	ready        bool
	playing      bool
	position     float64
	duration     float64
	rate         float64
	loaded       *domain.Track
	loadAutoplay bool
	resetCount   int

	loadErr  error
	playErr  error
	pauseErr error
	seekErr  error
	rateErr  error

	onLoad func(track domain.Track)
}

func (m *mockEngine) Load(_ context.Context, track domain.Track, position float64, autoplay bool) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.ready = true
	m.loaded = &track
	m.position = position
	m.duration = track.Duration
	m.playing = autoplay
	m.loadAutoplay = autoplay

	if m.onLoad != nil {
		callback := m.onLoad
		m.onLoad = nil
		callback(track)
	}
	return nil
}

func (m *mockEngine) Play(_ context.Context) error {
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *mockEngine) Pause(_ context.Context) error {
	if m.pauseErr != nil {
		return m.pauseErr
	}
	m.playing = false
	return nil
}

func (m *mockEngine) SeekTo(_ context.Context, position float64) error {
	if m.seekErr != nil {
		return m.seekErr
	}
	m.position = position
	return nil
}

func (m *mockEngine) SetRate(_ context.Context, rate float64) error {
	if m.rateErr != nil {
		return m.rateErr
	}
	m.rate = rate
	return nil
}

func (m *mockEngine) Reset(_ context.Context) error {
	m.resetCount++
	m.ready = false
	m.loaded = nil
	m.playing = false
	m.position = 0
	m.duration = 0
	return nil
}

func (m *mockEngine) Position() float64 { return m.position }
func (m *mockEngine) Duration() float64 { return m.duration }
func (m *mockEngine) Ready() bool       { return m.ready }

var _ ports.AudioEngine = (*mockEngine)(nil)

// syncBus is a synchronous in-process event bus: publishing invokes the
// registered handlers inline, which makes observer-driven assertions
// deterministic.
type syncBus struct {
	trackChanged     []func(context.Context, domain.TrackChangedEvent)
	playStateChanged []func(context.Context, domain.PlayStateChangedEvent)
	positionChanged  []func(context.Context, domain.PositionChangedEvent)
	queueReplaced    []func(context.Context, domain.QueueReplacedEvent)
	rateChanged      []func(context.Context, domain.RateChangedEvent)
	trackEnded       []func(context.Context, domain.TrackEndedEvent)

	trackChangedEvents     []domain.TrackChangedEvent
	playStateChangedEvents []domain.PlayStateChangedEvent
	positionChangedEvents  []domain.PositionChangedEvent
	queueReplacedEvents    []domain.QueueReplacedEvent
	rateChangedEvents      []domain.RateChangedEvent
}

func (b *syncBus) PublishTrackChanged(event domain.TrackChangedEvent) {
	b.trackChangedEvents = append(b.trackChangedEvents, event)
	for _, handler := range b.trackChanged {
		handler(context.Background(), event)
	}
}

func (b *syncBus) PublishPlayStateChanged(event domain.PlayStateChangedEvent) {
	b.playStateChangedEvents = append(b.playStateChangedEvents, event)
	for _, handler := range b.playStateChanged {
		handler(context.Background(), event)
	}
}

func (b *syncBus) PublishPositionChanged(event domain.PositionChangedEvent) {
	b.positionChangedEvents = append(b.positionChangedEvents, event)
	for _, handler := range b.positionChanged {
		handler(context.Background(), event)
	}
}

func (b *syncBus) PublishQueueReplaced(event domain.QueueReplacedEvent) {
	b.queueReplacedEvents = append(b.queueReplacedEvents, event)
	for _, handler := range b.queueReplaced {
		handler(context.Background(), event)
	}
}

func (b *syncBus) PublishRateChanged(event domain.RateChangedEvent) {
	b.rateChangedEvents = append(b.rateChangedEvents, event)
	for _, handler := range b.rateChanged {
		handler(context.Background(), event)
	}
}

func (b *syncBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	for _, handler := range b.trackEnded {
		handler(context.Background(), event)
	}
}

func (b *syncBus) OnTrackChanged(handler func(context.Context, domain.TrackChangedEvent)) {
	b.trackChanged = append(b.trackChanged, handler)
}

func (b *syncBus) OnPlayStateChanged(handler func(context.Context, domain.PlayStateChangedEvent)) {
	b.playStateChanged = append(b.playStateChanged, handler)
}

func (b *syncBus) OnPositionChanged(handler func(context.Context, domain.PositionChangedEvent)) {
	b.positionChanged = append(b.positionChanged, handler)
}

func (b *syncBus) OnQueueReplaced(handler func(context.Context, domain.QueueReplacedEvent)) {
	b.queueReplaced = append(b.queueReplaced, handler)
}

func (b *syncBus) OnRateChanged(handler func(context.Context, domain.RateChangedEvent)) {
	b.rateChanged = append(b.rateChanged, handler)
}

func (b *syncBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.trackEnded = append(b.trackEnded, handler)
}

var (
	_ ports.EventPublisher  = (*syncBus)(nil)
	_ ports.EventSubscriber = (*syncBus)(nil)
)

// emittedMessage records one Transport.Emit call.
type emittedMessage struct {
	event   string
	payload json.RawMessage
}

// mockTransport is a test double for ports.Transport. Tests inject inbound
// relay messages with deliver.
type mockTransport struct {
	emitted  []emittedMessage
	handlers map[string]ports.MessageHandler
	emitErr  error
}

func newMockTransport() *mockTransport {
	return &mockTransport{handlers: make(map[string]ports.MessageHandler)}
}

func (m *mockTransport) Emit(event string, payload any) error {
	if m.emitErr != nil {
		return m.emitErr
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.emitted = append(m.emitted, emittedMessage{event: event, payload: raw})
	return nil
}

func (m *mockTransport) On(event string, handler ports.MessageHandler) {
	m.handlers[event] = handler
}

func (m *mockTransport) Off(event string) {
	delete(m.handlers, event)
}

func (m *mockTransport) Close() error { return nil }

// deliver simulates an inbound relay message.
func (m *mockTransport) deliver(event string, payload any) {
	handler, ok := m.handlers[event]
	if !ok {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	handler(raw)
}

// commandsOfType filters emitted sync commands by type.
func (m *mockTransport) commandsOfType(commandType string) []syncCommand {
	var commands []syncCommand
	for _, msg := range m.emitted {
		if msg.event != eventSyncCommand {
			continue
		}
		var command syncCommand
		if err := json.Unmarshal(msg.payload, &command); err != nil {
			continue
		}
		if command.Type == commandType {
			commands = append(commands, command)
		}
	}
	return commands
}

var _ ports.Transport = (*mockTransport)(nil)

// mockStore is an in-memory test double for ports.SnapshotStore.
type mockStore struct {
	snapshots map[domain.PlaybackMode]*domain.Snapshot
	saves     int
	saveErr   error
	loadErr   error
}

func newMockStore() *mockStore {
	return &mockStore{snapshots: make(map[domain.PlaybackMode]*domain.Snapshot)}
}

func (m *mockStore) Save(_ context.Context, mode domain.PlaybackMode, snap *domain.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snapshots[mode] = snap.Clone()
	return nil
}

func (m *mockStore) Load(_ context.Context, mode domain.PlaybackMode) (*domain.Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	snap, ok := m.snapshots[mode]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

var _ ports.SnapshotStore = (*mockStore)(nil)

// mockReporter is a test double for ports.HistoryReporter.
type mockReporter struct {
	trackListens []domain.TrackListen
	albumListens []domain.AlbumListen
	progress     []domain.AudiobookProgress
	latest       *domain.TrackListen
	reportErr    error
}

func (m *mockReporter) ReportTrackListen(_ context.Context, listen domain.TrackListen) error {
	if m.reportErr != nil {
		return m.reportErr
	}
	m.trackListens = append(m.trackListens, listen)
	return nil
}

func (m *mockReporter) ReportAlbumListen(_ context.Context, listen domain.AlbumListen) error {
	if m.reportErr != nil {
		return m.reportErr
	}
	m.albumListens = append(m.albumListens, listen)
	return nil
}

func (m *mockReporter) ReportAudiobookProgress(_ context.Context, progress domain.AudiobookProgress) error {
	if m.reportErr != nil {
		return m.reportErr
	}
	m.progress = append(m.progress, progress)
	return nil
}

func (m *mockReporter) LatestTrackListen(_ context.Context, _ string) (*domain.TrackListen, error) {
	return m.latest, nil
}

var _ ports.HistoryReporter = (*mockReporter)(nil)

// mockCache is a test double for ports.AudioCache.
type mockCache struct {
	mu        sync.Mutex
	cached    map[domain.TrackID]string
	downloads []domain.TrackID
}

func newMockCache() *mockCache {
	return &mockCache{cached: make(map[domain.TrackID]string)}
}

func (m *mockCache) IsCached(id domain.TrackID, _ string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, ok := m.cached[id]
	return path, ok
}

func (m *mockCache) Download(_ context.Context, id domain.TrackID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, id)
	return "/cache/" + string(id), nil
}

var _ ports.AudioCache = (*mockCache)(nil)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

var _ ports.Clock = (*fakeClock)(nil)

// afterRecorder captures timer registrations so tests fire them manually.
type afterRecorder struct {
	pending []func()
}

func (a *afterRecorder) after(_ time.Duration, f func()) {
	a.pending = append(a.pending, f)
}

// fire runs and clears all pending timer callbacks.
func (a *afterRecorder) fire() {
	pending := a.pending
	a.pending = nil
	for _, f := range pending {
		f()
	}
}

// newTestPlayer builds a PlayerService wired to a mock engine and a
// synchronous bus.
func newTestPlayer() (*PlayerService, *mockEngine, *syncBus) {
	engine := &mockEngine{}
	bus := &syncBus{}
	player := NewPlayerService(engine, bus, nil, domain.ModeMusic)
	return player, engine, bus
}

// playQueue loads a queue and starts playback at index.
func playQueue(player *PlayerService, tracks []domain.Track, index int) error {
	return player.PlayTrackList(context.Background(), PlayTrackListInput{
		Tracks: tracks,
		Index:  index,
		Origin: domain.OriginLocal,
	})
}

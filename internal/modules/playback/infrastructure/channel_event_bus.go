package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
type ChannelEventBus struct {
	// Channels for event delivery
	trackChanged     chan domain.TrackChangedEvent
	playStateChanged chan domain.PlayStateChangedEvent
	positionChanged  chan domain.PositionChangedEvent
	queueReplaced    chan domain.QueueReplacedEvent
	rateChanged      chan domain.RateChangedEvent
	trackEnded       chan domain.TrackEndedEvent

	// Handler slices for callback-based subscription
	trackChangedHandlers     []func(context.Context, domain.TrackChangedEvent)
	playStateChangedHandlers []func(context.Context, domain.PlayStateChangedEvent)
	positionChangedHandlers  []func(context.Context, domain.PositionChangedEvent)
	queueReplacedHandlers    []func(context.Context, domain.QueueReplacedEvent)
	rateChangedHandlers      []func(context.Context, domain.RateChangedEvent)
	trackEndedHandlers       []func(context.Context, domain.TrackEndedEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		trackChanged:     make(chan domain.TrackChangedEvent, bufferSize),
		playStateChanged: make(chan domain.PlayStateChangedEvent, bufferSize),
		positionChanged:  make(chan domain.PositionChangedEvent, bufferSize),
		queueReplaced:    make(chan domain.QueueReplacedEvent, bufferSize),
		rateChanged:      make(chan domain.RateChangedEvent, bufferSize),
		trackEnded:       make(chan domain.TrackEndedEvent, bufferSize),
		ctx:              ctx,
		cancel:           cancel,
	}

	// Start dispatcher goroutines
	bus.startDispatchers()

	return bus
}

// startDispatchers starts goroutines that dispatch events to registered handlers.
func (b *ChannelEventBus) startDispatchers() {
	b.wg.Add(6)

	go b.dispatchTrackChanged()
	go b.dispatchPlayStateChanged()
	go b.dispatchPositionChanged()
	go b.dispatchQueueReplaced()
	go b.dispatchRateChanged()
	go b.dispatchTrackEnded()
}

func (b *ChannelEventBus) dispatchTrackChanged() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.trackChanged:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.trackChangedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchPlayStateChanged() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.playStateChanged:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.playStateChangedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchPositionChanged() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.positionChanged:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.positionChangedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchQueueReplaced() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.queueReplaced:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.queueReplacedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchRateChanged() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.rateChanged:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.rateChangedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchTrackEnded() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.trackEnded:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.trackEndedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// --- EventPublisher interface ---

// PublishTrackChanged publishes a TrackChangedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishTrackChanged(event domain.TrackChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TrackChanged")
		return
	}

	select {
	case b.trackChanged <- event:
		slog.Debug("published event", "type", "TrackChanged", "track", event.Track.ID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TrackChanged")
	}
}

// PublishPlayStateChanged publishes a PlayStateChangedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishPlayStateChanged(event domain.PlayStateChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "PlayStateChanged")
		return
	}

	select {
	case b.playStateChanged <- event:
		slog.Debug("published event", "type", "PlayStateChanged", "playing", event.Playing)
	default:
		slog.Warn("event buffer full, dropping event", "type", "PlayStateChanged")
	}
}

// PublishPositionChanged publishes a PositionChangedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishPositionChanged(event domain.PositionChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "PositionChanged")
		return
	}

	select {
	case b.positionChanged <- event:
		slog.Debug("published event", "type", "PositionChanged", "position", event.Position)
	default:
		slog.Warn("event buffer full, dropping event", "type", "PositionChanged")
	}
}

// PublishQueueReplaced publishes a QueueReplacedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishQueueReplaced(event domain.QueueReplacedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "QueueReplaced")
		return
	}

	select {
	case b.queueReplaced <- event:
		slog.Debug("published event", "type", "QueueReplaced", "tracks", len(event.Tracks))
	default:
		slog.Warn("event buffer full, dropping event", "type", "QueueReplaced")
	}
}

// PublishRateChanged publishes a RateChangedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishRateChanged(event domain.RateChangedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "RateChanged")
		return
	}

	select {
	case b.rateChanged <- event:
		slog.Debug("published event", "type", "RateChanged", "rate", event.Rate)
	default:
		slog.Warn("event buffer full, dropping event", "type", "RateChanged")
	}
}

// PublishTrackEnded publishes a TrackEndedEvent.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TrackEnded")
		return
	}

	select {
	case b.trackEnded <- event:
		slog.Debug("published event", "type", "TrackEnded", "track", event.TrackID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TrackEnded")
	}
}

// --- EventSubscriber interface ---

// OnTrackChanged registers a handler for TrackChangedEvent.
func (b *ChannelEventBus) OnTrackChanged(
	handler func(context.Context, domain.TrackChangedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackChangedHandlers = append(b.trackChangedHandlers, handler)
}

// OnPlayStateChanged registers a handler for PlayStateChangedEvent.
func (b *ChannelEventBus) OnPlayStateChanged(
	handler func(context.Context, domain.PlayStateChangedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playStateChangedHandlers = append(b.playStateChangedHandlers, handler)
}

// OnPositionChanged registers a handler for PositionChangedEvent.
func (b *ChannelEventBus) OnPositionChanged(
	handler func(context.Context, domain.PositionChangedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positionChangedHandlers = append(b.positionChangedHandlers, handler)
}

// OnQueueReplaced registers a handler for QueueReplacedEvent.
func (b *ChannelEventBus) OnQueueReplaced(
	handler func(context.Context, domain.QueueReplacedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueReplacedHandlers = append(b.queueReplacedHandlers, handler)
}

// OnRateChanged registers a handler for RateChangedEvent.
func (b *ChannelEventBus) OnRateChanged(handler func(context.Context, domain.RateChangedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rateChangedHandlers = append(b.rateChangedHandlers, handler)
}

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackEndedHandlers = append(b.trackEndedHandlers, handler)
}

// Close closes all event channels and stops dispatchers.
// After calling Close, publishing will no longer send events.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	// Cancel context to stop dispatchers
	b.cancel()

	// Close channels to unblock any pending reads
	close(b.trackChanged)
	close(b.playStateChanged)
	close(b.positionChanged)
	close(b.queueReplaced)
	close(b.rateChanged)
	close(b.trackEnded)

	// Wait for dispatchers to finish
	b.wg.Wait()

	slog.Debug("channel event bus closed")
}

package ports

import (
	"context"

	"github.com/muselink/muselink/internal/modules/playback/domain"
)

// EventPublisher publishes player mutation events. Publishing is
// non-blocking; implementations may drop events under backpressure.
type EventPublisher interface {
	PublishTrackChanged(event domain.TrackChangedEvent)
	PublishPlayStateChanged(event domain.PlayStateChangedEvent)
	PublishPositionChanged(event domain.PositionChangedEvent)
	PublishQueueReplaced(event domain.QueueReplacedEvent)
	PublishRateChanged(event domain.RateChangedEvent)
	PublishTrackEnded(event domain.TrackEndedEvent)
}

// EventSubscriber registers handlers for player mutation events. Handlers
// run on the bus dispatcher goroutines.
type EventSubscriber interface {
	OnTrackChanged(handler func(context.Context, domain.TrackChangedEvent))
	OnPlayStateChanged(handler func(context.Context, domain.PlayStateChangedEvent))
	OnPositionChanged(handler func(context.Context, domain.PositionChangedEvent))
	OnQueueReplaced(handler func(context.Context, domain.QueueReplacedEvent))
	OnRateChanged(handler func(context.Context, domain.RateChangedEvent))
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
}

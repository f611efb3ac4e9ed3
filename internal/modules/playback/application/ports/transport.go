package ports

import "encoding/json"

// MessageHandler processes one inbound relay message. The transport delivers
// messages one at a time per channel; handlers must not assume interleaving.
type MessageHandler func(payload json.RawMessage)

// Transport is a bidirectional event channel to the sync relay. Delivery is
// best-effort, in order per channel, with no acknowledgements.
type Transport interface {
	// Emit sends a named message with the given payload.
	Emit(event string, payload any) error

	// On registers the handler for a named message, replacing any previous
	// handler for that event.
	On(event string, handler MessageHandler)

	// Off removes the handler for a named message.
	Off(event string)

	// Close tears down the channel.
	Close() error
}

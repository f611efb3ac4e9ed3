package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muselink/muselink/internal/modules/playback/application/ports"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out at a fraction of this.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the pause between reconnection attempts.
	reconnectDelay = 5 * time.Second

	// sendBufferSize is the outbound message buffer. Messages beyond it are
	// dropped rather than blocking the publisher.
	sendBufferSize = 256
)

var _ ports.Transport = (*WSTransport)(nil)

// envelope is the wire format of every relay message.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// WSTransport is a websocket client for the sync relay. It keeps one
// connection with separate read and write pumps and reconnects with a fixed
// delay when the connection drops. Messages emitted while disconnected are
// dropped; sync state converges again through the initial-state handshake.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.RWMutex
	handlers map[string]ports.MessageHandler
	conn     *websocket.Conn
	closed   bool

	send chan envelope
	done chan struct{}
}

// NewWSTransport creates a transport for the given relay URL. Run must be
// called to establish the connection.
func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		url:      url,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string]ports.MessageHandler),
		send:     make(chan envelope, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// Emit queues a message for delivery to the relay.
func (t *WSTransport) Emit(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	select {
	case t.send <- envelope{Event: event, Payload: raw}:
		return nil
	default:
		slog.Warn("relay send buffer full, dropping message", "event", event)
		return nil
	}
}

// On registers the handler for an event, replacing any previous one.
func (t *WSTransport) On(event string, handler ports.MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = handler
}

// Off removes the handler for an event.
func (t *WSTransport) Off(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, event)
}

// Close shuts the transport down. Run returns once the connection is gone.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	close(t.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Run connects to the relay and services the connection until ctx is done
// or Close is called, reconnecting on failure.
func (t *WSTransport) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		if err := t.connectAndServe(ctx); err != nil {
			slog.Warn("relay connection lost", "url", t.url, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (t *WSTransport) connectAndServe(ctx context.Context) error {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return nil
	}
	t.conn = conn
	t.mu.Unlock()

	slog.Info("connected to sync relay", "url", t.url)

	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	go t.writePump(conn, readerDone, writerDone)

	err = t.readPump(conn)
	close(readerDone)

	conn.Close()
	<-writerDone

	t.mu.Lock()
	t.conn = nil
	t.mu.Unlock()

	return err
}

// readPump reads relay messages and dispatches them to registered handlers
// until the connection fails.
func (t *WSTransport) readPump(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("malformed relay message", "error", err)
			continue
		}

		t.mu.RLock()
		handler, ok := t.handlers[msg.Event]
		t.mu.RUnlock()
		if !ok {
			slog.Debug("no handler for relay event", "event", msg.Event)
			continue
		}
		handler(msg.Payload)
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings.
func (t *WSTransport) writePump(conn *websocket.Conn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-t.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("failed to write relay message", "event", msg.Event, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

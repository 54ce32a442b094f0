/*
Package socket implements the persistent real-time channel to the Chatify backend.

This file defines the Channel struct, which owns the single shared connection.
It manages lazy idempotent connection, the bounded reconnect policy, subscription
dispatch, and fire-and-forget emission. Connection loss is silent to callers:
events emitted while disconnected are dropped, and recovery of anything missed is
the synchronizer's job (it re-fetches a REST snapshot on reconnect).
*/
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/randx"
)

const (
	// sendQueueSize is the capacity of the outbound message queue per connection.
	sendQueueSize = 256

	// DefaultReconnectAttempts bounds the automatic reconnect retries.
	DefaultReconnectAttempts = 5

	// DefaultReconnectDelay is the delay before the first reconnect attempt.
	DefaultReconnectDelay = time.Second

	// DefaultReconnectDelayMax is the ceiling the reconnect delay grows to.
	DefaultReconnectDelayMax = 5 * time.Second
)

// Config carries the connection parameters for a Channel.
type Config struct {
	// URL is the http(s) base of the socket server, e.g. "http://localhost:3000".
	URL string

	// UserID identifies the authenticated user in the handshake query.
	UserID string

	// DeviceID distinguishes this connection in the handshake query.
	DeviceID string

	// ReconnectAttempts bounds automatic reconnection; zero means the default.
	ReconnectAttempts int

	// ReconnectDelay is the initial reconnect delay; zero means the default.
	ReconnectDelay time.Duration

	// ReconnectDelayMax caps the growing reconnect delay; zero means the default.
	ReconnectDelayMax time.Duration

	// Dialer overrides the transport selection; nil means websocket with
	// long-polling fallback.
	Dialer Dialer
}

// Conn is the minimal transport surface the Channel needs. Both the websocket
// transport and the long-polling fallback implement it.
type Conn interface {
	// ReadMessage blocks until the next inbound frame or a connection error.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one frame. No delivery guarantee is implied.
	WriteMessage(data []byte) error

	// Close tears the transport down.
	Close() error
}

// Dialer establishes a transport connection for the given config.
type Dialer func(ctx context.Context, cfg Config) (Conn, error)

// channelSession bundles one live connection with its outbound queue and done signal.
type channelSession struct {
	conn Conn
	send chan []byte
	done chan struct{}
}

// Channel is the single shared bidirectional connection to the server.
type Channel struct {
	// cfg holds the connection parameters, normalized at construction.
	cfg Config

	// dialer establishes transport connections.
	dialer Dialer

	// mu protects sess, handlers, connectHooks, closed, and reconnecting.
	mu sync.Mutex

	// sess is the live connection's plumbing; nil while disconnected.
	sess *channelSession

	// handlers maps event names to their subscribed handlers.
	handlers map[string][]Handler

	// connectHooks run after every successful (re)connection.
	connectHooks []func(resumed bool)

	// closed marks a full teardown; a closed channel never reconnects.
	closed bool

	// reconnecting guards against overlapping reconnect loops.
	reconnecting bool

	// structured logger with channel context.
	logger zerolog.Logger
}

// NewChannel constructs a Channel. No connection is made until Connect is called.
func NewChannel(cfg Config) *Channel {
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.ReconnectDelayMax <= 0 {
		cfg.ReconnectDelayMax = DefaultReconnectDelayMax
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = dialWithFallback
	}

	return &Channel{
		cfg:      cfg,
		dialer:   dialer,
		handlers: make(map[string][]Handler),
		logger: logx.Logger().With().
			Str("component", "Channel").
			Str("device_id", cfg.DeviceID).
			Logger(),
	}
}

// Connect lazily establishes the shared connection. Calling Connect while already
// connected is a no-op returning nil: the existing connection is reused unchanged.
func (ch *Channel) Connect(ctx context.Context) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return errors.New("channel is closed")
	}
	if ch.sess != nil {
		ch.mu.Unlock()
		ch.logger.Debug().Msg("Connect called on live channel; reusing connection.")
		return nil
	}
	ch.mu.Unlock()

	conn, err := ch.dialer(ctx, ch.cfg)
	if err != nil {
		return err
	}

	ch.startSession(conn, false)
	return nil
}

// startSession installs a freshly dialed connection, starts its pumps, and runs
// the connect hooks. resumed is true when the connection replaced a lost one.
func (ch *Channel) startSession(conn Conn, resumed bool) {
	sess := &channelSession{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	ch.mu.Lock()
	if ch.closed || ch.sess != nil {
		// Torn down, or a concurrent Connect won the race. Keep the existing connection.
		ch.mu.Unlock()
		conn.Close()
		return
	}
	ch.sess = sess
	hooks := slices.Clone(ch.connectHooks)
	ch.mu.Unlock()

	go ch.writePump(sess)
	go ch.readPump(sess)

	ch.logger.Info().Bool("resumed", resumed).Msg("Channel connected.")

	for _, hook := range hooks {
		ch.safeHook(hook, resumed)
	}
}

// readPump reads inbound frames and dispatches them sequentially. It owns the
// connection's lifetime: when reading fails, the session is torn down and the
// reconnect loop takes over.
func (ch *Channel) readPump(sess *channelSession) {
	for {
		data, err := sess.conn.ReadMessage()
		if err != nil {
			ch.logger.Info().Err(err).Msg("Channel connection lost.")
			break
		}

		ch.dispatch(data)
	}

	close(sess.done)

	ch.mu.Lock()
	wasCurrent := ch.sess == sess
	if wasCurrent {
		ch.sess = nil
	}
	shouldReconnect := wasCurrent && !ch.closed && !ch.reconnecting
	if shouldReconnect {
		ch.reconnecting = true
	}
	ch.mu.Unlock()

	if shouldReconnect {
		go ch.reconnectLoop()
	}
}

// writePump drains the session's send queue into the connection until the session ends.
func (ch *Channel) writePump(sess *channelSession) {
	defer sess.conn.Close()

	for {
		select {
		case data := <-sess.send:
			if err := sess.conn.WriteMessage(data); err != nil {
				ch.logger.Warn().Err(err).Msg("Error writing to channel.")
				return
			}

		case <-sess.done:
			return
		}
	}
}

// reconnectLoop retries the dial a bounded number of times with a growing delay.
// Exhaustion is logged and swallowed: callers are never told, per the channel's
// silent-degradation contract.
func (ch *Channel) reconnectLoop() {
	defer func() {
		ch.mu.Lock()
		ch.reconnecting = false
		ch.mu.Unlock()
	}()

	delay := ch.cfg.ReconnectDelay

	for attempt := 1; attempt <= ch.cfg.ReconnectAttempts; attempt++ {
		time.Sleep(delay)

		ch.mu.Lock()
		if ch.closed {
			ch.mu.Unlock()
			return
		}
		ch.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), ch.cfg.ReconnectDelayMax)
		conn, err := ch.dialer(ctx, ch.cfg)
		cancel()

		if err == nil {
			ch.startSession(conn, true)
			return
		}

		ch.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", ch.cfg.ReconnectAttempts).
			Dur("next_delay", delay).
			Msg("Reconnect attempt failed.")

		delay *= 2
		if delay > ch.cfg.ReconnectDelayMax {
			delay = ch.cfg.ReconnectDelayMax
		}
	}

	ch.logger.Error().Msg("Reconnect attempts exhausted. Channel staying offline.")
}

// Emit sends an event without any delivery guarantee. An emit while disconnected,
// or while the send queue is full, drops the event.
func (ch *Channel) Emit(event string, payload any) {
	env := Envelope{Event: event}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			ch.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event payload.")
			return
		}
		env.Data = data
	}

	frame, err := json.Marshal(env)
	if err != nil {
		ch.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event envelope.")
		return
	}

	ch.mu.Lock()
	sess := ch.sess
	ch.mu.Unlock()

	eventID := randx.EventID()

	if sess == nil {
		ch.logger.Debug().
			Str("event", event).
			Str("event_id", eventID).
			Msg("Dropped event emitted while disconnected.")
		return
	}

	select {
	case sess.send <- frame:
		ch.logger.Debug().Str("event", event).Str("event_id", eventID).Msg("Event queued.")
	default:
		ch.logger.Warn().
			Str("event", event).
			Str("event_id", eventID).
			Int("queue_len", len(sess.send)).
			Msg("Send queue full, dropping event.")
	}
}

// Subscribe registers a handler for the named event. Multiple handlers per event
// are allowed; they run in registration order.
func (ch *Channel) Subscribe(event string, handler Handler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.handlers[event] = append(ch.handlers[event], handler)
}

// OnConnect registers a hook that runs after every successful connection,
// with resumed=true when the connection replaced a lost one.
func (ch *Channel) OnConnect(hook func(resumed bool)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.connectHooks = append(ch.connectHooks, hook)
}

// UnsubscribeAll removes every registered handler and connect hook.
// Used only at full teardown, never per-conversation.
func (ch *Channel) UnsubscribeAll() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.handlers = make(map[string][]Handler)
	ch.connectHooks = nil
}

// Close tears the channel down. A closed channel never reconnects.
func (ch *Channel) Close() {
	ch.mu.Lock()
	ch.closed = true
	sess := ch.sess
	ch.sess = nil
	ch.mu.Unlock()

	if sess != nil {
		sess.conn.Close()
	}

	ch.logger.Info().Msg("Channel closed.")
}

// Connected reports whether a live connection is currently held.
func (ch *Channel) Connected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.sess != nil
}

// dispatch decodes one inbound frame and runs its handlers sequentially.
func (ch *Channel) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		ch.logger.Warn().Err(err).Bytes("frame", raw).Msg("Server sent invalid frame.")
		return
	}

	ch.mu.Lock()
	handlers := slices.Clone(ch.handlers[env.Event])
	ch.mu.Unlock()

	for _, handler := range handlers {
		ch.safeInvoke(env.Event, handler, env.Data)
	}
}

// safeInvoke runs one handler, converting a panic into a log entry. Handler
// failures never propagate to the connection loop.
func (ch *Channel) safeInvoke(event string, handler Handler, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			ch.logger.Error().
				Str("event", event).
				Interface("panic", r).
				Msg("Recovered from panic in event handler.")
		}
	}()

	handler(data)
}

// safeHook runs one connect hook with the same panic containment as safeInvoke.
func (ch *Channel) safeHook(hook func(bool), resumed bool) {
	defer func() {
		if r := recover(); r != nil {
			ch.logger.Error().Interface("panic", r).Msg("Recovered from panic in connect hook.")
		}
	}()

	hook(resumed)
}

/*
Package socket implements the persistent real-time channel to the Chatify backend.

This file implements the primary websocket transport and the dialer that falls back
to long-polling when the websocket handshake is refused (restrictive proxies, old
gateways). Heartbeats, deadlines, and frame limits follow the server's expectations.
*/
package socket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatify/internal/pkg/logx"
)

const (
	// writeWait is the timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a Pong after sending a Ping.
	pongWait = 60 * time.Second

	// pingPeriod is the frequency at which Ping messages are sent.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum allowed size (in bytes) of an inbound frame.
	maxMessageSize = 8192
)

// wsConn adapts a gorilla websocket connection to the Conn interface,
// adding heartbeat pings and read/write deadlines.
type wsConn struct {
	conn *websocket.Conn

	// writeMu serializes data writes with the ping loop's control writes.
	writeMu sync.Mutex

	// done stops the ping loop.
	done chan struct{}

	// closeOnce guards double Close calls.
	closeOnce sync.Once
}

// newWSConn wraps an established websocket connection and starts its heartbeat.
func newWSConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &wsConn{
		conn: conn,
		done: make(chan struct{}),
	}

	go c.pingLoop()

	return c
}

// pingLoop keeps the connection alive with periodic Ping frames.
func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()

			if err != nil {
				logx.Warn("Error writing ping, stopping heartbeat.", "error", err.Error())
				return
			}

		case <-c.done:
			return
		}
	}
}

// ReadMessage blocks until the next text frame arrives.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// WriteMessage sends one text frame under the write deadline.
func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close stops the heartbeat and closes the underlying connection.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// handshakeQuery builds the identification query shared by both transports.
func handshakeQuery(cfg Config) string {
	q := url.Values{}
	q.Set("userId", cfg.UserID)
	q.Set("device", cfg.DeviceID)
	return q.Encode()
}

// websocketURL derives the ws(s) endpoint from the configured http(s) base.
func websocketURL(cfg Config) string {
	base := strings.TrimRight(cfg.URL, "/")
	base = strings.Replace(base, "http", "ws", 1)
	return base + "/ws?" + handshakeQuery(cfg)
}

// dialWebsocket attempts the primary websocket transport.
func dialWebsocket(ctx context.Context, cfg Config) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, websocketURL(cfg), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake rejected (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return newWSConn(conn), nil
}

// dialWithFallback is the default Dialer: websocket first, long-polling second.
// These are the two transports most broadly compatible with intermediaries.
func dialWithFallback(ctx context.Context, cfg Config) (Conn, error) {
	conn, wsErr := dialWebsocket(ctx, cfg)
	if wsErr == nil {
		return conn, nil
	}

	logx.Warn("WebSocket transport unavailable, falling back to long-polling.", "error", wsErr.Error())

	conn, pollErr := dialPolling(ctx, cfg)
	if pollErr != nil {
		return nil, fmt.Errorf("all transports failed: %v; %w", wsErr, pollErr)
	}

	return conn, nil
}

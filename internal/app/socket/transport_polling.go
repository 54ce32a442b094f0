/*
Package socket implements the persistent real-time channel to the Chatify backend.

This file implements the long-polling fallback transport. Inbound frames are
received by holding a GET against the poll endpoint until the server has an event;
outbound frames are POSTed to the same endpoint. Semantics match the websocket
transport: no buffering, no delivery guarantee.
*/
package socket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// pollEmitTimeout bounds each outbound POST.
	pollEmitTimeout = 10 * time.Second

	// pollHandshakeTimeout bounds the initial reachability probe.
	pollHandshakeTimeout = 5 * time.Second
)

// pollingConn implements Conn over HTTP long-polling.
type pollingConn struct {
	// endpoint is the poll URL including the handshake query.
	endpoint string

	// client issues both poll and emit requests. It carries no global timeout;
	// poll requests are bounded by ctx, emit requests by a per-call deadline.
	client *http.Client

	// ctx is cancelled by Close, aborting any in-flight poll.
	ctx    context.Context
	cancel context.CancelFunc
}

// pollURL derives the long-polling endpoint from the configured http(s) base.
func pollURL(cfg Config) string {
	return strings.TrimRight(cfg.URL, "/") + "/poll?" + handshakeQuery(cfg)
}

// dialPolling probes the poll endpoint and returns a polling transport on success.
func dialPolling(ctx context.Context, cfg Config) (Conn, error) {
	endpoint := pollURL(cfg)

	probeCtx, cancel := context.WithTimeout(ctx, pollHandshakeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("polling handshake failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling handshake failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("polling handshake rejected (status %d)", resp.StatusCode)
	}

	connCtx, connCancel := context.WithCancel(context.Background())

	return &pollingConn{
		endpoint: endpoint,
		client:   &http.Client{},
		ctx:      connCtx,
		cancel:   connCancel,
	}, nil
}

// ReadMessage holds a GET against the poll endpoint until the server delivers a
// frame. A 204 means the server released the poll without an event; the request
// is simply reissued.
func (c *pollingConn) ReadMessage() ([]byte, error) {
	for {
		req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusNoContent:
			continue

		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("poll rejected (status %d)", resp.StatusCode)

		default:
			return data, nil
		}
	}
}

// WriteMessage POSTs one frame to the poll endpoint.
func (c *pollingConn) WriteMessage(data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, pollEmitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("emit rejected (status %d)", resp.StatusCode)
	}

	return nil
}

// Close aborts any in-flight poll and marks the transport dead.
func (c *pollingConn) Close() error {
	c.cancel()
	return nil
}

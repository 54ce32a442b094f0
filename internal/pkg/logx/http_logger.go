/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains an http.RoundTripper wrapper for outbound REST calls, used to log
request lifecycle information such as method, URL, response status, and latency.
*/
package logx

import (
	"net/http"
	"time"
)

// loggingTransport wraps an http.RoundTripper and logs every outbound request.
type loggingTransport struct {
	next http.RoundTripper
}

// NewHTTPLogger returns an http.RoundTripper that logs each outbound request through
// the global logger. A nil next falls back to http.DefaultTransport.
func NewHTTPLogger(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := Logger().With().
		Str("component", "http_client").
		Str("request_method", req.Method).
		Str("request_url", req.URL.String()).
		Logger()

	t1 := time.Now()
	resp, err := t.next.RoundTrip(req)

	if err != nil {
		logger.Warn().
			Err(err).
			Dur("latency", time.Since(t1)).
			Msg("Request failed without a response")
		return nil, err
	}

	status := resp.StatusCode

	logEvent := logger.Debug()
	if status >= 500 {
		logEvent = logger.Error()
	} else if status >= 400 {
		logEvent = logger.Warn()
	}

	logEvent.
		Int("status", status).
		Dur("latency", time.Since(t1)).
		Msg("Request completed")

	return resp, nil
}

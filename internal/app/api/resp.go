/*
Package api implements the typed REST client for the Chatify backend.

This file provides helpers for consuming responses: JSON decoding of success bodies
and extraction of the server's human-readable error message from failure bodies.
*/
package api

import (
	"encoding/json"
	"net/http"

	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
)

// errorBody is the failure payload shape used by the backend.
type errorBody struct {
	Message string `json:"message"`
}

// serverMessage extracts the server-supplied error message from a failure response body.
// It returns "" when the body is absent or not in the expected shape, in which case the
// caller falls back to the template message for the mapped error code.
func serverMessage(resp *http.Response) string {
	var body errorBody

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logx.Warn("Failed to decode error response body.", "status", resp.StatusCode)
		return ""
	}

	return body.Message
}

// decodeJSON decodes a successful response body into dst.
func decodeJSON(resp *http.Response, dst any) *errs.CustomError {
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		logx.Error(err, "Failed to decode response body.", "status", resp.StatusCode)
		return errs.NewError(errs.ErrMalformedResponse)
	}

	return nil
}

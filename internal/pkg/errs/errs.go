/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-friendly message, and an error kind classifying the
failure (validation, auth, not-found, server, network, upload) for callers that need to
branch on failure class rather than on a specific code.
*/
package errs

import (
	"errors"
	"fmt"
	"strings"

	"chatify/internal/pkg/logx"
)

// Kind classifies a CustomError into one of the client-facing failure classes.
type Kind int

const (
	// KindUnknown covers unclassified internal failures.
	KindUnknown Kind = iota

	// KindValidation marks client-side, pre-request field check failures.
	KindValidation

	// KindAuth marks 401/403 rejections from the server.
	KindAuth

	// KindNotFound marks 404 responses.
	KindNotFound

	// KindServer marks 5xx responses.
	KindServer

	// KindNetwork marks requests for which no response was received.
	KindNetwork

	// KindUpload marks profile/image submission failures.
	KindUpload
)

// String returns the lowercase name of the kind for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// CustomError is the custom error structure used throughout the application.
// It wraps the Go error interface, adding a business code and a failure kind.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind classifies the failure for callers branching on error class.
	Kind Kind

	// Message is the user-friendly error description.
	Message string
}

// Error implements the standard Go error interface. It returns a formatted
// error string containing the error code, kind, and message.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s): %s", e.Code, e.Kind, e.Message)
}

// NewError constructs and returns a new *CustomError instance based on a predefined error code.
// The optional details parameter allows for formatting arguments (printf-style) to be supplied
// for the error message. If an unknown code is provided, it defaults to returning ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Kind:    unknownErr.Kind,
			Message: unknownErr.Message,
		}
	}

	customErr := templateErr

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else if msg, ok := details[0].(string); ok && msg != "" {
			// A bare string detail replaces the template message. Used at the REST
			// boundary where the server supplies its own human-readable message.
			customErr.Message = msg
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
			)
		}
	}

	return &customErr
}

// FromStatus normalizes an HTTP response status and the server-supplied message into a
// CustomError. A serverMsg of "" falls back to the template message for the mapped code.
func FromStatus(status int, serverMsg string) *CustomError {
	var code int

	switch {
	case status == 401 || status == 403:
		code = ErrUnauthorized
	case status == 404:
		code = ErrNotFound
	case status >= 500:
		code = ErrServer
	default:
		code = ErrUnknown
	}

	if serverMsg == "" {
		return NewError(code)
	}
	return NewError(code, serverMsg)
}

// IsKind reports whether err is (or wraps) a CustomError of the given kind.
func IsKind(err error, kind Kind) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Kind == kind
	}
	return false
}

/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific client-side or server-reported failures, used both
internally and when surfacing messages to the presentation layer.
*/
package errs

// 1xxx: Pre-request Validation Errors
const (
	// ErrFieldsRequired indicates that one or more required form fields were empty.
	ErrFieldsRequired = 1001

	// ErrInvalidEmail indicates that the supplied email address is not well formed.
	ErrInvalidEmail = 1002

	// ErrPasswordTooShort indicates that the password is shorter than the minimum length.
	ErrPasswordTooShort = 1003

	// ErrPasswordMismatch indicates that the password confirmation did not match.
	ErrPasswordMismatch = 1004

	// ErrEmptyMessage indicates an attempted send with neither text nor image.
	ErrEmptyMessage = 1005
)

// 3xxx: Authentication and Session Errors
const (
	// ErrInvalidCredentials indicates that the server rejected the email/password pair.
	ErrInvalidCredentials = 3001

	// ErrUnauthorized indicates a 401/403 rejection of an authenticated request.
	ErrUnauthorized = 3002

	// ErrEmailAlreadyExists indicates a signup rejection for a duplicate email.
	ErrEmailAlreadyExists = 3003
)

// 4xxx: Resource Errors
const (
	// ErrNotFound indicates a 404 response for the requested resource.
	ErrNotFound = 4004
)

// 5xxx: Server and Internal Errors
const (
	// ErrUnknown represents an unclassified, general failure.
	ErrUnknown = 5000

	// ErrServer indicates a 5xx response from the server.
	ErrServer = 5001

	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = 5002
)

// 6xxx: Network Errors
const (
	// ErrNetwork indicates that no response was received from the server.
	ErrNetwork = 6001
)

// 7xxx: Upload Errors
const (
	// ErrUploadFailed indicates a profile/image submission failure.
	ErrUploadFailed = 7001
)

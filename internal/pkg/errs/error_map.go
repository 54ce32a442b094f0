/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
the messages surfaced to the presentation layer and internal error handling.
*/
package errs

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value carries the user message and failure kind.
var errorMap = map[int]CustomError{
	// 1xxx: Pre-request Validation Errors
	ErrFieldsRequired:   {Code: ErrFieldsRequired, Kind: KindValidation, Message: "All fields are required."},
	ErrInvalidEmail:     {Code: ErrInvalidEmail, Kind: KindValidation, Message: "Please enter a valid email address."},
	ErrPasswordTooShort: {Code: ErrPasswordTooShort, Kind: KindValidation, Message: "Password must be at least %d characters."},
	ErrPasswordMismatch: {Code: ErrPasswordMismatch, Kind: KindValidation, Message: "Passwords do not match."},
	ErrEmptyMessage:     {Code: ErrEmptyMessage, Kind: KindValidation, Message: "Cannot send an empty message."},

	// 3xxx: Authentication and Session Errors
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Kind: KindAuth, Message: "Incorrect email or password."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Kind: KindAuth, Message: "Please sign in to continue."},
	ErrEmailAlreadyExists: {Code: ErrEmailAlreadyExists, Kind: KindAuth, Message: "An account with this email already exists."},

	// 4xxx: Resource Errors
	ErrNotFound: {Code: ErrNotFound, Kind: KindNotFound, Message: "The requested resource was not found."},

	// 5xxx: Server and Internal Errors
	ErrUnknown:           {Code: ErrUnknown, Kind: KindUnknown, Message: "Something went wrong. Please try again."},
	ErrServer:            {Code: ErrServer, Kind: KindServer, Message: "The server encountered an error. Please try again later."},
	ErrMalformedResponse: {Code: ErrMalformedResponse, Kind: KindServer, Message: "Received an unexpected response from the server."},

	// 6xxx: Network Errors
	ErrNetwork: {Code: ErrNetwork, Kind: KindNetwork, Message: "Unable to reach the server. Check your connection."},

	// 7xxx: Upload Errors
	ErrUploadFailed: {Code: ErrUploadFailed, Kind: KindUpload, Message: "Profile update failed. Please try again."},
}

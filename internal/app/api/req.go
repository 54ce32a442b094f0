/*
Package api implements the typed REST client for the Chatify backend.

This file provides helpers for building request bodies: JSON encoding and the
multipart form used by the profile upload endpoint.
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"

	"chatify/internal/pkg/errs"
)

// ProfilePicField is the multipart form field name expected by /auth/update-profile.
const ProfilePicField = "profilePic"

// encodeJSON marshals v into a request body reader.
func encodeJSON(v any) (io.Reader, *errs.CustomError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return bytes.NewReader(data), nil
}

// buildProfileUpload assembles the multipart body for a profile picture submission.
// It returns the body reader and the Content-Type header value carrying the boundary.
func buildProfileUpload(filename string, image io.Reader) (io.Reader, string, *errs.CustomError) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(ProfilePicField, filename)
	if err != nil {
		return nil, "", errs.NewError(errs.ErrUploadFailed)
	}

	if _, err := io.Copy(part, image); err != nil {
		return nil, "", errs.NewError(errs.ErrUploadFailed)
	}

	if err := w.Close(); err != nil {
		return nil, "", errs.NewError(errs.ErrUploadFailed)
	}

	return &buf, w.FormDataContentType(), nil
}

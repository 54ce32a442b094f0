/*
Package model contains the core data structures exchanged with the Chatify backend.

It defines the basic representation of a user (the User struct) and the Message struct,
used both in REST responses and in real-time channel payloads.
*/
package model

import "time"

// User represents the identity record of a chat participant.
// Field names follow the wire format of the backend.
type User struct {

	// ID is the unique, stable identifier for the user (server-assigned).
	ID string `json:"_id"`

	// FullName is the display name of the user.
	FullName string `json:"fullName"`

	// Email is the account email address. Omitted in some embedded contexts.
	Email string `json:"email,omitempty"`

	// ProfilePic is the URL for the user's avatar; empty when none was uploaded.
	ProfilePic string `json:"profilePic,omitempty"`

	// CreatedAt is the account creation timestamp.
	CreatedAt time.Time `json:"createdAt,omitzero"`

	// UpdatedAt is the last profile modification timestamp.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// SenderRef identifies the sender of a message. The backend is inconsistent about the
// representation: some payloads carry a bare id string, others an embedded User record.
// Both forms are accepted and normalized to an ID, keeping the full record when present.
type SenderRef struct {
	// ID is the normalized sender identifier, always populated.
	ID string

	// User is the embedded sender record, when the payload carried one.
	User *User
}

// UnmarshalJSON accepts either a JSON string (bare id) or a JSON object (embedded User).
func (s *SenderRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "\"") {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		s.ID = id
		s.User = nil
		return nil
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	s.ID = u.ID
	s.User = &u
	return nil
}

// MarshalJSON writes the embedded record when held, otherwise the bare id string.
func (s SenderRef) MarshalJSON() ([]byte, error) {
	if s.User != nil {
		return json.Marshal(s.User)
	}
	return json.Marshal(s.ID)
}

// Message represents a single message in a conversation. Once created it is immutable;
// the ID is server-assigned and unique per message.
type Message struct {

	// ID is the unique, server-assigned message identifier.
	ID string `json:"_id"`

	// Sender identifies who sent the message (see SenderRef for accepted forms).
	Sender SenderRef `json:"senderId"`

	// ReceiverID identifies the conversation partner the message was addressed to.
	ReceiverID string `json:"receiverId,omitempty"`

	// Text is the optional message body.
	Text string `json:"text,omitempty"`

	// Image is the optional image reference.
	Image string `json:"image,omitempty"`

	// CreatedAt is the server-side creation timestamp.
	CreatedAt time.Time `json:"createdAt,omitzero"`

	// UpdatedAt mirrors CreatedAt for immutable messages.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Empty reports whether the message carries neither text nor an image.
// Such messages are rejected before any network call is made.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Text) == "" && m.Image == ""
}

// SentBy reports whether the message was sent by the given user.
func (m Message) SentBy(userID string) bool {
	return m.Sender.ID == userID
}

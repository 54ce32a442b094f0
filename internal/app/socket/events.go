/*
Package socket implements the persistent real-time channel to the Chatify backend.

This file defines the wire envelope, the event names the client emits and consumes,
and the payload types shared with the synchronizer.
*/
package socket

import "encoding/json"

// Outbound event names.
const (
	// EventUserOnline announces the authenticated user's presence after connecting.
	EventUserOnline = "user_online"

	// EventUserTyping signals that the user started composing a message.
	EventUserTyping = "user_typing"

	// EventUserStoppedTyping signals that the user stopped composing.
	EventUserStoppedTyping = "user_stopped_typing"

	// EventSendMessage relays a freshly created message to the peer connection.
	EventSendMessage = "send_message"
)

// Inbound event names.
const (
	// EventUserStatusChanged reports a presence transition for some user.
	EventUserStatusChanged = "user_status_changed"

	// EventReceiveMessage delivers a message relayed by the peer connection.
	EventReceiveMessage = "receive_message"

	// EventNewMessage delivers a message created server-side.
	EventNewMessage = "new_message"
)

// Presence status values carried by EventUserStatusChanged.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is the frame exchanged over the channel: an event name plus its raw payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler consumes the raw payload of a subscribed event.
// Handlers run sequentially on the dispatch goroutine and must not block.
type Handler func(data json.RawMessage)

// StatusPayload is the body of EventUserStatusChanged.
type StatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// TypingPayload is the body of the typing events. ReceiverID is set on outbound
// events only; inbound events carry just the sender.
type TypingPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
}

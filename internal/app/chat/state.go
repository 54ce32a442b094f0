/*
Package chat contains the core logic for reconciling the locally held conversation
view with REST snapshots and asynchronous channel events.

This file defines the State struct: the single readable snapshot the presentation
layer consumes. Snapshots are immutable copies; all mutation happens inside the
Synchronizer through named operations.
*/
package chat

import (
	"maps"
	"slices"

	"chatify/internal/app/model"
)

// State is one consistent view of everything the presentation layer renders.
type State struct {
	// Contacts is the full contact list, replaced wholesale by LoadContacts.
	Contacts []model.User

	// Chats is the list of users the viewer has exchanged messages with.
	Chats []model.User

	// SelectedUser is the active conversation partner; nil when unselected.
	SelectedUser *model.User

	// Messages is the active conversation's history, insertion-ordered, append-only.
	Messages []model.Message

	// OnlineUsers holds the ids currently believed online.
	OnlineUsers map[string]struct{}

	// TypingUsers holds the ids currently believed composing a message to the viewer.
	TypingUsers map[string]struct{}

	// UsersLoading is set while a contact or chat-partner fetch is in flight.
	UsersLoading bool

	// MessagesLoading is set while the active conversation's history fetch is in flight.
	MessagesLoading bool

	// Sending is set while a message submission is in flight.
	Sending bool
}

// newState returns the empty session-start state.
func newState() State {
	return State{
		OnlineUsers: make(map[string]struct{}),
		TypingUsers: make(map[string]struct{}),
	}
}

// clone returns a deep copy safe to hand to subscribers.
func (s State) clone() State {
	out := s

	out.Contacts = slices.Clone(s.Contacts)
	out.Chats = slices.Clone(s.Chats)
	out.Messages = slices.Clone(s.Messages)
	out.OnlineUsers = maps.Clone(s.OnlineUsers)
	out.TypingUsers = maps.Clone(s.TypingUsers)

	if s.SelectedUser != nil {
		u := *s.SelectedUser
		out.SelectedUser = &u
	}

	return out
}

// Online reports whether the given user id is currently believed online.
func (s State) Online(userID string) bool {
	_, ok := s.OnlineUsers[userID]
	return ok
}

// Typing reports whether the given user id is currently believed typing.
func (s State) Typing(userID string) bool {
	_, ok := s.TypingUsers[userID]
	return ok
}

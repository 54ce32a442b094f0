/*
Package chat contains the core logic for reconciling the locally held conversation
view with REST snapshots and asynchronous channel events.

This file defines the Synchronizer struct, which owns the authoritative in-memory
view of contacts, chat partners, the selected conversation, presence, and typing
state. REST snapshot responses and channel events both funnel through it; the
presentation layer only ever sees immutable State snapshots.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"chatify/internal/app/api"
	"chatify/internal/app/model"
	"chatify/internal/app/socket"
	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/limiter"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/observe"
)

const (
	// TypingEventRate bounds how often a typing notification is emitted per peer.
	TypingEventRate = rate.Limit(0.5)

	// TypingEventBurst allows the first keystroke's notification through immediately.
	TypingEventBurst = 1

	// recoveryTimeout bounds the REST re-fetch triggered by a channel reconnect.
	recoveryTimeout = 10 * time.Second
)

// Synchronizer reconciles REST snapshots with channel events into one consistent view.
type Synchronizer struct {
	// api performs the REST calls.
	api *api.Client

	// channel is the real-time event connection; nil in headless/test setups.
	channel *socket.Channel

	// typingLimiter throttles outbound typing notifications per peer.
	typingLimiter *limiter.EventRateLimiter

	// mu protects state, gen, and selfID. Handlers and REST commits run to
	// completion under it, so no subscriber observes a mutation mid-flight.
	mu sync.Mutex

	// state is the mutable view; only clones leave the Synchronizer.
	state State

	// gen is the history-fetch generation. A fetch commits its result only when
	// the generation it captured at issue time is still current, so a stale
	// response can never clobber a newer selection's list.
	gen uint64

	// seq numbers committed snapshots so the hub can drop a notification that
	// lost the race to a newer commit on the way to subscribers.
	seq uint64

	// selfID is the authenticated user's id, set by Start.
	selfID string

	// hub fans state snapshots out to subscribers.
	hub observe.Hub[State]

	// structured logger with Synchronizer context.
	logger zerolog.Logger
}

// NewSynchronizer constructs a Synchronizer over the given REST client and channel.
// The channel may be nil; all REST-driven operations still work, emits are skipped.
func NewSynchronizer(apiClient *api.Client, channel *socket.Channel) *Synchronizer {
	s := &Synchronizer{
		api:           apiClient,
		channel:       channel,
		typingLimiter: limiter.NewEventRateLimiter(TypingEventRate, TypingEventBurst),
		state:         newState(),
		logger:        logx.Logger().With().Str("component", "Synchronizer").Logger(),
	}
	return s
}

// Snapshot returns an immutable copy of the current view.
func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every committed change.
// It returns a cancel function.
func (s *Synchronizer) Subscribe(fn func(State)) (cancel func()) {
	return s.hub.Subscribe(fn)
}

// commit runs mutate under the lock, then notifies subscribers with a fresh snapshot.
func (s *Synchronizer) commit(mutate func(st *State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()

	s.hub.Notify(seq, snap)
}

// Start binds the channel's inbound events and announces presence. It must be
// called once per authenticated session, after the channel is connected.
func (s *Synchronizer) Start(selfID string) {
	s.mu.Lock()
	s.selfID = selfID
	s.mu.Unlock()

	if s.channel == nil {
		return
	}

	s.channel.Subscribe(socket.EventUserStatusChanged, s.onStatusChanged)

	// Both inbound message events feed one ingestion path: filter by active
	// partner, then de-duplicate by id, always.
	s.channel.Subscribe(socket.EventReceiveMessage, s.onInboundMessage)
	s.channel.Subscribe(socket.EventNewMessage, s.onInboundMessage)

	s.channel.Subscribe(socket.EventUserTyping, s.onTyping)
	s.channel.Subscribe(socket.EventUserStoppedTyping, s.onStoppedTyping)

	s.channel.OnConnect(s.onConnected)

	if s.channel.Connected() {
		s.channel.Emit(socket.EventUserOnline, selfID)
	}
}

// onConnected runs after every successful (re)connection. The channel offers no
// replay buffer, so a resumed connection triggers a full REST re-fetch of the
// active conversation and the chat-partner list to recover missed events.
func (s *Synchronizer) onConnected(resumed bool) {
	s.mu.Lock()
	selfID := s.selfID
	s.mu.Unlock()

	if selfID != "" {
		s.channel.Emit(socket.EventUserOnline, selfID)
	}

	if !resumed {
		return
	}

	s.logger.Info().Msg("Channel resumed. Re-fetching snapshots to recover missed events.")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recoveryTimeout)
		defer cancel()

		if cerr := s.RefreshConversation(ctx); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("Post-reconnect history refresh failed.")
		}

		if cerr := s.LoadChatPartners(ctx); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("Post-reconnect chat list refresh failed.")
		}
	}()
}

// LoadContacts replaces the contact list wholesale from a REST snapshot.
// Concurrent calls are not de-duplicated; the last response to arrive wins.
func (s *Synchronizer) LoadContacts(ctx context.Context) *errs.CustomError {
	s.commit(func(st *State) { st.UsersLoading = true })

	users, cerr := s.api.Contacts(ctx)

	s.commit(func(st *State) {
		st.UsersLoading = false
		if cerr == nil {
			st.Contacts = users
		}
	})

	return cerr
}

// LoadChatPartners replaces the chat-partner list wholesale from a REST snapshot.
func (s *Synchronizer) LoadChatPartners(ctx context.Context) *errs.CustomError {
	s.commit(func(st *State) { st.UsersLoading = true })

	users, cerr := s.api.Chats(ctx)

	s.commit(func(st *State) {
		st.UsersLoading = false
		if cerr == nil {
			st.Chats = users
		}
	})

	return cerr
}

// SelectConversation makes user the active partner and loads the pair's full
// history. Passing nil exits the conversation: the current list is discarded,
// not cached. A selection supersedes any in-flight history fetch; the superseded
// fetch's result is discarded when it eventually resolves.
func (s *Synchronizer) SelectConversation(ctx context.Context, user *model.User) *errs.CustomError {
	var gen uint64

	s.mu.Lock()
	s.gen++
	gen = s.gen

	if user == nil {
		s.state.SelectedUser = nil
		s.state.Messages = nil
		s.state.MessagesLoading = false
		s.seq++
		seq := s.seq
		snap := s.state.clone()
		s.mu.Unlock()
		s.hub.Notify(seq, snap)
		return nil
	}

	selected := *user
	s.state.SelectedUser = &selected
	s.state.Messages = nil
	s.state.MessagesLoading = true
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()
	s.hub.Notify(seq, snap)

	return s.fetchHistory(ctx, selected.ID, gen)
}

// RefreshConversation re-fetches the active conversation's history, if any.
// Used for post-reconnect recovery; a no-op while unselected.
func (s *Synchronizer) RefreshConversation(ctx context.Context) *errs.CustomError {
	s.mu.Lock()
	if s.state.SelectedUser == nil {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	userID := s.state.SelectedUser.ID
	s.state.MessagesLoading = true
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()
	s.hub.Notify(seq, snap)

	return s.fetchHistory(ctx, userID, gen)
}

// fetchHistory performs the history fetch issued under generation gen and commits
// the result only if that generation is still current.
func (s *Synchronizer) fetchHistory(ctx context.Context, userID string, gen uint64) *errs.CustomError {
	messages, cerr := s.api.Messages(ctx, userID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug().
			Str("user_id", userID).
			Uint64("fetch_gen", gen).
			Msg("Discarded stale history fetch result.")
		return nil
	}

	s.state.MessagesLoading = false
	if cerr == nil {
		s.state.Messages = messages
	}
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()
	s.hub.Notify(seq, snap)

	return cerr
}

// Send submits a message to receiverID. A message with neither text nor image is
// rejected locally, before any network call. On server ack the created Message is
// appended to the active list and relayed over the channel so the peer connection
// learns of it immediately; the peer's acknowledgment is never awaited.
func (s *Synchronizer) Send(ctx context.Context, receiverID, text, image string) *errs.CustomError {
	draft := model.Message{Text: text, Image: image}
	if draft.Empty() {
		return errs.NewError(errs.ErrEmptyMessage)
	}

	s.commit(func(st *State) { st.Sending = true })
	defer s.commit(func(st *State) { st.Sending = false })

	msg, cerr := s.api.SendMessage(ctx, receiverID, api.SendMessageRequest{
		Text:  text,
		Image: image,
	})
	if cerr != nil {
		return cerr
	}

	s.commit(func(st *State) {
		// The viewer may have switched partners while the call was in flight;
		// the ack then belongs to a conversation no longer on screen.
		if st.SelectedUser == nil || st.SelectedUser.ID != receiverID {
			return
		}
		if containsMessage(st.Messages, msg.ID) {
			return
		}
		st.Messages = append(st.Messages, *msg)
	})

	if s.channel != nil {
		relay := *msg
		relay.ReceiverID = receiverID
		s.channel.Emit(socket.EventSendMessage, relay)
	}

	return nil
}

// NotifyTyping emits a typing notification for the given peer, throttled per peer
// so a burst of keystrokes does not flood the channel.
func (s *Synchronizer) NotifyTyping(receiverID string) {
	if s.channel == nil || !s.typingLimiter.Allow(receiverID) {
		return
	}

	s.mu.Lock()
	selfID := s.selfID
	s.mu.Unlock()

	s.channel.Emit(socket.EventUserTyping, socket.TypingPayload{
		SenderID:   selfID,
		ReceiverID: receiverID,
	})
}

// NotifyStoppedTyping emits a stopped-typing notification. Never throttled: a
// dropped stop event would leave the peer's indicator stuck.
func (s *Synchronizer) NotifyStoppedTyping(receiverID string) {
	if s.channel == nil {
		return
	}

	s.mu.Lock()
	selfID := s.selfID
	s.mu.Unlock()

	s.channel.Emit(socket.EventUserStoppedTyping, socket.TypingPayload{
		SenderID:   selfID,
		ReceiverID: receiverID,
	})
}

// Reset discards all identity-scoped state. Called on logout.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.state = newState()
	s.selfID = ""
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()
	s.hub.Notify(seq, snap)
}

// onStatusChanged applies a presence event: "online" adds the subject id to the
// presence set, any other value removes it. There is no TTL; absence of an
// explicit offline event leaves a user presumed online.
func (s *Synchronizer) onStatusChanged(data json.RawMessage) {
	var payload socket.StatusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid status payload.")
		return
	}

	s.commit(func(st *State) {
		if payload.Status == socket.StatusOnline {
			st.OnlineUsers[payload.UserID] = struct{}{}
		} else {
			delete(st.OnlineUsers, payload.UserID)
		}
	})
}

// onInboundMessage is the unified ingestion path for both inbound message events.
func (s *Synchronizer) onInboundMessage(data json.RawMessage) {
	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid message payload.")
		return
	}

	s.ingestMessage(msg)
}

// ingestMessage appends an inbound message to the active list when its sender is
// the selected partner and its id is not already present.
func (s *Synchronizer) ingestMessage(msg model.Message) {
	s.mu.Lock()

	if s.state.SelectedUser == nil || !msg.SentBy(s.state.SelectedUser.ID) {
		s.mu.Unlock()
		return
	}

	if containsMessage(s.state.Messages, msg.ID) {
		s.mu.Unlock()
		return
	}

	s.state.Messages = append(s.state.Messages, msg)
	s.seq++
	seq := s.seq
	snap := s.state.clone()
	s.mu.Unlock()

	s.hub.Notify(seq, snap)
}

// onTyping marks the event's sender as composing.
func (s *Synchronizer) onTyping(data json.RawMessage) {
	var payload socket.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid typing payload.")
		return
	}

	s.commit(func(st *State) {
		st.TypingUsers[payload.SenderID] = struct{}{}
	})
}

// onStoppedTyping clears the event's sender from the typing set.
func (s *Synchronizer) onStoppedTyping(data json.RawMessage) {
	var payload socket.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Invalid typing payload.")
		return
	}

	s.commit(func(st *State) {
		delete(st.TypingUsers, payload.SenderID)
	})
}

// containsMessage reports whether the list already holds a message with the given id.
func containsMessage(messages []model.Message, id string) bool {
	return lo.ContainsBy(messages, func(m model.Message) bool {
		return m.ID == id
	})
}

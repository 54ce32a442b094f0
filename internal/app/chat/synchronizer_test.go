package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatify/internal/apitest"
	"chatify/internal/app/api"
	"chatify/internal/app/chat"
	"chatify/internal/app/model"
	"chatify/internal/app/socket"
	"chatify/internal/pkg/errs"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

var (
	self    = model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}
	partner = model.User{ID: "u2", FullName: "Grace"}
	other   = model.User{ID: "u3", FullName: "Linus"}
)

// newSynchronizer starts a fake backend and wires a Synchronizer to it over a live
// websocket. The channel is torn down before the server so no reconnect loop runs.
func newSynchronizer(t *testing.T) (*apitest.Server, *chat.Synchronizer) {
	t.Helper()

	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.APIURL(),
		api.WithTokenSource(func() string { return apitest.Token }),
	)

	channel := socket.NewChannel(socket.Config{
		URL:      srv.URL,
		UserID:   self.ID,
		DeviceID: "device_AAAAAA",
	})
	require.NoError(t, channel.Connect(context.Background()))
	t.Cleanup(func() {
		channel.UnsubscribeAll()
		channel.Close()
	})

	s := chat.NewSynchronizer(client, channel)
	s.Start(self.ID)
	return srv, s
}

func message(id, senderID, text string) model.Message {
	return model.Message{ID: id, Sender: model.SenderRef{ID: senderID}, Text: text}
}

func TestSend_RejectsEmptyMessageBeforeNetwork(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)

	cerr := s.Send(context.Background(), partner.ID, "   ", "")

	req.NotNil(cerr)
	req.Equal(errs.ErrEmptyMessage, cerr.Code)
	req.Equal(errs.KindValidation, cerr.Kind)
	req.Zero(srv.TotalRequests())
	req.False(s.Snapshot().Sending)
}

func TestLoadContactsAndChatPartners(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetContacts([]model.User{partner, other})
	srv.SetChats([]model.User{partner})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	req.Nil(s.LoadContacts(ctx))
	req.Nil(s.LoadChatPartners(ctx))

	st := s.Snapshot()
	req.Len(st.Contacts, 2)
	req.Len(st.Chats, 1)
	req.False(st.UsersLoading)
}

func TestSelectConversation_LoadsHistory(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetHistory(partner.ID, []model.Message{
		message("m1", partner.ID, "hello"),
		message("m2", self.ID, "hi there"),
	})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)

	req.Nil(s.SelectConversation(context.Background(), &partner))

	st := s.Snapshot()
	req.NotNil(st.SelectedUser)
	req.Equal(partner.ID, st.SelectedUser.ID)
	req.Len(st.Messages, 2)
	req.False(st.MessagesLoading)
}

func TestSelectConversation_NilDiscardsHistory(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetHistory(partner.ID, []model.Message{message("m1", partner.ID, "hello")})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	req.Nil(s.SelectConversation(ctx, &partner))
	req.Len(s.Snapshot().Messages, 1)

	req.Nil(s.SelectConversation(ctx, nil))

	st := s.Snapshot()
	req.Nil(st.SelectedUser)
	req.Empty(st.Messages)
}

func TestSelectConversation_Idempotent(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetHistory(partner.ID, []model.Message{message("m1", partner.ID, "hello")})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	req.Nil(s.SelectConversation(ctx, &partner))
	req.Nil(s.SelectConversation(ctx, &partner))

	st := s.Snapshot()
	req.Equal(partner.ID, st.SelectedUser.ID)
	req.Len(st.Messages, 1)
	req.False(st.MessagesLoading)
}

func TestSelectConversation_StaleFetchDiscarded(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetHistory(partner.ID, []model.Message{message("m1", partner.ID, "old conversation")})
	srv.SetHistory(other.ID, []model.Message{message("m9", other.ID, "new conversation")})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	release := srv.GateHistory(partner.ID)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		s.SelectConversation(ctx, &partner)
	}()

	// Wait until the first fetch is held open at the server.
	req.Eventually(func() bool {
		return srv.Requests("GET /api/messages/"+partner.ID) == 1
	}, waitFor, tick)

	// A newer selection supersedes the in-flight fetch.
	req.Nil(s.SelectConversation(ctx, &other))

	release()
	<-firstDone

	st := s.Snapshot()
	req.Equal(other.ID, st.SelectedUser.ID)
	req.Len(st.Messages, 1)
	req.Equal("m9", st.Messages[0].ID)
	req.False(st.MessagesLoading)
}

func TestSend_AppendsAckAndRelays(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)
	ctx := context.Background()

	req.Nil(s.SelectConversation(ctx, &partner))
	req.Nil(s.Send(ctx, partner.ID, "hello", ""))

	st := s.Snapshot()
	req.Len(st.Messages, 1)
	req.Equal("hello", st.Messages[0].Text)
	req.False(st.Sending)

	// The ack is relayed over the channel so the peer connection learns of it.
	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventSendMessage)) == 1
	}, waitFor, tick)
}

func TestSend_AckForSupersededConversationDropped(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	req.Nil(s.SelectConversation(ctx, &partner))
	req.Nil(s.SelectConversation(ctx, &other))

	// The ack belongs to the partner conversation, which is no longer on screen.
	req.Nil(s.Send(ctx, partner.ID, "late ack", ""))

	req.Empty(s.Snapshot().Messages)
}

func TestStart_AnnouncesPresence(t *testing.T) {
	req := require.New(t)

	srv, _ := newSynchronizer(t)

	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventUserOnline)) == 1
	}, waitFor, tick)
}

func TestReconnectRecoversConversationState(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	srv.SetChats([]model.User{partner})
	srv.SetHistory(partner.ID, []model.Message{message("m1", partner.ID, "hello")})

	client := api.NewClient(srv.APIURL(),
		api.WithTokenSource(func() string { return apitest.Token }),
	)

	channel := socket.NewChannel(socket.Config{
		URL:               srv.URL,
		UserID:            self.ID,
		DeviceID:          "device_AAAAAA",
		ReconnectDelay:    10 * time.Millisecond,
		ReconnectDelayMax: 50 * time.Millisecond,
	})
	require.NoError(t, channel.Connect(context.Background()))
	t.Cleanup(func() {
		channel.UnsubscribeAll()
		channel.Close()
	})

	s := chat.NewSynchronizer(client, channel)
	s.Start(self.ID)

	req.Nil(s.SelectConversation(context.Background(), &partner))
	req.Equal(1, srv.Requests("GET /api/messages/"+partner.ID))
	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventUserOnline)) == 1
	}, waitFor, tick)

	// Drop the connection out from under the channel. The resumed connection
	// must re-announce presence and re-fetch both the open conversation and the
	// chat-partner list, since no events are replayed for the gap.
	srv.CloseConnections()

	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventUserOnline)) == 2 &&
			srv.Requests("GET /api/messages/"+partner.ID) == 2 &&
			srv.Requests("GET /api/messages/chats") >= 1
	}, waitFor, tick)

	st := s.Snapshot()
	req.NotNil(st.SelectedUser)
	req.Len(st.Messages, 1)
}

func TestPresenceSequenceConverges(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)

	push := func(userID, status string) {
		req.NoError(srv.Push(socket.EventUserStatusChanged, socket.StatusPayload{
			UserID: userID,
			Status: status,
		}))
	}

	push(partner.ID, socket.StatusOnline)
	push(other.ID, socket.StatusOnline)
	push(partner.ID, socket.StatusOffline)

	req.Eventually(func() bool {
		st := s.Snapshot()
		return !st.Online(partner.ID) && st.Online(other.ID)
	}, waitFor, tick)
}

func TestTypingIndicatorSequence(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)

	req.NoError(srv.Push(socket.EventUserTyping, socket.TypingPayload{SenderID: partner.ID}))

	req.Eventually(func() bool {
		return s.Snapshot().Typing(partner.ID)
	}, waitFor, tick)

	req.NoError(srv.Push(socket.EventUserStoppedTyping, socket.TypingPayload{SenderID: partner.ID}))

	req.Eventually(func() bool {
		return !s.Snapshot().Typing(partner.ID)
	}, waitFor, tick)
}

func TestInboundMessage_AppendedOnceAcrossBothEvents(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)
	req.Nil(s.SelectConversation(context.Background(), &partner))

	msg := message("m1", partner.ID, "hello")

	// The same message arrives on both delivery events; it must land exactly once.
	req.NoError(srv.Push(socket.EventReceiveMessage, msg))
	req.NoError(srv.Push(socket.EventNewMessage, msg))

	req.Eventually(func() bool {
		return len(s.Snapshot().Messages) == 1
	}, waitFor, tick)

	// Give the duplicate a chance to land before asserting it did not.
	time.Sleep(50 * time.Millisecond)
	req.Len(s.Snapshot().Messages, 1)
}

func TestInboundMessage_FilteredByActivePartner(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)
	req.Nil(s.SelectConversation(context.Background(), &partner))

	// A message from someone other than the active partner is ignored.
	req.NoError(srv.Push(socket.EventReceiveMessage, message("m1", other.ID, "wrong thread")))
	// A message from the active partner lands.
	req.NoError(srv.Push(socket.EventReceiveMessage, message("m2", partner.ID, "right thread")))

	req.Eventually(func() bool {
		st := s.Snapshot()
		return len(st.Messages) == 1 && st.Messages[0].ID == "m2"
	}, waitFor, tick)
}

func TestInboundMessage_DroppedWhileUnselected(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)

	req.NoError(srv.Push(socket.EventReceiveMessage, message("m1", partner.ID, "nobody listening")))

	// Presence events still flow, proving the dropped message was processed.
	req.NoError(srv.Push(socket.EventUserStatusChanged, socket.StatusPayload{
		UserID: partner.ID,
		Status: socket.StatusOnline,
	}))

	req.Eventually(func() bool {
		return s.Snapshot().Online(partner.ID)
	}, waitFor, tick)

	req.Empty(s.Snapshot().Messages)
}

func TestNotifyTyping_ThrottledPerPeer(t *testing.T) {
	req := require.New(t)

	srv, s := newSynchronizer(t)

	// A burst of keystrokes collapses into one emitted notification.
	for i := 0; i < 5; i++ {
		s.NotifyTyping(partner.ID)
	}

	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventUserTyping)) == 1
	}, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	req.Len(srv.Emitted(socket.EventUserTyping), 1)

	// Stop notifications are never throttled.
	s.NotifyStoppedTyping(partner.ID)
	s.NotifyStoppedTyping(partner.ID)

	req.Eventually(func() bool {
		return len(srv.Emitted(socket.EventUserStoppedTyping)) == 2
	}, waitFor, tick)
}

func TestReset_DiscardsIdentityScopedState(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetContacts([]model.User{partner})
	srv.SetHistory(partner.ID, []model.Message{message("m1", partner.ID, "hello")})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)
	ctx := context.Background()

	req.Nil(s.LoadContacts(ctx))
	req.Nil(s.SelectConversation(ctx, &partner))

	s.Reset()

	st := s.Snapshot()
	req.Empty(st.Contacts)
	req.Nil(st.SelectedUser)
	req.Empty(st.Messages)
	req.Empty(st.OnlineUsers)
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetContacts([]model.User{partner})

	s := chat.NewSynchronizer(api.NewClient(srv.APIURL()), nil)

	var sawLoading, sawContacts bool
	cancel := s.Subscribe(func(st chat.State) {
		if st.UsersLoading {
			sawLoading = true
		}
		if len(st.Contacts) == 1 {
			sawContacts = true
		}
	})
	defer cancel()

	req.Nil(s.LoadContacts(context.Background()))

	req.True(sawLoading)
	req.True(sawContacts)
}

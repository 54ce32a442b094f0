package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chatify/internal/apitest"
	"chatify/internal/app/api"
	"chatify/internal/app/model"
	"chatify/internal/pkg/errs"
)

func TestClient_NetworkFailure(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	url := srv.APIURL()
	srv.Close()

	client := api.NewClient(url)

	_, cerr := client.Contacts(context.Background())

	req.NotNil(cerr)
	req.Equal(errs.KindNetwork, cerr.Kind)
}

func TestClient_UnauthorizedInvokesHook(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	client := api.NewClient(srv.APIURL())

	var hookCalls int
	client.OnUnauthorized(func() { hookCalls++ })

	_, cerr := client.CheckAuth(context.Background())

	req.NotNil(cerr)
	req.Equal(errs.KindAuth, cerr.Kind)
	req.Equal("Unauthorized - no token provided", cerr.Message)
	req.Equal(1, hookCalls)
}

func TestClient_BearerTokenAuthenticates(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	client := api.NewClient(srv.APIURL(),
		api.WithTokenSource(func() string { return apitest.Token }),
	)

	user, cerr := client.CheckAuth(context.Background())

	req.Nil(cerr)
	req.Equal("u1", user.ID)
	req.Equal("Ada", user.FullName)
}

func TestClient_LoginCookieCarriesSession(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	client := api.NewClient(srv.APIURL())

	resp, cerr := client.Login(context.Background(), api.LoginRequest{
		Email:    "ada@example.com",
		Password: "secret1",
	})
	req.Nil(cerr)
	req.Equal("u1", resp.User.ID)
	req.Equal(apitest.Token, resp.Token)

	// The session cookie set at login authenticates the next call without a bearer token.
	user, cerr := client.CheckAuth(context.Background())
	req.Nil(cerr)
	req.Equal("u1", user.ID)
}

func TestClient_ContactsUnwrapsEnvelope(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.SetContacts([]model.User{
		{ID: "u2", FullName: "Grace"},
		{ID: "u3", FullName: "Linus"},
	})

	client := api.NewClient(srv.APIURL())

	users, cerr := client.Contacts(context.Background())

	req.Nil(cerr)
	req.Len(users, 2)
	req.Equal("Grace", users[0].FullName)
}

func TestClient_MessagesAndSend(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	client := api.NewClient(srv.APIURL(),
		api.WithTokenSource(func() string { return apitest.Token }),
	)

	msg, cerr := client.SendMessage(context.Background(), "u2", api.SendMessageRequest{Text: "hello"})
	req.Nil(cerr)
	req.NotEmpty(msg.ID)
	req.Equal("hello", msg.Text)
	req.Equal("u2", msg.ReceiverID)

	history, cerr := client.Messages(context.Background(), "u2")
	req.Nil(cerr)
	req.Len(history, 1)
	req.Equal(msg.ID, history[0].ID)
}

func TestClient_ServerErrorMapsToServerKind(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.FailLogout = true

	client := api.NewClient(srv.APIURL())

	cerr := client.Logout(context.Background())

	req.NotNil(cerr)
	req.Equal(errs.KindServer, cerr.Kind)
	req.Equal("Logout failed", cerr.Message)
}

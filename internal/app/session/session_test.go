package session_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"chatify/internal/apitest"
	"chatify/internal/app/api"
	"chatify/internal/app/model"
	"chatify/internal/app/session"
	"chatify/internal/pkg/auth/token"
	"chatify/internal/pkg/errs"
)

func newManager(t *testing.T, srv *apitest.Server) (*session.Manager, *token.Store) {
	t.Helper()

	tokens := token.NewStore(filepath.Join(t.TempDir(), "credentials"))
	client := api.NewClient(srv.APIURL(), api.WithTokenSource(tokens.Current))

	return session.NewManager(client, tokens), tokens
}

func TestSignup_RejectsBadInputBeforeNetwork(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	m, _ := newManager(t, srv)
	ctx := context.Background()

	cases := []struct {
		name     string
		fullName string
		email    string
		password string
		confirm  string
		wantCode int
	}{
		{"missing fields", "", "", "", "", errs.ErrFieldsRequired},
		{"bad email", "Ada", "not-an-email", "secret1", "secret1", errs.ErrInvalidEmail},
		{"short password", "Ada", "ada@example.com", "abc", "abc", errs.ErrPasswordTooShort},
		{"confirm mismatch", "Ada", "ada@example.com", "secret1", "secret2", errs.ErrPasswordMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			cerr := m.Signup(ctx, tc.fullName, tc.email, tc.password, tc.confirm)

			req.NotNil(cerr)
			req.Equal(tc.wantCode, cerr.Code)
			req.Equal(errs.KindValidation, cerr.Kind)
		})
	}

	// None of the rejected attempts may have reached the server.
	require.Zero(t, srv.TotalRequests())
}

func TestSignup_Success(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	m, tokens := newManager(t, srv)

	cerr := m.Signup(context.Background(), "Ada", "ada@example.com", "secret1", "secret1")
	req.Nil(cerr)

	user := m.Identity()
	req.NotNil(user)
	req.Equal("Ada", user.FullName)
	req.Equal(apitest.Token, tokens.Current())
	req.Equal(1, srv.Requests("POST /api/auth/signup"))
}

func TestLogin_Success(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	m, tokens := newManager(t, srv)

	cerr := m.Login(context.Background(), "ada@example.com", "secret1")
	req.Nil(cerr)

	user := m.Identity()
	req.NotNil(user)
	req.Equal("u1", user.ID)
	req.Equal(apitest.Token, tokens.Current())
}

func TestLogin_WrongCredentials(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	m, _ := newManager(t, srv)

	cerr := m.Login(context.Background(), "ada@example.com", "wrong")

	req.NotNil(cerr)
	req.Equal(errs.ErrInvalidCredentials, cerr.Code)
	req.Equal(errs.KindAuth, cerr.Kind)
	req.Equal("Invalid credentials", cerr.Message)
	req.Nil(m.Identity())
}

func TestLogin_RejectsBadInputBeforeNetwork(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	m, _ := newManager(t, srv)

	cerr := m.Login(context.Background(), "not-an-email", "secret1")

	req.NotNil(cerr)
	req.Equal(errs.KindValidation, cerr.Kind)
	req.Zero(srv.TotalRequests())
}

func TestCheckSession_NoCredential(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	m, _ := newManager(t, srv)

	// Never errors; failure only means "no identity".
	m.CheckSession(context.Background())

	req.Nil(m.Identity())
	req.False(m.Snapshot().CheckingAuth)
}

func TestCheckSession_ExpiredTokenClearedWithoutNetwork(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	m, tokens := newManager(t, srv)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &token.Claims{
		UserID: "u1",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(-time.Hour).Unix(),
		},
	}).SignedString([]byte("server-secret"))
	req.NoError(err)
	req.NoError(tokens.Save(expired))

	m.CheckSession(context.Background())

	req.Nil(m.Identity())
	req.Empty(tokens.Current())
	req.Zero(srv.TotalRequests())
}

func TestCheckSession_ResolvesStoredToken(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	m, tokens := newManager(t, srv)
	req.NoError(tokens.Save(apitest.Token))

	m.CheckSession(context.Background())

	user := m.Identity()
	req.NotNil(user)
	req.Equal("u1", user.ID)
}

func TestLogout_ClearsSessionEvenWhenServerFails(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")
	srv.FailLogout = true

	m, tokens := newManager(t, srv)
	req.Nil(m.Login(context.Background(), "ada@example.com", "secret1"))

	m.Logout(context.Background())

	req.Nil(m.Identity())
	req.Empty(tokens.Current())
}

func TestUpdateProfile_FailureMapsToUploadError(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")
	srv.FailUpload = true

	m, tokens := newManager(t, srv)
	req.NoError(tokens.Save(apitest.Token))

	cerr := m.UpdateProfile(context.Background(), "avatar.png", strings.NewReader("img-bytes"))

	req.NotNil(cerr)
	req.Equal(errs.ErrUploadFailed, cerr.Code)
	req.Equal(errs.KindUpload, cerr.Kind)
}

func TestUpdateProfile_Success(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	m, tokens := newManager(t, srv)
	req.NoError(tokens.Save(apitest.Token))
	m.CheckSession(context.Background())

	cerr := m.UpdateProfile(context.Background(), "avatar.png", strings.NewReader("img-bytes"))
	req.Nil(cerr)

	user := m.Identity()
	req.NotNil(user)
	req.Contains(user.ProfilePic, "avatar.png")
}

func TestUnauthorizedResponseClearsIdentity(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	tokens := token.NewStore(filepath.Join(t.TempDir(), "credentials"))
	req.NoError(tokens.Save("stale-token"))

	client := api.NewClient(srv.APIURL(), api.WithTokenSource(tokens.Current))
	m := session.NewManager(client, tokens)

	// The stale bearer token is rejected, which must clear the stored credential.
	_, cerr := client.CheckAuth(context.Background())

	req.NotNil(cerr)
	req.Equal(errs.KindAuth, cerr.Kind)
	req.Empty(tokens.Current())
	req.Nil(m.Identity())
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	req := require.New(t)

	srv := apitest.NewServer()
	defer srv.Close()

	srv.AddAccount(model.User{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, "secret1")

	m, _ := newManager(t, srv)

	var sawLoggingIn, sawIdentity bool
	cancel := m.Subscribe(func(st session.State) {
		if st.LoggingIn {
			sawLoggingIn = true
		}
		if st.AuthUser != nil {
			sawIdentity = true
		}
	})
	defer cancel()

	req.Nil(m.Login(context.Background(), "ada@example.com", "secret1"))

	req.True(sawLoggingIn)
	req.True(sawIdentity)
}

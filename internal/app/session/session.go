/*
Package session manages the authenticated identity and the credential lifecycle.

It wraps the auth endpoints of the REST client, performs the pre-request field
validation (so obviously bad input never reaches the network), persists the durable
session token, and exposes the identity plus its loading flags as immutable
snapshots through a subscribe/notify contract.
*/
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"chatify/internal/app/api"
	"chatify/internal/app/model"
	"chatify/internal/pkg/auth/token"
	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/observe"
)

// MinPasswordLength is the minimum accepted password length, in runes.
const MinPasswordLength = 6

// State is the readable snapshot of the session: the identity slot plus the
// loading flags the presentation layer renders spinners from.
type State struct {
	// AuthUser is the authenticated identity; nil while signed out.
	AuthUser *model.User

	// CheckingAuth is set while the startup credential resolution is in flight.
	CheckingAuth bool

	// SigningUp is set while a signup call is in flight.
	SigningUp bool

	// LoggingIn is set while a login call is in flight.
	LoggingIn bool

	// UpdatingProfile is set while a profile upload is in flight.
	UpdatingProfile bool
}

// clone returns a copy safe to hand to subscribers.
func (s State) clone() State {
	out := s
	if s.AuthUser != nil {
		u := *s.AuthUser
		out.AuthUser = &u
	}
	return out
}

// loginInput carries the pre-request validation rules for Login.
type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// signupInput carries the pre-request validation rules for Signup.
// The password length rule is checked separately in runes.
type signupInput struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Manager holds the current authenticated identity and drives the credential lifecycle.
type Manager struct {
	// api performs the auth REST calls.
	api *api.Client

	// tokens persists the durable session credential.
	tokens *token.Store

	// validate applies the pre-request field rules.
	validate *validator.Validate

	// mu protects state.
	mu sync.Mutex

	// state is the mutable session view; only clones leave the Manager.
	state State

	// seq numbers committed snapshots so the hub can drop one that lost the
	// race to a newer commit on the way to subscribers.
	seq uint64

	// hub fans state snapshots out to subscribers.
	hub observe.Hub[State]

	// structured logger with session context.
	logger zerolog.Logger
}

// NewManager constructs a session Manager. It registers itself as the REST
// client's unauthorized hook: any 401 clears the credential and identity,
// forcing re-authentication.
func NewManager(apiClient *api.Client, tokens *token.Store) *Manager {
	m := &Manager{
		api:      apiClient,
		tokens:   tokens,
		validate: validator.New(),
		state:    State{CheckingAuth: true},
		logger:   logx.Logger().With().Str("component", "Session").Logger(),
	}

	apiClient.OnUnauthorized(m.onUnauthorized)

	return m
}

// Snapshot returns an immutable copy of the session state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive a snapshot after every committed change.
// It returns a cancel function.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

// Identity returns the authenticated user, or nil while signed out.
func (m *Manager) Identity() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.AuthUser == nil {
		return nil
	}
	u := *m.state.AuthUser
	return &u
}

// commit runs mutate under the lock, then notifies subscribers with a fresh snapshot.
func (m *Manager) commit(mutate func(st *State)) {
	m.mu.Lock()
	mutate(&m.state)
	m.seq++
	seq := m.seq
	snap := m.state.clone()
	m.mu.Unlock()

	m.hub.Notify(seq, snap)
}

// onUnauthorized reacts to a 401 on any REST call: the credential is dead, so the
// local copy is dropped and the identity cleared.
func (m *Manager) onUnauthorized() {
	m.logger.Warn().Msg("Server rejected the session credential. Clearing identity.")

	if err := m.tokens.Clear(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored credential.")
	}

	m.commit(func(st *State) { st.AuthUser = nil })
}

// CheckSession attempts to resolve an existing credential at startup. Failure is
// never surfaced as an error: it only means "no identity". A token that is already
// expired by its own claims is cleared without spending a network call.
func (m *Manager) CheckSession(ctx context.Context) {
	m.commit(func(st *State) { st.CheckingAuth = true })
	defer m.commit(func(st *State) { st.CheckingAuth = false })

	if raw := m.tokens.Current(); raw != "" {
		if claims, err := token.Introspect(raw); err == nil && claims.Expired(time.Now()) {
			m.logger.Info().Msg("Stored credential is expired. Clearing it.")
			if err := m.tokens.Clear(); err != nil {
				m.logger.Error().Err(err).Msg("Failed to clear expired credential.")
			}
			m.commit(func(st *State) { st.AuthUser = nil })
			return
		}
	}

	user, cerr := m.api.CheckAuth(ctx)
	if cerr != nil {
		m.logger.Info().Err(cerr).Msg("Not authenticated.")
		m.commit(func(st *State) { st.AuthUser = nil })
		return
	}

	m.logger.Info().Str("user_id", user.ID).Msg("Session resolved.")
	m.commit(func(st *State) { st.AuthUser = user })
}

// Login exchanges credentials for a session. Field problems fail locally with a
// validation error; a server rejection surfaces as an auth error. On success the
// identity is set and the durable token persisted.
func (m *Manager) Login(ctx context.Context, email, password string) *errs.CustomError {
	if cerr := m.validateFields(loginInput{Email: email, Password: password}); cerr != nil {
		return cerr
	}

	m.commit(func(st *State) { st.LoggingIn = true })
	defer m.commit(func(st *State) { st.LoggingIn = false })

	resp, cerr := m.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if cerr != nil {
		if cerr.Kind == errs.KindAuth {
			return errs.NewError(errs.ErrInvalidCredentials, cerr.Message)
		}
		return cerr
	}

	m.persistToken(resp.Token)
	m.commit(func(st *State) { st.AuthUser = &resp.User })

	m.logger.Info().Str("user_id", resp.User.ID).Msg("Login successful.")
	return nil
}

// Signup creates a new account. Password length (in runes) and confirmation
// mismatch are rejected before any network call is made.
func (m *Manager) Signup(ctx context.Context, fullName, email, password, confirm string) *errs.CustomError {
	if cerr := m.validateFields(signupInput{FullName: fullName, Email: email, Password: password}); cerr != nil {
		return cerr
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errs.NewError(errs.ErrPasswordTooShort, MinPasswordLength)
	}

	if password != confirm {
		return errs.NewError(errs.ErrPasswordMismatch)
	}

	m.commit(func(st *State) { st.SigningUp = true })
	defer m.commit(func(st *State) { st.SigningUp = false })

	resp, cerr := m.api.Signup(ctx, api.SignupRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
	})
	if cerr != nil {
		return cerr
	}

	m.persistToken(resp.Token)
	m.commit(func(st *State) { st.AuthUser = &resp.User })

	m.logger.Info().Str("user_id", resp.User.ID).Msg("Signup successful.")
	return nil
}

// Logout notifies the server on a best-effort basis, then unconditionally clears
// the local identity and durable token, even when the server call fails.
func (m *Manager) Logout(ctx context.Context) {
	if cerr := m.api.Logout(ctx); cerr != nil {
		m.logger.Warn().Err(cerr).Msg("Logout notification failed. Clearing local session anyway.")
	}

	if err := m.tokens.Clear(); err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored credential on logout.")
	}

	m.commit(func(st *State) { st.AuthUser = nil })

	m.logger.Info().Msg("Signed out.")
}

// UpdateProfile uploads a new profile picture and replaces the identity record on
// success. Failures surface as upload errors.
func (m *Manager) UpdateProfile(ctx context.Context, filename string, image io.Reader) *errs.CustomError {
	m.commit(func(st *State) { st.UpdatingProfile = true })
	defer m.commit(func(st *State) { st.UpdatingProfile = false })

	user, cerr := m.api.UpdateProfile(ctx, filename, image)
	if cerr != nil {
		if cerr.Kind == errs.KindAuth {
			return cerr
		}
		return errs.NewError(errs.ErrUploadFailed, cerr.Message)
	}

	m.commit(func(st *State) { st.AuthUser = user })

	m.logger.Info().Str("user_id", user.ID).Msg("Profile updated.")
	return nil
}

// persistToken stores the bearer credential when the server issued one.
// Cookie-only deployments simply skip this step.
func (m *Manager) persistToken(raw string) {
	if raw == "" {
		return
	}
	if err := m.tokens.Save(raw); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist session credential.")
	}
}

// validateFields maps validator failures onto the error taxonomy.
func (m *Manager) validateFields(input any) *errs.CustomError {
	err := m.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewError(errs.ErrUnknown)
	}

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "email":
			return errs.NewError(errs.ErrInvalidEmail)
		case "required":
			return errs.NewError(errs.ErrFieldsRequired)
		}
	}

	return errs.NewError(errs.ErrFieldsRequired)
}

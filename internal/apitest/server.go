/*
Package apitest provides an in-memory test double of the Chatify backend.

It serves the REST surface the client consumes plus a websocket endpoint speaking
the channel's envelope, with hooks the tests use: per-route request counters
(asserting that validation failures never reach the network), forced-failure
switches, and gates that hold a history fetch open to reproduce response races.
*/
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chatify/internal/app/model"
	"chatify/internal/app/socket"
)

// Token is the bearer credential the fake backend issues and accepts.
const Token = "test-session-token"

// Account pairs a user record with its password.
type Account struct {
	User     model.User
	Password string
}

// Server is the fake backend. Exported switches may be toggled between requests;
// they are read under the server's lock.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// accounts maps email to registered account.
	accounts map[string]Account

	// contacts is the canned contact list returned by /messages/contacts/.
	contacts []model.User

	// chats is the canned partner list returned by /messages/chats.
	chats []model.User

	// history maps partner user id to the canned message list for that pair.
	history map[string][]model.Message

	// counters tracks requests per "METHOD path" key.
	counters map[string]int

	// gates holds per-partner channels that block the history handler until released.
	gates map[string]chan struct{}

	// FailLogout makes POST /auth/logout answer 500.
	FailLogout bool

	// FailUpload makes PUT /auth/update-profile answer 500.
	FailUpload bool

	// conns are the live websocket connections, used by Push.
	conns []*websocket.Conn

	// inbound collects every envelope received over the websocket.
	inbound []socket.Envelope

	upgrader websocket.Upgrader
}

// NewServer starts a fake backend with no accounts and empty lists.
// The caller owns Close.
func NewServer() *Server {
	s := &Server{
		accounts: make(map[string]Account),
		history:  make(map[string][]model.Message),
		counters: make(map[string]int),
		gates:    make(map[string]chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)
	r.Use(s.countRequests)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/check", s.handleCheck)
			auth.Post("/signup", s.handleSignup)
			auth.Post("/login", s.handleLogin)
			auth.Post("/logout", s.handleLogout)
			auth.Put("/update-profile", s.handleUpdateProfile)
		})

		api.Route("/messages", func(msg chi.Router) {
			msg.Get("/contacts/", s.handleContacts)
			msg.Get("/chats", s.handleChats)
			msg.Post("/send/{receiverID}", s.handleSend)
			msg.Get("/{userID}", s.handleHistory)
		})
	})

	r.Get("/ws", s.handleWebsocket)

	s.Server = httptest.NewServer(r)
	return s
}

// APIURL returns the REST base URL of the fake backend.
func (s *Server) APIURL() string { return s.URL + "/api" }

// AddAccount registers an account the login handler will accept.
func (s *Server) AddAccount(user model.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Email] = Account{User: user, Password: password}
}

// SetContacts replaces the canned contact list.
func (s *Server) SetContacts(users []model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = users
}

// SetChats replaces the canned chat-partner list.
func (s *Server) SetChats(users []model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = users
}

// SetHistory replaces the canned history for the given partner.
func (s *Server) SetHistory(userID string, messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[userID] = messages
}

// Requests reports how many requests hit the given "METHOD path" key,
// e.g. "POST /api/auth/signup".
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// TotalRequests reports the total number of requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.counters {
		total += n
	}
	return total
}

// GateHistory makes the next history fetch for userID block until the returned
// release function is called. Used to reproduce the stale-response race.
func (s *Server) GateHistory(userID string) (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.gates[userID] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Push emits an envelope to every connected websocket client.
func (s *Server) Push(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	frame, err := json.Marshal(socket.Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

// CloseConnections severs every live websocket connection, simulating a network
// drop. The HTTP server keeps running so the client can reconnect.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// Emitted returns the envelopes received over the websocket for the given event,
// in arrival order.
func (s *Server) Emitted(event string) []socket.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []socket.Envelope
	for _, env := range s.inbound {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// countRequests records every request under its "METHOD path" key.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counters[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// authorized reports whether the request carries the issued credential,
// as a bearer header or the session cookie.
func (s *Server) authorized(r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer "+Token {
		return true
	}
	if c, err := r.Cookie("jwt"); err == nil && c.Value == Token {
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// authPayload is the wire shape of a successful auth response.
func authPayload(u model.User) map[string]any {
	return map[string]any{
		"_id":        u.ID,
		"fullName":   u.FullName,
		"email":      u.Email,
		"profilePic": u.ProfilePic,
		"token":      Token,
	}
}

func (s *Server) issueSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "jwt", Value: Token, Path: "/"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized - no token provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		writeJSON(w, http.StatusOK, authPayload(acc.User))
		return
	}

	writeError(w, http.StatusUnauthorized, "Unauthorized - user not found")
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[input.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "Email already exists")
		return
	}

	user := model.User{
		ID:        uuid.New().String(),
		FullName:  input.FullName,
		Email:     input.Email,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[input.Email] = Account{User: user, Password: input.Password}
	s.mu.Unlock()

	s.issueSession(w)
	writeJSON(w, http.StatusCreated, authPayload(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[input.Email]
	s.mu.Unlock()

	if !ok || acc.Password != input.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.issueSession(w)
	writeJSON(w, http.StatusOK, authPayload(acc.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.FailLogout
	s.mu.Unlock()

	if fail {
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized - no token provided")
		return
	}

	s.mu.Lock()
	fail := s.FailUpload
	s.mu.Unlock()

	if fail {
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("profilePic")
	if err != nil {
		writeError(w, http.StatusBadRequest, "profilePic field is required")
		return
	}
	file.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for email, acc := range s.accounts {
		acc.User.ProfilePic = fmt.Sprintf("https://cdn.test/%s", header.Filename)
		s.accounts[email] = acc
		writeJSON(w, http.StatusOK, authPayload(acc.User))
		return
	}

	writeError(w, http.StatusUnauthorized, "Unauthorized - user not found")
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := s.contacts
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"filteredUsers": users})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := s.chats
	s.mu.Unlock()

	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	gate := s.gates[userID]
	delete(s.gates, userID)
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	messages := s.history[userID]
	s.mu.Unlock()

	if messages == nil {
		messages = []model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	receiverID := chi.URLParam(r, "receiverID")

	var input struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if input.Text == "" && input.Image == "" {
		writeError(w, http.StatusBadRequest, "Message must contain text or image")
		return
	}

	s.mu.Lock()
	var senderID string
	for _, acc := range s.accounts {
		senderID = acc.User.ID
		break
	}

	msg := model.Message{
		ID:         uuid.New().String(),
		Sender:     model.SenderRef{ID: senderID},
		ReceiverID: receiverID,
		Text:       input.Text,
		Image:      input.Image,
		CreatedAt:  time.Now().UTC(),
	}
	s.history[receiverID] = append(s.history[receiverID], msg)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	// Record inbound frames so tests can observe emitted events.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var env socket.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}

			s.mu.Lock()
			s.inbound = append(s.inbound, env)
			s.mu.Unlock()
		}
	}()
}

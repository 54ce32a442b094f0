/*
Package api implements the typed REST client for the Chatify backend.

This file defines one method per consumed endpoint. Responses are decoded into the
model types; every failure is normalized into *errs.CustomError by the request plumbing.
*/
package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"chatify/internal/app/model"
	"chatify/internal/pkg/errs"
)

// AuthResponse is the identity payload returned by the auth endpoints.
// Token is present when the server issues a bearer credential alongside the cookie.
type AuthResponse struct {
	User  model.User
	Token string
}

// authBody is the raw wire shape of an auth response: the user record's fields at the
// top level, plus the optional token.
type authBody struct {
	model.User
	Token string `json:"token,omitempty"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SendMessageRequest is the body of POST /messages/send/:receiverId.
type SendMessageRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// contactsBody is the envelope of GET /messages/contacts/.
type contactsBody struct {
	FilteredUsers []model.User `json:"filteredUsers"`
}

// newRequest builds a request against the API base URL.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, *errs.CustomError) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return req, nil
}

// jsonRequest builds a request carrying a JSON-encoded body.
func (c *Client) jsonRequest(ctx context.Context, method, path string, payload any) (*http.Request, *errs.CustomError) {
	body, cerr := encodeJSON(payload)
	if cerr != nil {
		return nil, cerr
	}

	req, cerr := c.newRequest(ctx, method, path, body)
	if cerr != nil {
		return nil, cerr
	}

	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CheckAuth resolves the identity behind the currently held credential (GET /auth/check).
func (c *Client) CheckAuth(ctx context.Context) (*model.User, *errs.CustomError) {
	req, cerr := c.newRequest(ctx, http.MethodGet, "/auth/check", nil)
	if cerr != nil {
		return nil, cerr
	}

	var body authBody
	if cerr := c.do(req, &body); cerr != nil {
		return nil, cerr
	}
	return &body.User, nil
}

// Signup creates a new account (POST /auth/signup).
func (c *Client) Signup(ctx context.Context, input SignupRequest) (*AuthResponse, *errs.CustomError) {
	req, cerr := c.jsonRequest(ctx, http.MethodPost, "/auth/signup", input)
	if cerr != nil {
		return nil, cerr
	}

	var body authBody
	if cerr := c.do(req, &body); cerr != nil {
		return nil, cerr
	}
	return &AuthResponse{User: body.User, Token: body.Token}, nil
}

// Login exchanges credentials for a session (POST /auth/login).
func (c *Client) Login(ctx context.Context, input LoginRequest) (*AuthResponse, *errs.CustomError) {
	req, cerr := c.jsonRequest(ctx, http.MethodPost, "/auth/login", input)
	if cerr != nil {
		return nil, cerr
	}

	var body authBody
	if cerr := c.do(req, &body); cerr != nil {
		return nil, cerr
	}
	return &AuthResponse{User: body.User, Token: body.Token}, nil
}

// Logout notifies the server that the session is ending (POST /auth/logout).
func (c *Client) Logout(ctx context.Context) *errs.CustomError {
	req, cerr := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil)
	if cerr != nil {
		return cerr
	}

	return c.do(req, nil)
}

// UpdateProfile uploads a new profile picture (PUT /auth/update-profile, multipart).
func (c *Client) UpdateProfile(ctx context.Context, filename string, image io.Reader) (*model.User, *errs.CustomError) {
	body, contentType, cerr := buildProfileUpload(filename, image)
	if cerr != nil {
		return nil, cerr
	}

	req, cerr := c.newRequest(ctx, http.MethodPut, "/auth/update-profile", body)
	if cerr != nil {
		return nil, cerr
	}
	req.Header.Set("Content-Type", contentType)

	var respBody authBody
	if cerr := c.do(req, &respBody); cerr != nil {
		return nil, cerr
	}
	return &respBody.User, nil
}

// Contacts fetches the full contact list (GET /messages/contacts/).
func (c *Client) Contacts(ctx context.Context) ([]model.User, *errs.CustomError) {
	req, cerr := c.newRequest(ctx, http.MethodGet, "/messages/contacts/", nil)
	if cerr != nil {
		return nil, cerr
	}

	var body contactsBody
	if cerr := c.do(req, &body); cerr != nil {
		return nil, cerr
	}
	return body.FilteredUsers, nil
}

// Chats fetches the list of users the caller has exchanged messages with (GET /messages/chats).
func (c *Client) Chats(ctx context.Context) ([]model.User, *errs.CustomError) {
	req, cerr := c.newRequest(ctx, http.MethodGet, "/messages/chats", nil)
	if cerr != nil {
		return nil, cerr
	}

	var users []model.User
	if cerr := c.do(req, &users); cerr != nil {
		return nil, cerr
	}
	return users, nil
}

// Messages fetches the full message history with the given user (GET /messages/:userId).
func (c *Client) Messages(ctx context.Context, userID string) ([]model.Message, *errs.CustomError) {
	req, cerr := c.newRequest(ctx, http.MethodGet, "/messages/"+url.PathEscape(userID), nil)
	if cerr != nil {
		return nil, cerr
	}

	var messages []model.Message
	if cerr := c.do(req, &messages); cerr != nil {
		return nil, cerr
	}
	return messages, nil
}

// SendMessage submits a new message (POST /messages/send/:receiverId) and returns the
// server-created Message record.
func (c *Client) SendMessage(ctx context.Context, receiverID string, input SendMessageRequest) (*model.Message, *errs.CustomError) {
	req, cerr := c.jsonRequest(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(receiverID), input)
	if cerr != nil {
		return nil, cerr
	}

	var msg model.Message
	if cerr := c.do(req, &msg); cerr != nil {
		return nil, cerr
	}
	return &msg, nil
}

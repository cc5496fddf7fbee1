package api

import (
	"context"
	"net/http"
)

// Login authenticates and stores the session cookie in the client's jar.
// Use Cookie afterwards to persist it.
func (c *Client) Login(ctx context.Context, username, password string, remember bool) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	body := map[string]any{
		"username": username,
		"password": password,
		"remember": remember,
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &out); err != nil {
		return nil, err
	}
	c.dropCSRF()
	return &out.User, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.dropCSRF()
	return err
}

// Me returns the logged-in account with its token budget.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

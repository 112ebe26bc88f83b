package api

import (
	"context"
	"net/http"

	"saldo/internal/core"
)

// Credentials are the login and registration form fields.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	User        core.User `json:"user"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.Do(ctx, http.MethodPost, "/auth/register", nil, creds, &out)
	return out, err
}

// Profile returns the user owning the current token.
func (c *Client) Profile(ctx context.Context) (core.User, error) {
	var out core.User
	err := c.Do(ctx, http.MethodGet, "/auth/profile", nil, nil, &out)
	return out, err
}

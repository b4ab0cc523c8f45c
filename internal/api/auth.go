package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		out:    &out,
	})
	return out, err
}

// Register creates an account and returns its token and profile.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		op:     "register",
		method: http.MethodPost,
		path:   "/auth/register",
		body:   req,
		out:    &out,
	})
	return out, err
}

// Me returns the profile for the token currently supplied by the
// TokenSource.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, call{
		op:     "me",
		method: http.MethodGet,
		path:   "/auth/me",
		out:    &out,
	})
	return out, err
}

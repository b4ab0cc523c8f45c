package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// UserMovies lists the signed-in user's entries. An empty status lists all.
func (c *Client) UserMovies(ctx context.Context, status Status) ([]UserMovie, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {string(status)}}
	}
	var out []UserMovie
	err := c.do(ctx, call{
		op:     "list",
		method: http.MethodGet,
		path:   "/user/movies",
		query:  q,
		out:    &out,
	})
	return out, err
}

// AddUserMovie puts a movie on the user's list.
func (c *Client) AddUserMovie(ctx context.Context, req AddRequest) (UserMovie, error) {
	var out UserMovie
	err := c.do(ctx, call{
		op:     "add",
		method: http.MethodPost,
		path:   "/user/movies",
		body:   req,
		out:    &out,
	})
	return out, err
}

// UpdateUserMovie changes status, rating or note of an entry.
func (c *Client) UpdateUserMovie(ctx context.Context, id int64, req UpdateRequest) (UserMovie, error) {
	var out UserMovie
	err := c.do(ctx, call{
		op:     "update",
		method: http.MethodPut,
		path:   "/user/movies/" + strconv.FormatInt(id, 10),
		body:   req,
		out:    &out,
	})
	return out, err
}

// RemoveUserMovie deletes an entry. Removing an unknown id yields ErrNotFound.
func (c *Client) RemoveUserMovie(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		op:     "remove",
		method: http.MethodDelete,
		path:   "/user/movies/" + strconv.FormatInt(id, 10),
	})
}

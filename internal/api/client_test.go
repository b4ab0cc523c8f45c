package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/apitest"
)

func newClient(t *testing.T, b *apitest.Backend, tokens api.TokenSource, opts ...api.Option) *api.Client {
	t.Helper()
	srv := b.Start(t)
	opts = append([]api.Option{api.WithRateLimit(0, 0), api.WithRetries(2, time.Millisecond)}, opts...)
	return api.New(srv.URL, tokens, opts...)
}

func TestLoginAndMe(t *testing.T) {
	b := apitest.New()
	b.AddUser("Ada", "ada@example.com", "secret1")

	var token atomic.Value
	token.Store("")
	src := tokenFunc(func() string { return token.Load().(string) })
	c := newClient(t, b, src)

	resp, err := c.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ada", resp.User.Name)

	token.Store(resp.Token)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	reqs := b.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Authorization, "login must go out anonymously")
	assert.Equal(t, "Bearer "+resp.Token, reqs[1].Authorization)
}

func TestLoginWrongPasswordIsAuthError(t *testing.T) {
	b := apitest.New()
	b.AddUser("Ada", "ada@example.com", "secret1")
	c := newClient(t, b, nil)

	_, err := c.Login(context.Background(), "ada@example.com", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrAuth))
	assert.False(t, errors.Is(err, api.ErrNetwork))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, api.ErrValidation},
		{http.StatusConflict, api.ErrValidation},
		{http.StatusUnauthorized, api.ErrAuth},
		{http.StatusForbidden, api.ErrAuth},
		{http.StatusNotFound, api.ErrNotFound},
		{http.StatusInternalServerError, api.ErrNetwork},
		{http.StatusTooManyRequests, api.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			b := apitest.New()
			b.Fail("search", tt.status)
			c := newClient(t, b, nil)

			_, err := c.Search(context.Background(), "matrix")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, 1, b.Count("search"), "search is never retried")
		})
	}
}

func TestCatalogRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"tmdbId": 603, "title": "The Matrix"}]`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, nil, api.WithRateLimit(0, 0), api.WithRetries(2, time.Millisecond))
	movies, err := c.Discover(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(603), movies[0].TmdbID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCatalogDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := api.New(srv.URL, nil, api.WithRateLimit(0, 0), api.WithRetries(3, time.Millisecond))
	_, err := c.Details(context.Background(), 42)
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDecodeFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, nil, api.WithRateLimit(0, 0), api.WithRetries(0, 0))
	_, err := c.Search(context.Background(), "matrix")
	require.ErrorIs(t, err, api.ErrNetwork)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := api.New(url, nil, api.WithRateLimit(0, 0), api.WithRetries(0, 0))
	_, err := c.Trending(context.Background())
	require.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, api.KindNetwork, api.KindOf(err))
}

func TestPagination(t *testing.T) {
	b := apitest.New()
	b.PageSize = 2
	b.Discover = apitest.SeedMovies(1, 5)
	c := newClient(t, b, nil)
	ctx := context.Background()

	p1, err := c.Discover(ctx, 1)
	require.NoError(t, err)
	p3, err := c.Discover(ctx, 3)
	require.NoError(t, err)
	p4, err := c.Discover(ctx, 4)
	require.NoError(t, err)

	assert.Len(t, p1, 2)
	assert.Len(t, p3, 1)
	assert.Empty(t, p4)
	assert.Equal(t, "page=1", b.Requests()[0].Query)
}

func TestUserMoviesLifecycle(t *testing.T) {
	b := apitest.New()
	b.AddUser("Ada", "ada@example.com", "secret1")
	token := b.IssueToken("ada@example.com")
	c := newClient(t, b, api.StaticToken(token))
	ctx := context.Background()

	rating := 9
	added, err := c.AddUserMovie(ctx, api.AddRequest{TmdbID: 603, Status: api.StatusWatched, UserRating: &rating})
	require.NoError(t, err)
	assert.Equal(t, api.StatusWatched, added.Status)

	_, err = c.AddUserMovie(ctx, api.AddRequest{TmdbID: 603, Status: api.StatusWatched})
	require.ErrorIs(t, err, api.ErrValidation, "duplicate entries are rejected")

	fav := api.StatusFavorite
	updated, err := c.UpdateUserMovie(ctx, added.ID, api.UpdateRequest{Status: &fav})
	require.NoError(t, err)
	assert.Equal(t, api.StatusFavorite, updated.Status)
	require.NotNil(t, updated.UserRating)
	assert.Equal(t, 9, *updated.UserRating)

	watched, err := c.UserMovies(ctx, api.StatusWatched)
	require.NoError(t, err)
	assert.Empty(t, watched)
	all, err := c.UserMovies(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, c.RemoveUserMovie(ctx, added.ID))
	require.ErrorIs(t, c.RemoveUserMovie(ctx, added.ID), api.ErrNotFound)
}

func TestUserMoviesRequiresToken(t *testing.T) {
	b := apitest.New()
	c := newClient(t, b, nil)
	_, err := c.UserMovies(context.Background(), "")
	require.ErrorIs(t, err, api.ErrAuth)
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	b := apitest.New()
	b.Fail("trending", http.StatusServiceUnavailable)

	var infos []api.RequestInfo
	c := newClient(t, b, nil, api.WithObserver(func(ri api.RequestInfo) { infos = append(infos, ri) }))
	_, err := c.Trending(context.Background())
	require.Error(t, err)

	require.Len(t, infos, 3)
	for _, ri := range infos {
		assert.Equal(t, "trending", ri.Op)
		assert.Equal(t, http.StatusServiceUnavailable, ri.Status)
	}
}

func TestContextCancelStopsRequest(t *testing.T) {
	b := apitest.New()
	b.Delay("search", func(*http.Request) time.Duration { return time.Second })
	c := newClient(t, b, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type tokenFunc func() string

func (f tokenFunc) Token() string { return f() }

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Search runs a free-text title search. It is not retried: the next
// keystroke issues a fresh query anyway.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out []SearchResult
	err := c.do(ctx, call{
		op:     "search",
		method: http.MethodGet,
		path:   "/movies/search",
		query:  url.Values{"q": {query}},
		out:    &out,
	})
	return out, err
}

// Discover returns one page of the discovery feed. An empty page means the
// feed is exhausted.
func (c *Client) Discover(ctx context.Context, page int) ([]Movie, error) {
	return c.moviePage(ctx, "discover", "/movies/discover", page)
}

// TopRated returns one page of the top rated listing.
func (c *Client) TopRated(ctx context.Context, page int) ([]Movie, error) {
	return c.moviePage(ctx, "top-rated", "/movies/top-rated", page)
}

// ByGenre returns one page of movies for a genre slug (see Genres).
func (c *Client) ByGenre(ctx context.Context, slug string, page int) ([]Movie, error) {
	return c.moviePage(ctx, "genre", "/movies/genre/"+url.PathEscape(slug), page)
}

// Trending returns the current trending list. It is not paginated.
func (c *Client) Trending(ctx context.Context) ([]Movie, error) {
	var out []Movie
	err := c.do(ctx, call{
		op:     "trending",
		method: http.MethodGet,
		path:   "/movies/trending",
		out:    &out,
		retry:  true,
	})
	return out, err
}

// Details returns the full record for a TMDB id.
func (c *Client) Details(ctx context.Context, tmdbID int64) (MovieDetails, error) {
	var out MovieDetails
	err := c.do(ctx, call{
		op:     "details",
		method: http.MethodGet,
		path:   "/movies/" + strconv.FormatInt(tmdbID, 10) + "/details",
		out:    &out,
		retry:  true,
	})
	return out, err
}

func (c *Client) moviePage(ctx context.Context, op, path string, page int) ([]Movie, error) {
	if page < 1 {
		page = 1
	}
	var out []Movie
	err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"page": {strconv.Itoa(page)}},
		out:    &out,
		retry:  true,
	})
	return out, err
}

package api

import (
	"fmt"
	"sort"
	"strings"
)

// User is the profile record returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	User      User   `json:"user"`
}

// SearchResult is a single hit from the text search endpoint.
type SearchResult struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	OriginalTitle    string   `json:"originalTitle,omitempty"`
	Overview         string   `json:"overview,omitempty"`
	PosterPath       string   `json:"posterPath,omitempty"`
	BackdropPath     string   `json:"backdropPath,omitempty"`
	ReleaseDate      string   `json:"releaseDate,omitempty"`
	VoteAverage      *float64 `json:"voteAverage,omitempty"`
	GenreIDs         []int    `json:"genreIds,omitempty"`
	OriginalLanguage string   `json:"originalLanguage,omitempty"`
}

// Year returns the release year for display, or "" when unknown.
func (r SearchResult) Year() string {
	if len(r.ReleaseDate) < 4 {
		return ""
	}
	return r.ReleaseDate[:4]
}

// Score returns the vote average if the backend supplied one.
func (r SearchResult) Score() (float64, bool) {
	if r.VoteAverage == nil {
		return 0, false
	}
	return *r.VoteAverage, true
}

// Movie is a catalog entry as returned by the listing endpoints.
type Movie struct {
	ID          int64    `json:"id,omitempty"`
	TmdbID      int64    `json:"tmdbId"`
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
	Language    string   `json:"language,omitempty"`
	Overview    string   `json:"overview,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	BackdropURL string   `json:"backdropUrl,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Director    string   `json:"director,omitempty"`
	Cast        string   `json:"cast,omitempty"`
}

// MovieDetails is the full record behind GET /movies/<id>/details.
type MovieDetails struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Overview         string      `json:"overview,omitempty"`
	PosterPath       string      `json:"posterPath,omitempty"`
	BackdropPath     string      `json:"backdropPath,omitempty"`
	ReleaseDate      string      `json:"releaseDate,omitempty"`
	VoteAverage      *float64    `json:"voteAverage,omitempty"`
	Runtime          int         `json:"runtime,omitempty"`
	OriginalLanguage string      `json:"originalLanguage,omitempty"`
	Genres           []GenreName `json:"genres,omitempty"`
	Credits          *Credits    `json:"credits,omitempty"`
}

// GenreName is a genre as embedded in movie details.
type GenreName struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credits lists cast and crew of a movie.
type Credits struct {
	Cast []CastMember `json:"cast,omitempty"`
	Crew []CrewMember `json:"crew,omitempty"`
}

type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Order     int    `json:"order"`
}

type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job,omitempty"`
}

// Year returns the release year for display, or "" when unknown.
func (d MovieDetails) Year() string {
	if len(d.ReleaseDate) < 4 {
		return ""
	}
	return d.ReleaseDate[:4]
}

// Directors returns the names of crew members credited as Director.
func (d MovieDetails) Directors() []string {
	if d.Credits == nil {
		return nil
	}
	var out []string
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			out = append(out, c.Name)
		}
	}
	return out
}

// TopCast returns up to n cast names in billing order.
func (d MovieDetails) TopCast(n int) []string {
	if d.Credits == nil || n <= 0 {
		return nil
	}
	cast := make([]CastMember, len(d.Credits.Cast))
	copy(cast, d.Credits.Cast)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	if len(cast) > n {
		cast = cast[:n]
	}
	names := make([]string, len(cast))
	for i, c := range cast {
		names[i] = c.Name
	}
	return names
}

// Status is a personal list bucket.
type Status string

const (
	StatusWatched   Status = "WATCHED"
	StatusWatchlist Status = "WATCHLIST"
	StatusFavorite  Status = "FAVORITE"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusWatched, StatusWatchlist, StatusFavorite}

// ParseStatus accepts any casing of a status name. The empty string parses
// to the empty status, meaning "all".
func ParseStatus(s string) (Status, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (want watched, watchlist or favorite)", s)
}

// Label is the human form used in the TUI tabs.
func (s Status) Label() string {
	switch s {
	case StatusWatched:
		return "Watched"
	case StatusWatchlist:
		return "Watchlist"
	case StatusFavorite:
		return "Favorite"
	default:
		return "All"
	}
}

// UserMovie is an entry of the signed-in user's list, enriched with
// catalog fields by the backend.
type UserMovie struct {
	ID           int64    `json:"id"`
	MovieID      int64    `json:"movieId,omitempty"`
	TmdbID       int64    `json:"tmdbId"`
	Status       Status   `json:"status"`
	UserRating   *int     `json:"userRating,omitempty"`
	PersonalNote string   `json:"personalNote,omitempty"`
	Title        string   `json:"title,omitempty"`
	Year         int      `json:"year,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	PosterURL    string   `json:"posterUrl,omitempty"`
	BackdropURL  string   `json:"backdropUrl,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
}

// AddRequest is the body of POST /user/movies.
type AddRequest struct {
	TmdbID       int64  `json:"tmdbId"`
	Status       Status `json:"status"`
	UserRating   *int   `json:"userRating,omitempty"`
	PersonalNote string `json:"personalNote,omitempty"`
}

// UpdateRequest is the partial body of PUT /user/movies/<id>. Nil fields
// are left untouched by the backend.
type UpdateRequest struct {
	Status       *Status `json:"status,omitempty"`
	UserRating   *int    `json:"userRating,omitempty"`
	PersonalNote *string `json:"personalNote,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Genre is a browsable genre slug.
type Genre struct {
	Slug string
	Name string
}

// Genres is the fixed set of slugs the movie service understands.
var Genres = []Genre{
	{"action", "Action"},
	{"adventure", "Adventure"},
	{"animation", "Animation"},
	{"comedy", "Comedy"},
	{"crime", "Crime"},
	{"documentary", "Documentary"},
	{"drama", "Drama"},
	{"family", "Family"},
	{"fantasy", "Fantasy"},
	{"history", "History"},
	{"horror", "Horror"},
	{"music", "Music"},
	{"mystery", "Mystery"},
	{"romance", "Romance"},
	{"science-fiction", "Sci-Fi"},
	{"thriller", "Thriller"},
	{"war", "War"},
	{"western", "Western"},
}

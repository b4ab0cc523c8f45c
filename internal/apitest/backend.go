// Package apitest provides an in-memory fake of the cinelog backend for
// tests. It implements the same routes as the real gateway on a gorilla/mux
// router and can be told to fail or delay individual routes.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/abelbrown/cinelog/internal/api"
)

// Request is a recorded incoming request.
type Request struct {
	Route         string
	Method        string
	Path          string
	Query         string
	Authorization string
}

type account struct {
	user     api.User
	password string
}

// Backend is a fake API server. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	router   *mux.Router
	accounts map[string]*account // email -> account
	tokens   map[string]string   // token -> email
	lists    map[string][]api.UserMovie
	details  map[int64]api.MovieDetails
	failures map[string]int
	delays   map[string]func(*http.Request) time.Duration
	requests []Request
	nextID   int64

	// Catalog data. Tests may replace these before starting the server.
	Discover []api.Movie
	TopRated []api.Movie
	Trending []api.Movie
	Genres   map[string][]api.Movie
	Results  []api.SearchResult
	PageSize int
}

// New returns a Backend with an empty catalog and a page size of 20.
func New() *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		lists:    make(map[string][]api.UserMovie),
		details:  make(map[int64]api.MovieDetails),
		failures: make(map[string]int),
		delays:   make(map[string]func(*http.Request) time.Duration),
		Genres:   make(map[string][]api.Movie),
		PageSize: 20,
	}
	b.router = b.routes()
	return b
}

// Start serves the backend on an httptest server closed at test cleanup.
func (b *Backend) Start(tb testing.TB) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(b)
	tb.Cleanup(srv.Close)
	return srv
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.middleware)

	r.HandleFunc("/auth/register", b.handleRegister).Methods(http.MethodPost).Name("register")
	r.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost).Name("login")
	r.HandleFunc("/auth/me", b.handleMe).Methods(http.MethodGet).Name("me")

	r.HandleFunc("/movies/search", b.handleSearch).Methods(http.MethodGet).Name("search")
	r.HandleFunc("/movies/discover", b.pageHandler(func() []api.Movie { return b.Discover })).Methods(http.MethodGet).Name("discover")
	r.HandleFunc("/movies/top-rated", b.pageHandler(func() []api.Movie { return b.TopRated })).Methods(http.MethodGet).Name("top-rated")
	r.HandleFunc("/movies/trending", b.handleTrending).Methods(http.MethodGet).Name("trending")
	r.HandleFunc("/movies/genre/{slug}", b.handleGenre).Methods(http.MethodGet).Name("genre")
	r.HandleFunc("/movies/{id:[0-9]+}/details", b.handleDetails).Methods(http.MethodGet).Name("details")

	r.HandleFunc("/user/movies", b.handleList).Methods(http.MethodGet).Name("list")
	r.HandleFunc("/user/movies", b.handleAdd).Methods(http.MethodPost).Name("add")
	r.HandleFunc("/user/movies/{id:[0-9]+}", b.handleUpdate).Methods(http.MethodPut).Name("update")
	r.HandleFunc("/user/movies/{id:[0-9]+}", b.handleRemove).Methods(http.MethodDelete).Name("remove")
	return r
}

// middleware records the request and applies configured failures and delays.
func (b *Backend) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Route:         name,
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
		})
		status := b.failures[name]
		delay := b.delays[name]
		b.mu.Unlock()

		if delay != nil {
			if d := delay(r); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every request to the named route answer with status.
// A status of 0 clears the failure.
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = status
}

// Delay holds requests to the named route for the duration returned by fn.
func (b *Backend) Delay(route string, fn func(*http.Request) time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		delete(b.delays, route)
		return
	}
	b.delays[route] = fn
}

// Requests returns a copy of everything received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Count returns how many requests hit the named route.
func (b *Backend) Count(route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

// AddUser creates an account and returns its profile.
func (b *Backend) AddUser(name, email, password string) api.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, password)
}

func (b *Backend) addUserLocked(name, email, password string) api.User {
	b.nextID++
	u := api.User{ID: b.nextID, Email: email, Name: name}
	b.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// IssueToken mints a token for an existing account, as an OAuth provider
// callback would.
func (b *Backend) IssueToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(strings.ToLower(email))
}

func (b *Backend) issueLocked(email string) string {
	b.nextID++
	token := fmt.Sprintf("tok-%d-%s", b.nextID, strings.SplitN(email, "@", 2)[0])
	b.tokens[token] = email
	return token
}

// SetDetails registers the details record served for a TMDB id.
func (b *Backend) SetDetails(d api.MovieDetails) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.details[d.ID] = d
}

// List returns the stored list for an account.
func (b *Backend) List(email string) []api.UserMovie {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.UserMovie, len(b.lists[strings.ToLower(email)]))
	copy(out, b.lists[strings.ToLower(email)])
	return out
}

// SeedMovies returns n generated movies with TMDB ids starting at first.
func SeedMovies(first int64, n int) []api.Movie {
	out := make([]api.Movie, n)
	for i := range out {
		id := first + int64(i)
		out[i] = api.Movie{
			TmdbID: id,
			Title:  fmt.Sprintf("Movie %d", id),
			Year:   1990 + int(id%30),
			Rating: float64(id%10) + 0.5,
		}
	}
	return out
}

// --- handlers ---

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	b.mu.Lock()
	email := strings.ToLower(req.Email)
	if _, exists := b.accounts[email]; exists {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := b.addUserLocked(req.Name, req.Email, req.Password)
	token := b.issueLocked(email)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, api.AuthResponse{Token: token, TokenType: "Bearer", User: u})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	b.mu.Lock()
	email := strings.ToLower(req.Email)
	acct, ok := b.accounts[email]
	if !ok || acct.password != req.Password {
		b.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token := b.issueLocked(email)
	u := acct.user
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, api.AuthResponse{Token: token, TokenType: "Bearer", User: u})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	b.mu.Lock()
	u := b.accounts[email].user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	b.mu.Lock()
	results := make([]api.SearchResult, 0)
	for _, res := range b.Results {
		if q != "" && strings.Contains(strings.ToLower(res.Title), q) {
			results = append(results, res)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, results)
}

func (b *Backend) pageHandler(source func() []api.Movie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		page := paginate(source(), pageParam(r), b.PageSize)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, page)
	}
}

func (b *Backend) handleTrending(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]api.Movie{}, b.Trending...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleGenre(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(mux.Vars(r)["slug"])
	b.mu.Lock()
	movies, ok := b.Genres[slug]
	page := paginate(movies, pageParam(r), b.PageSize)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown genre")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (b *Backend) handleDetails(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	b.mu.Lock()
	d, ok := b.details[id]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	status := api.Status(r.URL.Query().Get("status"))
	b.mu.Lock()
	out := make([]api.UserMovie, 0)
	for _, um := range b.lists[email] {
		if status == "" || um.Status == status {
			out = append(out, um)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleAdd(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	var req api.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TmdbID == 0 {
		writeError(w, http.StatusBadRequest, "tmdbId is required")
		return
	}
	if _, err := api.ParseStatus(string(req.Status)); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	b.mu.Lock()
	for _, um := range b.lists[email] {
		if um.TmdbID == req.TmdbID && um.Status == req.Status {
			b.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Movie already in list with this status")
			return
		}
	}
	b.nextID++
	um := api.UserMovie{
		ID:           b.nextID,
		MovieID:      req.TmdbID,
		TmdbID:       req.TmdbID,
		Status:       req.Status,
		UserRating:   req.UserRating,
		PersonalNote: req.PersonalNote,
		Title:        b.titleLocked(req.TmdbID),
	}
	b.lists[email] = append(b.lists[email], um)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, um)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	var req api.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.lists[email]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if req.Status != nil {
			list[i].Status = *req.Status
		}
		if req.UserRating != nil {
			list[i].UserRating = req.UserRating
		}
		if req.PersonalNote != nil {
			list[i].PersonalNote = *req.PersonalNote
		}
		writeJSON(w, http.StatusOK, list[i])
		return
	}
	writeError(w, http.StatusNotFound, "Movie not found in your list")
}

func (b *Backend) handleRemove(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.lists[email]
	for i := range list {
		if list[i].ID == id {
			b.lists[email] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Movie not found in your list")
}

// --- helpers ---

func (b *Backend) authenticate(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.tokens[token]
	return email, ok
}

func (b *Backend) titleLocked(tmdbID int64) string {
	if d, ok := b.details[tmdbID]; ok {
		return d.Title
	}
	for _, set := range [][]api.Movie{b.Discover, b.TopRated, b.Trending} {
		for _, m := range set {
			if m.TmdbID == tmdbID {
				return m.Title
			}
		}
	}
	for _, res := range b.Results {
		if res.ID == tmdbID {
			return res.Title
		}
	}
	return ""
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func paginate(movies []api.Movie, page, size int) []api.Movie {
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(movies) {
		return []api.Movie{}
	}
	end := start + size
	if end > len(movies) {
		end = len(movies)
	}
	return append([]api.Movie{}, movies[start:end]...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// Routes lists the route names understood by Fail and Delay.
func Routes() []string {
	names := []string{
		"register", "login", "me", "search", "discover", "top-rated", "trending",
		"genre", "details", "list", "add", "update", "remove",
	}
	sort.Strings(names)
	return names
}

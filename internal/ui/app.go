package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/feed"
	"github.com/abelbrown/cinelog/internal/otel"
	"github.com/abelbrown/cinelog/internal/pointer"
	"github.com/abelbrown/cinelog/internal/search"
	"github.com/abelbrown/cinelog/internal/session"
	"github.com/abelbrown/cinelog/internal/store"
)

// Catalog is the part of the API the TUI uses. *api.Client satisfies it.
type Catalog interface {
	Search(ctx context.Context, query string) ([]api.SearchResult, error)
	Discover(ctx context.Context, page int) ([]api.Movie, error)
	TopRated(ctx context.Context, page int) ([]api.Movie, error)
	Trending(ctx context.Context) ([]api.Movie, error)
	ByGenre(ctx context.Context, slug string, page int) ([]api.Movie, error)
	Details(ctx context.Context, tmdbID int64) (api.MovieDetails, error)
	UserMovies(ctx context.Context, status api.Status) ([]api.UserMovie, error)
	AddUserMovie(ctx context.Context, req api.AddRequest) (api.UserMovie, error)
	UpdateUserMovie(ctx context.Context, id int64, req api.UpdateRequest) (api.UserMovie, error)
	RemoveUserMovie(ctx context.Context, id int64) error
}

// Auth is the session as the TUI sees it. *session.Holder satisfies it.
type Auth interface {
	Snapshot() session.Session
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
	Logout() error
}

// History records and lists selected movies. *store.Store satisfies it.
type History interface {
	RecordSelection(sel store.Selection) error
	Recent(limit int) ([]store.Selection, error)
}

// Deps is everything the App talks to. Catalog is required; a nil Auth
// disables sign-in and a nil History empties the Recent tab.
type Deps struct {
	Catalog Catalog
	Auth    Auth
	History History
	Events  *otel.Logger
	Ring    *otel.RingBuffer
	Pointer *pointer.Notifier
	Config  *config.Config

	// AfterFunc replaces the search debounce timer in tests.
	AfterFunc search.AfterFunc
}

type focusArea int

const (
	focusList focusArea = iota
	focusSearch
)

// Screen rows above the list.
const (
	rowTabs   = 0
	rowSearch = 1
	rowSub    = 2
	listTop   = 3

	maxDropdown = 8
)

var errSignIn = errors.New("sign in (L) to manage your list")

// App is the root Bubble Tea model.
// IMPORTANT: App never blocks on the network. Controllers fetch in their
// own goroutines and deliver snapshots through the inbox; one-shot calls
// run as tea.Cmds.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	cfg    *config.Config
	events *otel.Logger
	inbox  *inbox
	ptr    *pointer.Notifier

	search  *search.Controller[api.SearchResult]
	results search.State[api.SearchResult] // last delivered snapshot
	input   textinput.Model
	focus   focusArea

	tabs   [numTabs]*tab
	active tabKind

	details *detailsView
	login   *loginForm
	sess    session.Session

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width     int
	height    int
	ready     bool
	showDebug bool
	status    string
	err       error
}

// New creates the App and its controllers. Nothing is fetched until Init.
func New(deps Deps) *App {
	if deps.Catalog == nil {
		panic("ui: Deps.Catalog is required")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Pointer == nil {
		deps.Pointer = pointer.NewNotifier()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		ctx:     ctx,
		cancel:  cancel,
		deps:    deps,
		cfg:     cfg,
		events:  deps.Events,
		inbox:   newInbox(),
		ptr:     deps.Pointer,
		results: search.State[api.SearchResult]{Highlighted: -1},
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	a.input = textinput.New()
	a.input.Prompt = "/ "
	a.input.Placeholder = "Search movies…"
	a.input.CharLimit = 100

	a.search = search.NewController(ctx, search.Options[api.SearchResult]{
		Search: deps.Catalog.Search,
		OnSelect: func(r api.SearchResult) {
			a.inbox.post("", searchSelectedMsg{result: r})
		},
		OnChange: func(s search.State[api.SearchResult]) {
			a.inbox.post("search", searchStateMsg{state: s})
		},
		Delay:     cfg.Search.Debounce.Duration,
		MinLength: cfg.Search.MinQueryLength,
		AfterFunc: deps.AfterFunc,
		Events:    deps.Events,
	})
	a.search.Mount(a.ptr, a.inSearchArea)

	threshold := max(cfg.Feed.ProximityRows, 1)
	for k := tabKind(0); k < numTabs; k++ {
		t := &tab{kind: k, state: feed.State[Row]{Page: 1, HasMore: true}}
		t.ctl = feed.NewController(ctx, feed.Options[Row]{
			Fetch:     a.fetchFor(t),
			Threshold: threshold,
			OnChange: func(s feed.State[Row]) {
				a.inbox.post("feed:"+k.String(), feedStateMsg{tab: k, state: s})
			},
			Events: deps.Events,
			Name:   k.String(),
		})
		a.tabs[k] = t
	}
	if k, ok := tabByName(cfg.UI.DefaultTab); ok {
		a.active = k
	}
	if deps.Auth != nil {
		a.sess = deps.Auth.Snapshot()
	}
	return a
}

// Init starts listening to the controllers and loads the first tab.
func (a *App) Init() tea.Cmd {
	a.activate(a.active)
	return tea.Batch(a.inbox.wait(), a.spinner.Tick)
}

// Close stops every controller. In-flight requests are cancelled.
func (a *App) Close() {
	a.cancel()
	a.search.Close()
	for _, t := range a.tabs {
		t.ctl.Close()
	}
	a.inbox.close()
}

func (a *App) signedIn() bool {
	return a.sess.Token != ""
}

// activate makes k the visible tab and loads it the first time.
func (a *App) activate(k tabKind) {
	a.active = k
	t := a.tabs[k]
	switch {
	case k == tabList && !a.signedIn():
	case k == tabRecent:
		// History changes underneath; always reload.
		t.started = true
		t.ctl.LoadInitial()
	case !t.started:
		t.started = true
		t.ctl.LoadInitial()
	}
}

// reload discards a tab's items and fetches page 1 again. With force
// unset, a reload while page 1 is still loading is dropped.
func (a *App) reload(t *tab, force bool) {
	if t.kind == tabList && !a.signedIn() {
		return
	}
	t.started = true
	if force {
		t.ctl.LoadInitial()
	} else if !t.ctl.Reload() {
		return
	}
	t.cursor, t.offset = 0, 0
}

// listHeight is the number of list rows that fit on screen.
func (a *App) listHeight() int {
	h := a.height - listTop - 1 - a.helpHeight()
	if h < 1 {
		return 1
	}
	return h
}

func (a *App) helpHeight() int {
	if a.help.ShowAll {
		return 6
	}
	return 1
}

func (a *App) dropdownRows() int {
	if !a.results.Open {
		return 0
	}
	return min(len(a.results.Results), maxDropdown, a.listHeight())
}

// dropdownIndex maps a screen row to a visible search result.
func (a *App) dropdownIndex(y int) (int, bool) {
	i := y - listTop
	return i, i >= 0 && i < a.dropdownRows()
}

// inSearchArea reports whether a pointer event hit the search box or its
// result panel.
func (a *App) inSearchArea(x, y int) bool {
	if y == rowSearch {
		return true
	}
	_, ok := a.dropdownIndex(y)
	return ok
}

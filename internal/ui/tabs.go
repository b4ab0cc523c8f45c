package ui

import (
	"context"
	"sync/atomic"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/feed"
)

type tabKind int

const (
	tabDiscover tabKind = iota
	tabTopRated
	tabTrending
	tabGenre
	tabList
	tabRecent
	numTabs
)

var tabTitles = [numTabs]string{"Discover", "Top Rated", "Trending", "Genre", "My List", "Recent"}

// tabNames are the config names (ui.default_tab) and event component names.
var tabNames = [numTabs]string{"discover", "top", "trending", "genre", "list", "recent"}

func (k tabKind) String() string { return tabNames[k] }

func tabByName(name string) (tabKind, bool) {
	for i, n := range tabNames {
		if n == name {
			return tabKind(i), true
		}
	}
	return 0, false
}

// listStatuses are the My List sub-tabs; "" is All.
var listStatuses = append([]api.Status{""}, api.Statuses...)

// recentLimit is how many history rows the Recent tab shows.
const recentLimit = 100

// tab is one feed-backed list. Tabs are shared by pointer between copies
// of App.
type tab struct {
	kind    tabKind
	ctl     *feed.Controller[Row]
	state   feed.State[Row]
	cursor  int
	offset  int
	started bool

	// variant is the genre index on the Genre tab and the status index on
	// My List. The fetch function reads it, so it is atomic.
	variant atomic.Int32
}

func (t *tab) selected() (Row, bool) {
	if t.cursor < 0 || t.cursor >= len(t.state.Items) {
		return Row{}, false
	}
	return t.state.Items[t.cursor], true
}

// variantLabel names the current genre or status.
func (t *tab) variantLabel() string {
	v := int(t.variant.Load())
	switch t.kind {
	case tabGenre:
		return api.Genres[v].Name
	case tabList:
		return listStatuses[v].Label()
	}
	return ""
}

// cycle moves the variant by delta with wraparound. It reports false for
// tabs without variants.
func (t *tab) cycle(delta int) bool {
	var n int
	switch t.kind {
	case tabGenre:
		n = len(api.Genres)
	case tabList:
		n = len(listStatuses)
	default:
		return false
	}
	v := (int(t.variant.Load()) + delta + n) % n
	t.variant.Store(int32(v))
	return true
}

// fetchFor builds the page fetcher of a tab.
func (a *App) fetchFor(t *tab) feed.FetchFunc[Row] {
	c := a.deps.Catalog
	switch t.kind {
	case tabDiscover:
		return func(ctx context.Context, page int) ([]Row, error) {
			ms, err := c.Discover(ctx, page)
			return rowsFromMovies(ms), err
		}
	case tabTopRated:
		return func(ctx context.Context, page int) ([]Row, error) {
			ms, err := c.TopRated(ctx, page)
			return rowsFromMovies(ms), err
		}
	case tabTrending:
		return feed.Single(func(ctx context.Context) ([]Row, error) {
			ms, err := c.Trending(ctx)
			return rowsFromMovies(ms), err
		})
	case tabGenre:
		return func(ctx context.Context, page int) ([]Row, error) {
			slug := api.Genres[t.variant.Load()].Slug
			ms, err := c.ByGenre(ctx, slug, page)
			return rowsFromMovies(ms), err
		}
	case tabList:
		return feed.Single(func(ctx context.Context) ([]Row, error) {
			ums, err := c.UserMovies(ctx, listStatuses[t.variant.Load()])
			if err != nil {
				return nil, err
			}
			rows := make([]Row, len(ums))
			for i, um := range ums {
				rows[i] = rowFromUserMovie(um)
			}
			return rows, nil
		})
	default:
		h := a.deps.History
		return feed.Single(func(ctx context.Context) ([]Row, error) {
			if h == nil {
				return nil, nil
			}
			sels, err := h.Recent(recentLimit)
			if err != nil {
				return nil, err
			}
			rows := make([]Row, len(sels))
			for i, s := range sels {
				rows[i] = rowFromSelection(s)
			}
			return rows, nil
		})
	}
}

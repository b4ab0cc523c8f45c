package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/apitest"
)

type page struct {
	items []int
	err   error
}

// gatedFetch blocks each page request until the test releases it.
type gatedFetch struct {
	mu      sync.Mutex
	calls   []int
	pending chan chan page
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{pending: make(chan chan page, 8)}
}

func (g *gatedFetch) Fetch(ctx context.Context, n int) ([]int, error) {
	ch := make(chan page, 1)
	g.mu.Lock()
	g.calls = append(g.calls, n)
	g.mu.Unlock()
	g.pending <- ch
	select {
	case p := <-ch:
		return p.items, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// next releases the oldest outstanding request with p.
func (g *gatedFetch) next(t *testing.T, p page) {
	t.Helper()
	select {
	case ch := <-g.pending:
		ch <- p
	case <-time.After(2 * time.Second):
		t.Fatal("no page request outstanding")
	}
}

func (g *gatedFetch) Calls() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.calls...)
}

func ints(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}

var nearEnd = ScrollMetrics{Offset: 900, ContentHeight: 1200, ViewportHeight: 200}
var farAway = ScrollMetrics{Offset: 0, ContentHeight: 5000, ViewportHeight: 200}

func newTestFeed(t *testing.T, g *gatedFetch) *Controller[int] {
	t.Helper()
	c := NewController(context.Background(), Options[int]{Fetch: g.Fetch, Name: "test"})
	t.Cleanup(func() {
		for {
			select {
			case ch := <-g.pending:
				ch <- page{}
			default:
				c.Close()
				return
			}
		}
	})
	return c
}

func TestScenarioInitialThenNextPage(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	assert.True(t, c.State().Loading)
	g.next(t, page{items: ints(0, 20)})
	c.Wait()

	s := c.State()
	assert.Len(t, s.Items, 20)
	assert.True(t, s.HasMore)
	assert.Equal(t, 1, s.Page)
	assert.False(t, s.Loading)

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{items: ints(20, 20)})
	c.Wait()

	s = c.State()
	assert.Len(t, s.Items, 40)
	assert.Equal(t, 2, s.Page)
	assert.Equal(t, ints(0, 40), s.Items, "pages are appended in order")
	assert.Equal(t, []int{1, 2}, g.Calls())
}

func TestScenarioEmptyPageEndsFeed(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{items: ints(0, 20)})
	c.Wait()
	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{items: ints(20, 20)})
	c.Wait()

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{})
	c.Wait()

	s := c.State()
	assert.False(t, s.HasMore)
	assert.Equal(t, 2, s.Page)
	assert.Len(t, s.Items, 40)

	for i := 0; i < 5; i++ {
		assert.False(t, c.MaybeLoadNext(nearEnd))
	}
	assert.Equal(t, []int{1, 2, 3}, g.Calls(), "no fetch after the feed ended")
	assert.False(t, c.State().HasMore)
}

func TestSequentialLoads(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{items: ints(0, 20)})
	c.Wait()

	assert.True(t, c.MaybeLoadNext(nearEnd))
	assert.False(t, c.MaybeLoadNext(nearEnd), "second call while loading must not fetch")
	assert.False(t, c.MaybeLoadNext(nearEnd))

	g.next(t, page{items: ints(20, 5)})
	c.Wait()
	assert.Equal(t, []int{1, 2}, g.Calls())
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name string
		m    ScrollMetrics
		want bool
	}{
		{"far from the end", farAway, false},
		{"exactly at threshold", ScrollMetrics{Offset: 300, ContentHeight: 1000, ViewportHeight: 200}, true},
		{"one past threshold", ScrollMetrics{Offset: 299, ContentHeight: 1000, ViewportHeight: 200}, false},
		{"content shorter than viewport", ScrollMetrics{Offset: 0, ContentHeight: 100, ViewportHeight: 400}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGatedFetch()
			c := newTestFeed(t, g)
			c.LoadInitial()
			g.next(t, page{items: ints(0, 3)})
			c.Wait()

			assert.Equal(t, tt.want, c.MaybeLoadNext(tt.m))
		})
	}
}

func TestFailureIsRetryable(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{items: ints(0, 20)})
	c.Wait()

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{err: &api.Error{Kind: api.KindNetwork, Status: 503}})
	c.Wait()

	s := c.State()
	assert.False(t, s.Loading, "failure must not leave the feed stuck")
	assert.True(t, s.HasMore)
	assert.Equal(t, 1, s.Page)
	assert.Len(t, s.Items, 20)

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{items: ints(20, 20)})
	c.Wait()

	assert.Equal(t, []int{1, 2, 2}, g.Calls(), "the failed page is requested again")
	assert.Len(t, c.State().Items, 40)
}

func TestFailedFirstPageRetriesPageOne(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{err: errors.New("connection refused")})
	c.Wait()

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{items: ints(0, 20)})
	c.Wait()

	assert.Equal(t, []int{1, 1}, g.Calls())
	assert.Equal(t, 1, c.State().Page)
	assert.Len(t, c.State().Items, 20)
}

func TestEmptyFirstPage(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{})
	c.Wait()

	s := c.State()
	assert.False(t, s.HasMore)
	assert.Empty(t, s.Items)
	assert.False(t, c.MaybeLoadNext(nearEnd))
}

func TestLoadInitialDropsEarlierCompletion(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	first := <-g.pending // hold the first load

	c.LoadInitial()
	g.next(t, page{items: ints(100, 2)})
	first <- page{items: ints(0, 20)}
	c.Wait()

	s := c.State()
	assert.Equal(t, []int{100, 101}, s.Items)
	assert.False(t, s.Loading)
}

func TestReloadSkipsRunningFirstPage(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	assert.False(t, c.Reload(), "page 1 is already loading")
	assert.False(t, c.Reload())
	g.next(t, page{items: ints(0, 3)})
	c.Wait()
	assert.Equal(t, []int{1}, g.Calls())
	assert.Equal(t, ints(0, 3), c.State().Items)

	// A running later page does not hold a reload back.
	require.True(t, c.MaybeLoadNext(nearEnd))
	assert.True(t, c.Reload())
	g.next(t, page{items: ints(50, 3)}) // page 2 of the old lifetime
	g.next(t, page{items: ints(100, 2)})
	c.Wait()

	assert.Equal(t, []int{1, 2, 1}, g.Calls())
	assert.Equal(t, []int{100, 101}, c.State().Items)
}

func TestLoadInitialStartsNewLifetime(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	c.LoadInitial()
	g.next(t, page{})
	c.Wait()
	require.False(t, c.State().HasMore)

	c.LoadInitial()
	g.next(t, page{items: ints(0, 3)})
	c.Wait()
	assert.True(t, c.State().HasMore)
	assert.Len(t, c.State().Items, 3)
}

func TestMonotonicity(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)
	c.LoadInitial()
	g.next(t, page{items: ints(0, 4)})
	c.Wait()

	// Mix of full pages, failures and finally the end.
	script := []page{
		{items: ints(4, 4)},
		{err: errors.New("timeout")},
		{items: ints(8, 1)},
		{err: errors.New("timeout")},
		{},
	}
	prev := len(c.State().Items)
	for _, p := range script {
		require.True(t, c.MaybeLoadNext(nearEnd))
		g.next(t, p)
		c.Wait()
		n := len(c.State().Items)
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}
	assert.Equal(t, ints(0, 9), c.State().Items)
	assert.False(t, c.MaybeLoadNext(nearEnd))
}

func TestMaybeLoadNextBeforeLoadInitialFetchesFirstPage(t *testing.T) {
	g := newGatedFetch()
	c := newTestFeed(t, g)

	require.True(t, c.MaybeLoadNext(nearEnd))
	g.next(t, page{items: ints(0, 2)})
	c.Wait()
	assert.Equal(t, []int{1}, g.Calls())
}

func TestSingle(t *testing.T) {
	calls := 0
	fetch := Single(func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	})
	c := NewController(context.Background(), Options[string]{Fetch: fetch})
	defer c.Close()

	c.LoadInitial()
	c.Wait()
	require.True(t, c.MaybeLoadNext(nearEnd))
	c.Wait()

	s := c.State()
	assert.Equal(t, []string{"a", "b"}, s.Items)
	assert.False(t, s.HasMore)
	assert.Equal(t, 1, calls)
}

func TestDiscoverFeedAgainstBackend(t *testing.T) {
	b := apitest.New()
	b.PageSize = 20
	b.Discover = apitest.SeedMovies(1, 45)
	srv := b.Start(t)
	client := api.New(srv.URL, nil, api.WithRateLimit(0, 0))

	var (
		mu   sync.Mutex
		last State[api.Movie]
	)
	c := NewController(context.Background(), Options[api.Movie]{
		Fetch: client.Discover,
		Name:  "discover",
		OnChange: func(s State[api.Movie]) {
			mu.Lock()
			if s.Rev > last.Rev {
				last = s
			}
			mu.Unlock()
		},
	})
	defer c.Close()

	c.LoadInitial()
	c.Wait()
	for c.MaybeLoadNext(nearEnd) {
		c.Wait()
	}

	s := c.State()
	assert.Len(t, s.Items, 45)
	assert.Equal(t, 3, s.Page)
	assert.False(t, s.HasMore)
	assert.Equal(t, 4, b.Count("discover"))

	mu.Lock()
	assert.Equal(t, s.Rev, last.Rev, "OnChange saw the final state")
	mu.Unlock()
}

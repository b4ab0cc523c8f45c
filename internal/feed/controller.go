// Package feed accumulates a paginated listing as the user scrolls. Pages
// are fetched strictly one at a time; an empty page ends the feed.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
)

// DefaultThreshold is how close, in scroll units, the viewport bottom must
// be to the content bottom before the next page loads.
const DefaultThreshold = 500

// FetchFunc returns one page. Pages start at 1. An empty page signals the
// end of the listing.
type FetchFunc[T any] func(ctx context.Context, page int) ([]T, error)

// ScrollMetrics describes the viewport. Units are arbitrary but must agree
// with the threshold (pixels in a browser, rows in a terminal).
type ScrollMetrics struct {
	Offset         int // distance scrolled from the top
	ContentHeight  int
	ViewportHeight int
}

// Remaining is the distance from the viewport bottom to the content bottom.
func (m ScrollMetrics) Remaining() int {
	return m.ContentHeight - (m.Offset + m.ViewportHeight)
}

// State is a snapshot of the feed. Items is a copy owned by the receiver.
type State[T any] struct {
	Items   []T
	Page    int // last page appended; 1 before anything loaded
	Loading bool
	HasMore bool
	Rev     uint64
}

// Options configures a Controller. Fetch is required.
type Options[T any] struct {
	Fetch     FetchFunc[T]
	Threshold int
	OnChange  func(State[T])
	Events    *otel.Logger
	Name      string // for logs and events, e.g. "discover"
}

// Controller is safe for concurrent use.
type Controller[T any] struct {
	ctx  context.Context
	opts Options[T]
	comp string

	mu     sync.Mutex
	state  State[T]
	gen    uint64 // bumped by LoadInitial; completions of older loads are dropped
	loaded bool   // page 1 has been appended
	closed bool

	wg conc.WaitGroup
}

// NewController returns a feed that has not loaded anything yet.
func NewController[T any](ctx context.Context, opts Options[T]) *Controller[T] {
	if opts.Fetch == nil {
		panic("feed: Options.Fetch is required")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	comp := "feed"
	if opts.Name != "" {
		comp += ":" + opts.Name
	}
	return &Controller[T]{
		ctx:   ctx,
		opts:  opts,
		comp:  comp,
		state: State[T]{Page: 1, HasMore: true},
	}
}

// State returns a snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// LoadInitial discards everything and fetches page 1. A load still in
// flight from before the reset is ignored when it completes.
func (c *Controller[T]) LoadInitial() {
	c.reset(false)
}

// Reload is LoadInitial for a repeated user request: while page 1 of the
// current lifetime is still loading it does nothing. It reports whether a
// fetch was started.
func (c *Controller[T]) Reload() bool {
	return c.reset(true)
}

func (c *Controller[T]) reset(keepFirstPage bool) bool {
	c.mu.Lock()
	if c.closed || (keepFirstPage && c.state.Loading && !c.loaded) {
		c.mu.Unlock()
		return false
	}
	c.gen++
	c.loaded = false
	c.state = State[T]{Page: 1, HasMore: true, Rev: c.state.Rev}
	snap := c.startLocked(1)
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// MaybeLoadNext fetches the next page when no load is running, the feed
// has more, and the viewport is within the threshold of the end. It reports
// whether a fetch was started.
func (c *Controller[T]) MaybeLoadNext(m ScrollMetrics) bool {
	c.mu.Lock()
	if c.closed || c.state.Loading || !c.state.HasMore || m.Remaining() > c.opts.Threshold {
		c.mu.Unlock()
		return false
	}
	page := c.state.Page + 1
	if !c.loaded {
		// Page 1 failed or never ran.
		page = 1
	}
	snap := c.startLocked(page)
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *Controller[T]) startLocked(page int) State[T] {
	c.state.Loading = true
	gen := c.gen
	c.wg.Go(func() { c.load(gen, page) })
	return c.commitLocked()
}

func (c *Controller[T]) load(gen uint64, page int) {
	start := time.Now()
	var (
		items []T
		err   error
	)
	if r := panics.Try(func() { items, err = c.opts.Fetch(c.ctx, page) }); r != nil {
		err = r.AsError()
	}
	dur := time.Since(start)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	switch {
	case err != nil:
		// Page and HasMore stay put so the same scroll condition retries.
	case len(items) == 0:
		c.state.HasMore = false
	default:
		c.state.Items = append(c.state.Items, items...)
		c.state.Page = page
		c.loaded = true
	}
	total := len(c.state.Items)
	snap := c.commitLocked()
	c.mu.Unlock()

	ev := otel.Event{Comp: c.comp, Page: page, Dur: dur}
	switch {
	case err != nil:
		ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindFeedError, err.Error()
		logging.Warn("feed page failed", "feed", c.opts.Name, "page", page, "err", err)
	case len(items) == 0:
		ev.Level, ev.Kind, ev.Count = otel.LevelInfo, otel.KindFeedEnd, total
		logging.Debug("feed exhausted", "feed", c.opts.Name, "page", page, "items", total)
	default:
		ev.Level, ev.Kind, ev.Count = otel.LevelInfo, otel.KindFeedPage, len(items)
	}
	c.opts.Events.Emit(ev)
	c.notify(snap)
}

// Wait blocks until no page load is running.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

// Close waits for a running load and ignores all later calls.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller[T]) commitLocked() State[T] {
	c.state.Rev++
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() State[T] {
	s := c.state
	if s.Items != nil {
		s.Items = append([]T(nil), s.Items...)
	}
	return s
}

func (c *Controller[T]) notify(s State[T]) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}

// Single adapts an unpaginated listing to a FetchFunc: page 1 returns the
// whole list and every later page is empty.
func Single[T any](fetch func(ctx context.Context) ([]T, error)) FetchFunc[T] {
	return func(ctx context.Context, page int) ([]T, error) {
		if page > 1 {
			return nil, nil
		}
		return fetch(ctx)
	}
}

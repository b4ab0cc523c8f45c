// Package search implements a typeahead controller: it debounces input,
// runs searches concurrently, keeps only the response matching the current
// query, and tracks a highlighted result for keyboard selection.
//
// The controller is independent of any UI. A front end feeds it keystrokes
// and pointer events and renders the State snapshots it publishes.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
	"github.com/abelbrown/cinelog/internal/pointer"
)

const (
	DefaultDelay     = 300 * time.Millisecond
	DefaultMinLength = 2
)

// Options configures a Controller. Search is required.
type Options[T any] struct {
	// Search runs one query. It is called from its own goroutine.
	Search func(ctx context.Context, query string) ([]T, error)

	// OnSelect receives the item chosen by ConfirmHighlighted or Select.
	OnSelect func(T)

	// OnChange receives a snapshot after every transition. It may be called
	// from any goroutine and never while the controller's lock is held.
	OnChange func(State[T])

	Delay     time.Duration
	MinLength int
	AfterFunc AfterFunc
	Events    *otel.Logger
}

// Controller is safe for concurrent use. Every transition runs under one
// mutex, so keystrokes, timer fires and completions are applied one at a
// time in the order they acquire it.
type Controller[T any] struct {
	ctx  context.Context
	opts Options[T]

	mu       sync.Mutex
	state    State[T]
	timer    Timer
	armed    uint64 // debounce generation; a fire for an older one is ignored
	inflight map[string]int // outstanding requests per query
	unmount  func()
	closed   bool

	wg conc.WaitGroup
}

// NewController returns an idle controller. ctx is passed to every Search
// call and should live as long as the controller.
func NewController[T any](ctx context.Context, opts Options[T]) *Controller[T] {
	if opts.Search == nil {
		panic("search: Options.Search is required")
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	return &Controller[T]{
		ctx:      ctx,
		opts:     opts,
		state:    State[T]{Highlighted: -1},
		inflight: make(map[string]int),
	}
}

// State returns a snapshot of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetQuery records the input and restarts the debounce timer. It never
// fetches directly.
func (c *Controller[T]) SetQuery(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Query = text
	c.armLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller[T]) armLocked() {
	c.stopTimerLocked()
	gen := c.armed
	c.timer = c.opts.AfterFunc(c.opts.Delay, func() { c.fire(gen) })
}

// stopTimerLocked cancels the pending debounce. Bumping the generation also
// neutralizes a timer that already fired and is waiting for the lock.
func (c *Controller[T]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed++
}

// fire runs when the debounce window for generation gen elapses.
func (c *Controller[T]) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.armed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	query := c.state.Query

	if len([]rune(strings.TrimSpace(query))) < c.opts.MinLength {
		c.state.Results = nil
		c.state.Open = false
		c.state.Highlighted = -1
		snap := c.commitLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	qid := uuid.NewString()
	c.inflight[query]++
	c.state.Loading = true
	snap := c.commitLocked()
	c.wg.Go(func() { c.run(query, qid) })
	c.mu.Unlock()

	c.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchStart, Comp: "search", QueryID: qid, Query: query})
	c.notify(snap)
}

// run performs one search and reconciles its response with the current query.
func (c *Controller[T]) run(query, qid string) {
	start := time.Now()
	var (
		results []T
		err     error
	)
	if r := panics.Try(func() { results, err = c.opts.Search(c.ctx, strings.TrimSpace(query)) }); r != nil {
		err = r.AsError()
	}
	dur := time.Since(start)

	c.mu.Lock()
	c.inflight[query]--
	if c.inflight[query] <= 0 {
		delete(c.inflight, query)
	}
	c.state.Loading = c.inflight[c.state.Query] > 0
	if c.closed {
		c.mu.Unlock()
		return
	}

	stale := query != c.state.Query
	switch {
	case stale:
		// Only Loading may have changed.
	case err != nil:
		c.state.Results = nil
		c.state.Open = false
		c.state.Highlighted = -1
	default:
		c.state.Results = results
		c.state.Highlighted = -1
		c.state.Open = len(results) > 0
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	ev := otel.Event{Comp: "search", QueryID: qid, Query: query, Dur: dur, Count: len(results)}
	switch {
	case stale:
		ev.Level, ev.Kind = otel.LevelDebug, otel.KindSearchStale
		logging.Debug("search: discarded stale response", "query", query, "current", snap.Query)
	case err != nil:
		ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindSearchError, err.Error()
		if !errors.Is(err, context.Canceled) {
			logging.Warn("search failed", "query", query, "err", err)
		}
	default:
		ev.Level, ev.Kind = otel.LevelInfo, otel.KindSearchComplete
	}
	c.opts.Events.Emit(ev)
	c.notify(snap)
}

// ConfirmHighlighted selects the highlighted result, if the panel is open
// and one is highlighted. It reports whether a selection happened.
func (c *Controller[T]) ConfirmHighlighted() bool {
	c.mu.Lock()
	item, ok := c.state.HighlightedItem()
	if !ok || !c.state.Open || c.closed {
		c.mu.Unlock()
		return false
	}
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.selected(item, snap)
	return true
}

// Select chooses item directly, as a pointer click on a visible row does.
func (c *Controller[T]) Select(item T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.selected(item, snap)
}

func (c *Controller[T]) selected(item T, snap State[T]) {
	c.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchSelect, Comp: "search"})
	if c.opts.OnSelect != nil {
		c.opts.OnSelect(item)
	}
	c.notify(snap)
}

// Clear empties the query and results and cancels a pending search.
func (c *Controller[T]) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller[T]) resetLocked() {
	c.stopTimerLocked()
	c.state.Query = ""
	c.state.Loading = false
	c.state.Results = nil
	c.state.Open = false
	c.state.Highlighted = -1
}

// MoveHighlight moves the highlight with wraparound. From no highlight,
// Next goes to the first result and Previous to the last. No-op while the
// panel is closed.
func (c *Controller[T]) MoveHighlight(dir Direction) {
	c.update(func(s *State[T]) bool {
		n := len(s.Results)
		if !s.Open || n == 0 {
			return false
		}
		switch dir {
		case Next:
			s.Highlighted = (s.Highlighted + 1) % n
		case Previous:
			if s.Highlighted <= 0 {
				s.Highlighted = n - 1
			} else {
				s.Highlighted--
			}
		default:
			return false
		}
		return true
	})
}

// SetHighlight highlights result i, as hovering over a row does.
// Out-of-range indexes are ignored.
func (c *Controller[T]) SetHighlight(i int) {
	c.update(func(s *State[T]) bool {
		if !s.Open || i < 0 || i >= len(s.Results) || i == s.Highlighted {
			return false
		}
		s.Highlighted = i
		return true
	})
}

// Dismiss closes the panel. Query and results are kept so Focus can reopen
// it without another search.
func (c *Controller[T]) Dismiss() {
	c.update(func(s *State[T]) bool {
		if !s.Open {
			return false
		}
		s.Open = false
		s.Highlighted = -1
		return true
	})
}

// Focus reopens the panel when there are results to show.
func (c *Controller[T]) Focus() {
	c.update(func(s *State[T]) bool {
		if s.Open || len(s.Results) == 0 {
			return false
		}
		s.Open = true
		return true
	})
}

// update applies fn under the lock and notifies if it reports a change.
func (c *Controller[T]) update(fn func(*State[T]) bool) {
	c.mu.Lock()
	if c.closed || !fn(&c.state) {
		c.mu.Unlock()
		return
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Mount subscribes to n for the component's lifetime. A press or focus
// event for which contains returns false dismisses the panel. Mounting
// again replaces the previous subscription.
func (c *Controller[T]) Mount(n *pointer.Notifier, contains func(x, y int) bool) {
	unsub := n.Subscribe(func(e pointer.Event) {
		if e.Kind != pointer.Press && e.Kind != pointer.Focus {
			return
		}
		if contains != nil && contains(e.X, e.Y) {
			return
		}
		c.Dismiss()
	})

	c.mu.Lock()
	prev := c.unmount
	c.unmount = unsub
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Unmount releases the pointer subscription.
func (c *Controller[T]) Unmount() {
	c.mu.Lock()
	unsub := c.unmount
	c.unmount = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Wait blocks until every in-flight search has completed. A panic in
// Search has already been turned into an error by then.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

// Close cancels the pending timer, unmounts and waits for in-flight
// searches. Later calls to any method are no-ops.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.Unmount()
	c.wg.Wait()
}

func (c *Controller[T]) commitLocked() State[T] {
	c.state.Rev++
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() State[T] {
	s := c.state
	if s.Results != nil {
		s.Results = append([]T(nil), s.Results...)
	}
	return s
}

func (c *Controller[T]) notify(s State[T]) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}

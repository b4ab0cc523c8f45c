package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/cinelog/internal/api"
)

// probeTimeout bounds each status probe.
const probeTimeout = 5 * time.Second

// Status is a health snapshot of the backend, the session and local state.
type Status struct {
	BaseURL string

	// Catalog probe (discover page 1).
	CatalogErr     error
	CatalogLatency time.Duration

	// Session. User is the profile returned by the backend for the token.
	SignedIn   bool
	Expires    time.Time // zero when the token carries no expiry
	User       *api.User
	ProfileErr error

	// List sizes per status; nil when signed out or the probe failed.
	List    map[api.Status]int
	ListErr error

	History    int
	HistoryErr error
}

// Status probes everything concurrently. Probe failures are recorded in the
// result; Status itself never fails.
func (rt *Runtime) Status(ctx context.Context) Status {
	s := Status{BaseURL: rt.Client.BaseURL(), SignedIn: rt.Session.Authenticated()}
	if exp, ok := rt.Session.ExpiresAt(); ok {
		s.Expires = exp
	}

	var g errgroup.Group
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		start := time.Now()
		_, s.CatalogErr = rt.Client.Discover(pctx, 1)
		s.CatalogLatency = time.Since(start)
		return nil
	})
	g.Go(func() error {
		s.History, s.HistoryErr = rt.Store.HistoryCount()
		return nil
	})
	if s.SignedIn {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			u, err := rt.Client.Me(pctx)
			if err != nil {
				s.ProfileErr = err
				return nil
			}
			s.User = &u
			return nil
		})
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			entries, err := rt.Client.UserMovies(pctx, "")
			if err != nil {
				s.ListErr = err
				return nil
			}
			s.List = make(map[api.Status]int, len(api.Statuses))
			for _, st := range api.Statuses {
				s.List[st] = 0
			}
			for _, e := range entries {
				s.List[e.Status]++
			}
			return nil
		})
	}
	_ = g.Wait() // probes report through s
	return s
}

// CheckSession signs out a session whose token has expired. It reports
// whether it did.
func (rt *Runtime) CheckSession(now time.Time) (bool, error) {
	if !rt.Session.Authenticated() || !rt.Session.Expired(now) {
		return false, nil
	}
	return true, rt.Session.Logout()
}

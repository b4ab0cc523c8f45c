// Package app wires the pieces both binaries share: configuration, the
// event log, the SQLite store, the session holder and the API client.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
	"github.com/abelbrown/cinelog/internal/session"
	"github.com/abelbrown/cinelog/internal/store"
)

// ringSize is how many events the TUI debug overlay keeps.
const ringSize = 512

// Runtime owns the long-lived dependencies of a process. Close releases
// them in reverse order.
type Runtime struct {
	Config  *config.Config
	Store   *store.Store
	Session *session.Holder
	Client  *api.Client
	Events  *otel.Logger
	Ring    *otel.RingBuffer
}

// Options configures Open.
type Options struct {
	// Fs backs the file session storage. Defaults to the OS filesystem.
	Fs afero.Fs

	// EventsPath is the JSONL event log. Empty disables it; events still
	// reach the ring buffer.
	EventsPath string

	// ClientOptions are applied after the ones derived from cfg.
	ClientOptions []api.Option
}

// retryBackoff is the base delay between catalog GET attempts.
const retryBackoff = 300 * time.Millisecond

// Open builds a Runtime from cfg and restores the persisted session.
func Open(cfg *config.Config, opts Options) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.Dir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	rt := &Runtime{Config: cfg, Ring: otel.NewRingBuffer(ringSize)}

	events, err := openEvents(opts.EventsPath)
	if err != nil {
		return nil, err
	}
	rt.Events = events
	rt.Events.SetRingBuffer(rt.Ring)

	st, err := store.Open(config.DatabasePath())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	rt.Store = st

	var storage session.Storage = st
	if cfg.Session.Backend == config.BackendFile {
		fsys := opts.Fs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		storage = session.NewFileStorage(fsys, config.SessionFilePath())
	}

	clientOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout.Duration),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithRetries(uint(cfg.API.Retries), retryBackoff),
		api.WithObserver(rt.observe),
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)
	// The client reads the token from the holder on every request.
	rt.Client = api.New(cfg.API.BaseURL, tokenOf(func() string { return rt.Session.Token() }), clientOpts...)
	rt.Session = session.New(storage, rt.Client, session.WithEvents(rt.Events))

	if err := rt.Session.Restore(); err != nil {
		// A broken session store should not keep the catalog from working.
		logging.Warn("session restore failed", "err", err)
	}
	return rt, nil
}

func openEvents(path string) (*otel.Logger, error) {
	if path == "" {
		return otel.NewNullLogger(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return otel.NewLogger(f), nil
}

// observe records every API call in the event log.
func (rt *Runtime) observe(info api.RequestInfo) {
	ev := otel.Event{
		Level:  otel.LevelDebug,
		Kind:   otel.KindAPIRequest,
		Comp:   "api",
		Dur:    info.Duration,
		Status: info.Status,
		Msg:    info.Method + " " + info.Path,
	}
	if info.Err != nil {
		ev.Level = otel.LevelWarn
		ev.Err = info.Err.Error()
	}
	rt.Events.Emit(ev)
}

// Close flushes the event log and closes the store.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	if rt.Events != nil {
		rt.Events.Close()
	}
	return errors.Join(errs...)
}

type tokenOf func() string

func (f tokenOf) Token() string { return f() }

// LoadConfig reads path, or the default config file when path is empty, and
// applies environment overrides.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.AutoPopulateFromEnv()
	return cfg, cfg.Validate()
}

// Command cinelog is the terminal movie browser.
//
// Usage:
//
//	cinelog                    Browse, search and manage your list
//	cinelog --token <token>    Finish a sign-in started in the browser
//	cinelog --config <path>    Use another config file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/cinelog/internal/app"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
	"github.com/abelbrown/cinelog/internal/ui"
)

var version = "dev"

// startupTimeout bounds the work done before the TUI appears.
const startupTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	token := flag.String("token", "", "complete an external sign-in with this token")
	configPath := flag.String("config", "", "config file (default ~/.cinelog/config.toml)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("cinelog", version)
		return 0
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cinelog: %v\n", err)
		return 1
	}

	if err := logging.Init(logging.Options{
		Dir:        filepath.Join(config.Dir(), "logs"),
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Version:    version,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	rt, err := app.Open(cfg, app.Options{EventsPath: config.EventsPath()})
	if err != nil {
		logging.Error("startup failed", "err", err)
		fmt.Fprintf(os.Stderr, "cinelog: %v\n", err)
		return 1
	}
	defer rt.Close()
	rt.Events.Info(otel.KindStartup, "main", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := prepare(ctx, rt, *token); err != nil {
		logging.Error("sign-in failed", "err", err)
		fmt.Fprintf(os.Stderr, "cinelog: %v\n", err)
		return 1
	}

	model := ui.New(ui.Deps{
		Catalog: rt.Client,
		Auth:    rt.Session,
		History: rt.Store,
		Events:  rt.Events,
		Ring:    rt.Ring,
		Config:  cfg,
	})
	defer model.Close()

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	logging.Info("starting UI", "api", rt.Client.BaseURL(), "signed_in", rt.Session.Authenticated())
	_, err = tea.NewProgram(model, opts...).Run()
	rt.Events.Info(otel.KindShutdown, "main", "")
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logging.Error("application error", "err", err)
		fmt.Fprintf(os.Stderr, "cinelog: %v\n", err)
		return 1
	}
	logging.Info("exiting normally")
	return 0
}

// prepare settles the session and probes the backend before the first
// frame. Only a failed token exchange is fatal.
func prepare(ctx context.Context, rt *app.Runtime, token string) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if token != "" {
			return rt.Session.ExchangeExternalToken(ctx, token)
		}
		expired, err := rt.CheckSession(time.Now())
		if expired {
			logging.Info("stored session expired; signed out")
		}
		return err
	})
	g.Go(func() error {
		s := rt.Status(ctx)
		if s.CatalogErr != nil {
			logging.Warn("backend unreachable", "url", s.BaseURL, "err", s.CatalogErr)
			return nil
		}
		logging.Info("backend reachable", "url", s.BaseURL, "latency", s.CatalogLatency, "history", s.History)
		return nil
	})
	return g.Wait()
}

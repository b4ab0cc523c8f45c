package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/otel"
)

func runHistory(c *cli, args []string) error {
	fs := c.flags("[--limit n] [--clear]")
	limit := fs.Int("limit", 20, "Number of movies to show")
	clearAll := fs.Bool("clear", false, "Delete the history")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}

	if *clearAll {
		if err := c.rt.Store.ClearHistory(); err != nil {
			return err
		}
		c.printf("History cleared\n")
		return nil
	}
	if *limit < 1 {
		return c.usageError(fs, "--limit must be at least 1")
	}

	recent, err := c.rt.Store.Recent(*limit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		c.printf("No history yet\n")
		return nil
	}
	for _, sel := range recent {
		c.printf("%s  %8d  %-4s  %-9s %s\n",
			sel.SelectedAt.Local().Format("2006-01-02 15:04"), sel.TmdbID, sel.Year, sel.Source, sel.Title)
	}
	return nil
}

func runStatus(c *cli, args []string) error {
	fs := c.flags("")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}

	s := c.rt.Status(c.ctx)

	c.printf("Backend:    %s\n", s.BaseURL)
	if s.CatalogErr != nil {
		c.printf("Catalog:    unreachable (%s)\n", describe(s.CatalogErr))
	} else {
		c.printf("Catalog:    ok (%s)\n", s.CatalogLatency.Round(time.Millisecond))
	}

	switch {
	case !s.SignedIn:
		c.printf("Session:    signed out\n")
	case s.User != nil:
		c.printf("Session:    %s <%s>\n", s.User.Name, s.User.Email)
	case s.ProfileErr != nil:
		c.printf("Session:    token held, profile unavailable (%s)\n", describe(s.ProfileErr))
	default:
		c.printf("Session:    token held\n")
	}
	if !s.Expires.IsZero() {
		c.printf("Expires:    %s\n", s.Expires.Local().Format(time.RFC1123))
	}

	if s.SignedIn {
		if s.ListErr != nil {
			c.printf("List:       unavailable (%s)\n", describe(s.ListErr))
		} else {
			c.printf("List:      ")
			for _, st := range api.Statuses {
				c.printf(" %s %d", st.Label(), s.List[st])
			}
			c.printf("\n")
		}
	}

	if s.HistoryErr != nil {
		c.printf("History:    unavailable (%v)\n", s.HistoryErr)
	} else {
		c.printf("History:    %d selections\n", s.History)
	}
	c.printf("Data dir:   %s\n", config.Dir())
	return nil
}

// followPoll is how often events -f checks for new lines.
const followPoll = 100 * time.Millisecond

func runEvents(c *cli, args []string) error {
	fs := c.flags("[--tail n] [-f] [--kind prefix] [--level l] [--comp c] [--qid id] [--json]")
	tail := fs.Int("tail", 50, "Number of recent lines to show")
	follow := fs.Bool("f", false, "Follow mode (like tail -f)")
	kind := fs.String("kind", "", "Filter by event kind prefix (e.g. 'search')")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	comp := fs.String("comp", "", "Filter by component name")
	qid := fs.String("qid", "", "Filter by query ID")
	rawJSON := fs.Bool("json", false, "Output raw JSON lines")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	switch otel.Level(*level) {
	case "", otel.LevelDebug, otel.LevelInfo, otel.LevelWarn, otel.LevelError:
	default:
		return c.usageError(fs, "unknown level %q", *level)
	}

	filter := otel.Filter{
		KindPrefix: *kind,
		MinLevel:   otel.Level(*level),
		Comp:       *comp,
		QueryID:    *qid,
	}
	show := func(l otel.Line) {
		if *rawJSON {
			c.printf("%s\n", l.Raw)
			return
		}
		c.printf("%s\n", otel.Format(l.Event))
	}

	path := config.EventsPath()
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(c.errOut, "  Event log not found at %s\n", path)
		fmt.Fprintf(c.errOut, "  Run cinelog first to generate events.\n")
		return err
	}
	defer f.Close()

	lines, err := otel.ReadTail(f, *tail, filter)
	if err != nil {
		return err
	}
	for _, l := range lines {
		show(l)
	}
	if !*follow {
		return nil
	}

	// ReadTail consumed the file; keep reading from its end.
	reader := bufio.NewReader(f)
	var partial []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == io.EOF {
			select {
			case <-c.ctx.Done():
				return nil
			case <-time.After(followPoll):
			}
			continue
		}
		if err != nil {
			return err
		}
		line, ok := otel.DecodeLine(partial)
		partial = partial[:0]
		if ok && filter.Match(line.Event) {
			show(line)
		}
	}
}

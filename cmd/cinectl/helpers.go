package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abelbrown/cinelog/internal/app"
	"github.com/abelbrown/cinelog/internal/config"
	"github.com/abelbrown/cinelog/internal/logging"
)

// cli carries the streams and the runtime for one invocation.
type cli struct {
	ctx    context.Context
	name   string
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	rt     *app.Runtime
}

// open loads the config and the shared runtime. Diagnostics go to stderr at
// warn unless CINELOG_LOG_LEVEL asks for more.
func (c *cli) open() error {
	cfg, err := app.LoadConfig(os.Getenv("CINELOG_CONFIG"))
	if err != nil {
		return err
	}
	level := "warn"
	if os.Getenv("CINELOG_LOG_LEVEL") != "" {
		level = cfg.Log.Level
	}
	if err := logging.InitWriter(c.errOut, level); err != nil {
		return err
	}
	rt, err := app.Open(cfg, app.Options{EventsPath: config.EventsPath()})
	if err != nil {
		return err
	}
	c.rt = rt
	return nil
}

func (c *cli) close() {
	if c.rt == nil {
		return
	}
	if err := c.rt.Close(); err != nil {
		logging.Warn("close failed", "err", err)
	}
}

// flags returns a flag set whose errors and help go to stderr.
func (c *cli) flags(synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	fs.Usage = func() {
		fmt.Fprintf(c.errOut, "Usage: cinectl %s %s\n", c.name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parse accepts flags before, between and after positional arguments and
// returns the positionals.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if err == flag.ErrHelp {
				return nil, err
			}
			return nil, errUsage
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// usageError prints msg and the command usage.
func (c *cli) usageError(fs *flag.FlagSet, format string, a ...any) error {
	fmt.Fprintf(c.errOut, "cinectl %s: %s\n", c.name, fmt.Sprintf(format, a...))
	fs.Usage()
	return errUsage
}

// exactArgs parses args and requires n positionals.
func (c *cli) exactArgs(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	pos, err := parse(fs, args)
	if err != nil {
		return nil, err
	}
	if len(pos) != n {
		return nil, c.usageError(fs, "expected %d argument(s), got %d", n, len(pos))
	}
	return pos, nil
}

// parseID reads a positive integer id argument.
func (c *cli) parseID(fs *flag.FlagSet, what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, c.usageError(fs, "invalid %s %q", what, s)
	}
	return id, nil
}

func (c *cli) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// printJSON writes v indented, for piping into jq.
func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// promptLine prints prompt to stderr and reads one line from stdin.
func (c *cli) promptLine(prompt string, r *lineReader) (string, error) {
	fmt.Fprint(c.errOut, prompt)
	line, err := r.next()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(prompt), ":"), err)
	}
	return line, nil
}

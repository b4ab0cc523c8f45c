// Command cinectl is the scripting CLI for cinelog. It shares the TUI's
// config, session and history, so signing in here signs in there too.
//
// Usage:
//
//	cinectl                      Show help
//	cinectl login                Sign in with email and password
//	cinectl search <query>       Search the catalog
//	cinectl list --status fav    Show your list
//	cinectl events --kind auth   Tail the event log
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/logging"
)

const usage = `cinectl - cinelog scripting CLI

Usage:
  cinectl <command> [flags] [args]

Session:
  login       Sign in (--email, --password; prompts for missing values)
  register    Create an account and sign in (--name, --email, --password)
  exchange    Finish a browser sign-in: cinectl exchange <token>
  logout      Forget the stored session
  whoami      Show the signed-in user

Catalog:
  search      Search movies by title: cinectl search <query>
  discover    Popular movies (--page)
  top         Top rated movies (--page)
  trending    Trending this week
  genre       Movies in a genre: cinectl genre <slug> (--page); no slug lists genres
  details     Movie details: cinectl details <tmdb-id>

My list:
  list        Show entries (--status all|watched|watchlist|favorite)
  add         Add a movie: cinectl add <tmdb-id> --status watched [--rating 8] [--note ...]
  update      Change an entry: cinectl update <entry-id> [--status] [--rating] [--note]
  rm          Remove an entry: cinectl rm <entry-id>

Local:
  history     Recently opened movies (--limit, --clear)
  status      Backend, session and local state
  events      JSONL event log viewer (--tail, --kind, --level, --comp, --qid, --json)

Environment:
  CINELOG_HOME       State directory (default ~/.cinelog)
  CINELOG_API_URL    Backend base URL
  CINELOG_CONFIG     Config file (default $CINELOG_HOME/config.toml)
  CINELOG_LOG_LEVEL  Log level for stderr diagnostics

Run 'cinectl <command> -h' for command-specific help.
`

// errUsage marks a command line mistake; the message has been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	name, rest := args[0], args[1:]
	c := &cli{ctx: ctx, name: name, in: stdin, out: stdout, errOut: stderr}

	var cmd func(c *cli, args []string) error
	local := false
	switch name {
	case "login":
		cmd = runLogin
	case "register":
		cmd = runRegister
	case "exchange":
		cmd = runExchange
	case "logout":
		cmd = runLogout
	case "whoami":
		cmd = runWhoami
	case "status":
		cmd = runStatus
	case "search":
		cmd = runSearch
	case "discover":
		cmd = runDiscover
	case "top":
		cmd = runTop
	case "trending":
		cmd = runTrending
	case "genre":
		cmd = runGenre
	case "details":
		cmd = runDetails
	case "list":
		cmd = runList
	case "add":
		cmd = runAdd
	case "update":
		cmd = runUpdate
	case "rm":
		cmd = runRemove
	case "history":
		cmd = runHistory
	case "events":
		// Reads the log file only; works without a backend or database.
		cmd, local = runEvents, true
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "cinectl: unknown command %q\n\n", name)
		fmt.Fprint(stderr, usage)
		return 2
	}

	if !local {
		if err := c.open(); err != nil {
			fmt.Fprintf(stderr, "cinectl: %v\n", err)
			return 1
		}
		defer c.close()
	}

	if err := cmd(c, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		logging.Debug("command failed", "cmd", name, "err", err)
		fmt.Fprintf(stderr, "cinectl %s: %s\n", name, describe(err))
		return 1
	}
	return 0
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case api.KindAuth:
		if apiErr.Status == 401 && apiErr.Op != "login" {
			return apiErr.Error() + " (run 'cinectl login')"
		}
	case api.KindNetwork:
		return apiErr.Error() + " (is the backend running? set CINELOG_API_URL)"
	}
	return apiErr.Error()
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/store"
)

// historySource tags history rows written by this CLI.
const historySource = "cinectl"

func runSearch(c *cli, args []string) error {
	fs := c.flags("<query> [--json]")
	asJSON := fs.Bool("json", false, "Output the raw results as JSON")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(pos, " "))
	if query == "" {
		return c.usageError(fs, "missing query")
	}

	results, err := c.rt.Client.Search(c.ctx, query)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(results)
	}
	if len(results) == 0 {
		c.printf("No results for %q\n", query)
		return nil
	}
	for _, r := range results {
		score := "   "
		if v, ok := r.Score(); ok {
			score = fmt.Sprintf("%.1f", v)
		}
		c.printf("%8d  %-4s  %s  %s\n", r.ID, r.Year(), score, truncate(r.Title, 60))
	}
	return nil
}

func runDiscover(c *cli, args []string) error {
	return c.moviePage(args, "discover", c.rt.Client.Discover)
}

func runTop(c *cli, args []string) error {
	return c.moviePage(args, "top", c.rt.Client.TopRated)
}

func (c *cli) moviePage(args []string, what string, fetch func(ctx context.Context, page int) ([]api.Movie, error)) error {
	fs := c.flags("[--page n] [--json]")
	page := fs.Int("page", 1, "Page number, starting at 1")
	asJSON := fs.Bool("json", false, "Output the raw page as JSON")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	if *page < 1 {
		return c.usageError(fs, "--page must be at least 1")
	}

	movies, err := fetch(c.ctx, *page)
	if err != nil {
		return err
	}
	return c.printMovies(movies, *asJSON, fmt.Sprintf("No more %s movies (page %d)", what, *page))
}

func runTrending(c *cli, args []string) error {
	fs := c.flags("[--json]")
	asJSON := fs.Bool("json", false, "Output the raw list as JSON")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	movies, err := c.rt.Client.Trending(c.ctx)
	if err != nil {
		return err
	}
	return c.printMovies(movies, *asJSON, "Nothing trending")
}

func runGenre(c *cli, args []string) error {
	fs := c.flags("<slug> [--page n] [--json]")
	page := fs.Int("page", 1, "Page number, starting at 1")
	asJSON := fs.Bool("json", false, "Output the raw page as JSON")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		c.printf("Genres:\n")
		for _, g := range api.Genres {
			c.printf("  %-16s %s\n", g.Slug, g.Name)
		}
		return nil
	}
	if len(pos) > 1 {
		return c.usageError(fs, "expected one genre, got %d", len(pos))
	}
	slug := strings.ToLower(pos[0])
	if !knownGenre(slug) {
		return c.usageError(fs, "unknown genre %q (run 'cinectl genre' for the list)", pos[0])
	}
	if *page < 1 {
		return c.usageError(fs, "--page must be at least 1")
	}

	movies, err := c.rt.Client.ByGenre(c.ctx, slug, *page)
	if err != nil {
		return err
	}
	return c.printMovies(movies, *asJSON, fmt.Sprintf("No more %s movies (page %d)", slug, *page))
}

func knownGenre(slug string) bool {
	for _, g := range api.Genres {
		if g.Slug == slug {
			return true
		}
	}
	return false
}

func (c *cli) printMovies(movies []api.Movie, asJSON bool, empty string) error {
	if asJSON {
		return c.printJSON(movies)
	}
	if len(movies) == 0 {
		c.printf("%s\n", empty)
		return nil
	}
	for _, m := range movies {
		year := ""
		if m.Year > 0 {
			year = strconv.Itoa(m.Year)
		}
		c.printf("%8d  %-4s  %4.1f  %-50s %s\n", m.TmdbID, year, m.Rating, truncate(m.Title, 50), strings.Join(m.Genres, ", "))
	}
	return nil
}

func runDetails(c *cli, args []string) error {
	fs := c.flags("<tmdb-id> [--json]")
	asJSON := fs.Bool("json", false, "Output the raw record as JSON")
	pos, err := c.exactArgs(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := c.parseID(fs, "tmdb id", pos[0])
	if err != nil {
		return err
	}

	d, err := c.rt.Client.Details(c.ctx, id)
	if err != nil {
		return err
	}
	// Opening a movie here counts as a selection, same as in the TUI.
	if err := c.rt.Store.RecordSelection(store.Selection{
		TmdbID: d.ID,
		Title:  d.Title,
		Year:   d.Year(),
		Source: historySource,
	}); err != nil {
		fmt.Fprintf(c.errOut, "warning: history not recorded: %v\n", err)
	}

	if *asJSON {
		return c.printJSON(d)
	}
	title := d.Title
	if y := d.Year(); y != "" {
		title += " (" + y + ")"
	}
	c.printf("%s\n", title)
	var facts []string
	if v := d.VoteAverage; v != nil {
		facts = append(facts, fmt.Sprintf("%.1f/10", *v))
	}
	if d.Runtime > 0 {
		facts = append(facts, fmt.Sprintf("%dh %02dm", d.Runtime/60, d.Runtime%60))
	}
	if len(d.Genres) > 0 {
		names := make([]string, len(d.Genres))
		for i, g := range d.Genres {
			names[i] = g.Name
		}
		facts = append(facts, strings.Join(names, ", "))
	}
	if len(facts) > 0 {
		c.printf("%s\n", strings.Join(facts, " · "))
	}
	if dirs := d.Directors(); len(dirs) > 0 {
		c.printf("Directed by %s\n", strings.Join(dirs, ", "))
	}
	if cast := d.TopCast(5); len(cast) > 0 {
		c.printf("Starring %s\n", strings.Join(cast, ", "))
	}
	if d.Overview != "" {
		c.printf("\n%s\n", d.Overview)
	}
	return nil
}

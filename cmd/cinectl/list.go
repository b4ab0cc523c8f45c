package main

import (
	"flag"
	"strconv"
	"strings"

	"github.com/abelbrown/cinelog/internal/api"
)

func runList(c *cli, args []string) error {
	fs := c.flags("[--status all|watched|watchlist|favorite] [--json]")
	status := fs.String("status", "all", "Only show entries with this status")
	asJSON := fs.Bool("json", false, "Output the raw entries as JSON")
	if _, err := c.exactArgs(fs, args, 0); err != nil {
		return err
	}
	st, err := api.ParseStatus(*status)
	if err != nil {
		return c.usageError(fs, "%v", err)
	}

	entries, err := c.rt.Client.UserMovies(c.ctx, st)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(entries)
	}
	if len(entries) == 0 {
		if st == "" {
			c.printf("Your list is empty\n")
		} else {
			c.printf("No %s entries\n", strings.ToLower(st.Label()))
		}
		return nil
	}
	c.printf("%6s  %8s  %-9s  %-6s  %s\n", "ENTRY", "TMDB", "STATUS", "RATING", "TITLE")
	for _, e := range entries {
		c.printf("%6d  %8d  %-9s  %-6s  %s\n", e.ID, e.TmdbID, e.Status.Label(), formatRating(e.UserRating), entryTitle(e))
	}
	return nil
}

func entryTitle(e api.UserMovie) string {
	title := e.Title
	if title == "" {
		title = "(unknown title)"
	}
	if e.PersonalNote != "" {
		title += "  # " + truncate(e.PersonalNote, 40)
	}
	return title
}

func formatRating(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r) + "/10"
}

func runAdd(c *cli, args []string) error {
	fs := c.flags("<tmdb-id> --status watched|watchlist|favorite [--rating 1-10] [--note text]")
	status := fs.String("status", "watchlist", "List to add the movie to")
	rating := fs.Int("rating", 0, "Your rating, 1-10 (0 leaves it unset)")
	note := fs.String("note", "", "Personal note")
	pos, err := c.exactArgs(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := c.parseID(fs, "tmdb id", pos[0])
	if err != nil {
		return err
	}
	st, err := api.ParseStatus(*status)
	if err != nil || st == "" {
		return c.usageError(fs, "--status must be watched, watchlist or favorite")
	}

	req := api.AddRequest{TmdbID: id, Status: st, PersonalNote: *note}
	if *rating != 0 {
		r, err := c.checkRating(fs, *rating)
		if err != nil {
			return err
		}
		req.UserRating = &r
	}

	entry, err := c.rt.Client.AddUserMovie(c.ctx, req)
	if err != nil {
		return err
	}
	c.printf("Added %s to %s (entry %d)\n", entryTitle(entry), entry.Status.Label(), entry.ID)
	return nil
}

func runUpdate(c *cli, args []string) error {
	fs := c.flags("<entry-id> [--status s] [--rating 1-10] [--note text]")
	status := fs.String("status", "", "Move the entry to this list")
	rating := fs.Int("rating", 0, "Your rating, 1-10")
	note := fs.String("note", "", "Replace the personal note")
	pos, err := c.exactArgs(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := c.parseID(fs, "entry id", pos[0])
	if err != nil {
		return err
	}

	// Only flags given on the command line become part of the request.
	var req api.UpdateRequest
	var bad error
	fs.Visit(func(f *flag.Flag) {
		if bad != nil {
			return
		}
		switch f.Name {
		case "status":
			st, err := api.ParseStatus(*status)
			if err != nil || st == "" {
				bad = c.usageError(fs, "--status must be watched, watchlist or favorite")
				return
			}
			req.Status = &st
		case "rating":
			r, err := c.checkRating(fs, *rating)
			if err != nil {
				bad = err
				return
			}
			req.UserRating = &r
		case "note":
			req.PersonalNote = note
		}
	})
	if bad != nil {
		return bad
	}
	if req.Status == nil && req.UserRating == nil && req.PersonalNote == nil {
		return c.usageError(fs, "nothing to update; pass --status, --rating or --note")
	}

	entry, err := c.rt.Client.UpdateUserMovie(c.ctx, id, req)
	if err != nil {
		return err
	}
	c.printf("Updated entry %d: %s, %s\n", entry.ID, entry.Status.Label(), formatRating(entry.UserRating))
	return nil
}

func runRemove(c *cli, args []string) error {
	fs := c.flags("<entry-id>")
	pos, err := c.exactArgs(fs, args, 1)
	if err != nil {
		return err
	}
	id, err := c.parseID(fs, "entry id", pos[0])
	if err != nil {
		return err
	}
	if err := c.rt.Client.RemoveUserMovie(c.ctx, id); err != nil {
		return err
	}
	c.printf("Removed entry %d\n", id)
	return nil
}

func (c *cli) checkRating(fs *flag.FlagSet, r int) (int, error) {
	if r < 1 || r > 10 {
		return 0, c.usageError(fs, "--rating must be between 1 and 10")
	}
	return r, nil
}

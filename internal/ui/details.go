package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/cinelog/internal/api"
)

// detailsView shows one movie. Title and year are known from the row or
// search result before the full record arrives.
type detailsView struct {
	tmdbID  int64
	title   string
	year    string
	source  string // tab or "search"
	loading bool
	details *api.MovieDetails
	err     error
}

func (d *detailsView) View(width, height int) string {
	w := width - 4
	if w > 90 {
		w = 90
	}
	if w < 20 {
		w = 20
	}
	inner := w - 6 // border and padding

	heading := d.title
	if d.details != nil && d.details.Title != "" {
		heading = d.details.Title
	}
	year := d.year
	if d.details != nil && d.details.Year() != "" {
		year = d.details.Year()
	}
	if year != "" {
		heading += " (" + year + ")"
	}

	lines := []string{PanelTitle.Render(truncateRunes(heading, inner)), ""}
	switch {
	case d.loading:
		lines = append(lines, MetaItem.Render("Loading details…"))
	case d.err != nil:
		lines = append(lines, ErrorStyle.Padding(0).Render("Could not load details: "+d.err.Error()))
	case d.details != nil:
		lines = append(lines, detailLines(*d.details, inner)...)
	}
	lines = append(lines, "", MetaItem.Render("w/l/f: add to watched/watchlist/favorite · esc: back"))

	out := Panel.Width(w).Render(strings.Join(lines, "\n"))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, out)
}

func detailLines(d api.MovieDetails, width int) []string {
	var facts []string
	if d.Runtime > 0 {
		facts = append(facts, fmt.Sprintf("%dh %02dm", d.Runtime/60, d.Runtime%60))
	}
	if d.OriginalLanguage != "" {
		facts = append(facts, strings.ToUpper(d.OriginalLanguage))
	}
	if score, ok := scoreOf(d.VoteAverage); ok {
		facts = append(facts, RatingStyle.Render(fmt.Sprintf("★ %.1f", score)))
	}
	var genres []string
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	if len(genres) > 0 {
		facts = append(facts, strings.Join(genres, ", "))
	}

	var lines []string
	if len(facts) > 0 {
		lines = append(lines, strings.Join(facts, " · "))
	}
	if dirs := d.Directors(); len(dirs) > 0 {
		lines = append(lines, MetaItem.Render("Directed by ")+strings.Join(dirs, ", "))
	}
	if cast := d.TopCast(5); len(cast) > 0 {
		lines = append(lines, MetaItem.Render("Starring ")+truncateRunes(strings.Join(cast, ", "), width-9))
	}
	if d.Overview != "" {
		lines = append(lines, "", lipgloss.NewStyle().Width(width).Render(d.Overview))
	}
	if poster, ok := api.ImageURL(d.PosterPath, api.ImageW500); ok {
		lines = append(lines, "", MetaItem.Render("Poster: ")+poster)
	}
	return lines
}

func scoreOf(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

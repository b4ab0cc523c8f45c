package ui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/store"
)

// Row is one line of a tab's list. Every tab converts its API type to Row
// in its fetch function.
type Row struct {
	TmdbID int64
	Title  string
	Year   string
	Meta   string  // genres, source or list status
	Rating float64 // 0 when unknown

	// Entry is set on the My List tab.
	Entry *api.UserMovie
}

func rowFromMovie(m api.Movie) Row {
	r := Row{TmdbID: m.TmdbID, Title: m.Title, Rating: m.Rating, Meta: strings.Join(m.Genres, ", ")}
	if m.Year > 0 {
		r.Year = strconv.Itoa(m.Year)
	}
	return r
}

func rowsFromMovies(ms []api.Movie) []Row {
	rows := make([]Row, len(ms))
	for i, m := range ms {
		rows[i] = rowFromMovie(m)
	}
	return rows
}

func rowFromUserMovie(um api.UserMovie) Row {
	r := Row{TmdbID: um.TmdbID, Title: um.Title, Rating: um.Rating, Meta: um.Status.Label()}
	if um.Year > 0 {
		r.Year = strconv.Itoa(um.Year)
	}
	if r.Title == "" {
		r.Title = fmt.Sprintf("TMDB #%d", um.TmdbID)
	}
	if um.UserRating != nil {
		r.Meta += fmt.Sprintf(" · rated %d/10", *um.UserRating)
	}
	entry := um
	r.Entry = &entry
	return r
}

func rowFromSelection(s store.Selection) Row {
	return Row{
		TmdbID: s.TmdbID,
		Title:  s.Title,
		Year:   s.Year,
		Meta:   s.Source + " · " + s.SelectedAt.Local().Format("Jan 2 15:04"),
	}
}

// renderRow renders one list line.
func renderRow(r Row, selected bool, width int) string {
	year := ""
	if r.Year != "" {
		year = " (" + r.Year + ")"
	}
	rating := ""
	if r.Rating > 0 {
		rating = fmt.Sprintf("★ %.1f", r.Rating)
	}

	// Reserve room for padding, year and rating; meta gets what is left.
	titleWidth := width - 4 - utf8.RuneCountInString(year) - utf8.RuneCountInString(rating) - 2
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := truncateRunes(r.Title, titleWidth)
	metaWidth := titleWidth - utf8.RuneCountInString(title) - 3
	meta := ""
	if metaWidth > 5 && r.Meta != "" {
		meta = "  " + truncateRunes(r.Meta, metaWidth)
	}

	if selected {
		line := title + year + meta
		pad := width - 2 - utf8.RuneCountInString(line) - utf8.RuneCountInString(rating)
		if pad < 1 {
			pad = 1
		}
		return SelectedItem.Render(line + strings.Repeat(" ", pad) + rating)
	}

	left := NormalItem.Render(title) + MetaItem.Render(year+meta)
	pad := width - lipgloss.Width(left) - utf8.RuneCountInString(rating) - 1
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + RatingStyle.Render(rating)
}

// listLines renders rows[offset:] into at most height lines.
func listLines(rows []Row, cursor, offset, width, height int) []string {
	var lines []string
	for i := offset; i < len(rows) && i < offset+height; i++ {
		lines = append(lines, renderRow(rows[i], i == cursor, width))
	}
	return lines
}

// scrollOffset returns the first visible row so that cursor stays inside a
// viewport of height rows, moving as little as possible from prev.
func scrollOffset(prev, cursor, height, total int) int {
	if height < 1 || total == 0 {
		return 0
	}
	offset := prev
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+height {
		offset = cursor - height + 1
	}
	if maxOffset := total - height; offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

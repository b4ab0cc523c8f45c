package store

import (
	"fmt"
	"time"
)

// Selection is a movie the user opened, from search or a feed.
type Selection struct {
	TmdbID     int64
	Title      string
	Year       string
	Source     string // "search", "discover", "cli", ...
	SelectedAt time.Time
}

// RecordSelection appends to the history. A zero SelectedAt means now.
// Thread-safe: acquires write lock.
func (s *Store) RecordSelection(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel.SelectedAt.IsZero() {
		sel.SelectedAt = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT INTO history (tmdb_id, title, year, source, selected_at) VALUES (?, ?, ?, ?, ?)",
		sel.TmdbID, sel.Title, sel.Year, sel.Source, sel.SelectedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}

// Recent returns the most recently selected movies, newest first, one row
// per movie.
// Thread-safe: acquires read lock.
func (s *Store) Recent(limit int) ([]Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	// The bare columns come from the row holding MAX(selected_at).
	rows, err := s.db.Query(`
		SELECT tmdb_id, title, year, source, MAX(selected_at) AS last
		FROM history
		GROUP BY tmdb_id
		ORDER BY last DESC, MAX(id) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var sel Selection
		var last any
		if err := rows.Scan(&sel.TmdbID, &sel.Title, &sel.Year, &sel.Source, &last); err != nil {
			return nil, err
		}
		t, err := parseTime(last)
		if err != nil {
			return nil, err
		}
		sel.SelectedAt = t
		out = append(out, sel)
	}
	return out, rows.Err()
}

// HistoryCount returns the number of recorded selections.
func (s *Store) HistoryCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&n)
	return n, err
}

// ClearHistory deletes every recorded selection.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// parseTime reads an aggregate DATETIME. The driver only converts declared
// column types, so MAX() comes back as text.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", t)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected time type %T", v)
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

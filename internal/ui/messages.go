// Package ui provides the Bubble Tea TUI for cinelog.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/feed"
	"github.com/abelbrown/cinelog/internal/search"
)

// searchStateMsg carries a search controller snapshot.
type searchStateMsg struct {
	state search.State[api.SearchResult]
}

// searchSelectedMsg is sent when a search result is confirmed or clicked.
type searchSelectedMsg struct {
	result api.SearchResult
}

// feedStateMsg carries a snapshot of one tab's feed.
type feedStateMsg struct {
	tab   tabKind
	state feed.State[Row]
}

// inboxMsg delivers everything posted to the inbox since the last wait.
type inboxMsg struct {
	msgs []tea.Msg
}

// DetailsLoaded is sent when the details request for a movie finishes.
type DetailsLoaded struct {
	TmdbID  int64
	Details api.MovieDetails
	Err     error
}

// AuthDone is sent when a login, registration or logout finishes.
type AuthDone struct {
	Action string // "login", "register", "logout"
	Err    error
}

// ListUpdated is sent when a change to the personal list finishes.
type ListUpdated struct {
	Note string // shown in the status bar on success
	Err  error
}

// HistoryRecorded is sent after a selection was written to the history.
type HistoryRecorded struct {
	Err error
}

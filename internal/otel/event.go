// Package otel records what cinelog does as a stream of typed events.
//
// Events are serialized one per line (JSONL) by an asynchronous Logger. An
// optional RingBuffer keeps the most recent events in memory for the TUI's
// debug overlay, and cinectl's events command reads the file back.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Rank orders levels for minimum-level filtering. Unknown levels rank as debug.
func (l Level) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Incremental search
	KindSearchStart    EventKind = "search.start"
	KindSearchComplete EventKind = "search.complete"
	KindSearchStale    EventKind = "search.stale"
	KindSearchError    EventKind = "search.error"
	KindSearchSelect   EventKind = "search.select"

	// Paginated feeds
	KindFeedPage  EventKind = "feed.page"
	KindFeedEnd   EventKind = "feed.end"
	KindFeedError EventKind = "feed.error"

	// Session
	KindAuthLogin    EventKind = "auth.login"
	KindAuthRegister EventKind = "auth.register"
	KindAuthExchange EventKind = "auth.exchange"
	KindAuthLogout   EventKind = "auth.logout"
	KindAuthError    EventKind = "auth.error"

	// HTTP
	KindAPIRequest EventKind = "api.request"

	// UI
	KindKeyPress    EventKind = "ui.key"
	KindMsgReceived EventKind = "trace.msg_received"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // "search", "feed:discover", "session", "api", "ui"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for an entire run
	QueryID   string         `json:"qid,omitempty"`        // search correlation id
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Page      int            `json:"page,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status
	Query     string         `json:"query,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := struct{ alias }{alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

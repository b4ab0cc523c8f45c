package otel

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	KindPrefix string
	MinLevel   Level
	Comp       string
	QueryID    string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.KindPrefix != "" && !strings.HasPrefix(string(e.Kind), f.KindPrefix) {
		return false
	}
	if f.MinLevel != "" && e.Level.Rank() < f.MinLevel.Rank() {
		return false
	}
	if f.Comp != "" && e.Comp != f.Comp {
		return false
	}
	if f.QueryID != "" && e.QueryID != f.QueryID {
		return false
	}
	return true
}

// Line is one decoded JSONL record together with its raw bytes.
type Line struct {
	Event Event
	Raw   []byte
}

// ReadTail scans r and returns the last n lines matching f. Lines that do
// not decode are skipped.
func ReadTail(r io.Reader, n int, f Filter) ([]Line, error) {
	if n <= 0 {
		return nil, nil
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	ring := make([]Line, 0, n)
	for sc.Scan() {
		line, ok := DecodeLine(sc.Bytes())
		if !ok || !f.Match(line.Event) {
			continue
		}
		if len(ring) < n {
			ring = append(ring, line)
			continue
		}
		copy(ring, ring[1:])
		ring[n-1] = line
	}
	return ring, sc.Err()
}

// DecodeLine parses a single JSONL record. The raw bytes are copied.
func DecodeLine(b []byte) (Line, bool) {
	b = []byte(strings.TrimRight(string(b), "\r\n"))
	if len(b) == 0 {
		return Line{}, false
	}
	var e Event
	if json.Unmarshal(b, &e) != nil {
		return Line{}, false
	}
	return Line{Event: e, Raw: b}, true
}

// Format renders an event as a single human-readable line.
func Format(e Event) string {
	lvl := strings.ToUpper(string(e.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-14s] %-18s", e.Time.Format("15:04:05.000"), lvl, e.Comp, e.Kind)}

	if e.Msg != "" {
		parts = append(parts, "- "+e.Msg)
	}
	ms := e.DurMs
	if ms == 0 && e.Dur > 0 {
		ms = e.Dur.Seconds() * 1000
	}
	if ms > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ms), ms))
	}
	if e.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", e.Page))
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", e.Count))
	}
	if e.Status > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", e.Query))
	}
	if e.QueryID != "" {
		parts = append(parts, "qid="+shortID(e.QueryID))
	}
	if e.Err != "" {
		parts = append(parts, "err="+e.Err)
	}
	return strings.Join(parts, " ")
}

func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	default:
		return 2
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindFeedPage, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindFeedPage, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindFeedError, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindSearchStart, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindSearchComplete, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindAuthLogin, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindAPIRequest, Time: time.Now()})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Stats") {
		t.Error("overlay should contain 'Stats' header")
	}
	if !strings.Contains(result, "2 pages, 0 ended, 1 errors") {
		t.Errorf("overlay should show feed stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 started, 1 complete, 0 stale") {
		t.Errorf("overlay should show search stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 sign-ins, 0 errors") {
		t.Errorf("overlay should show auth stats, got:\n%s", result)
	}
	if !strings.Contains(result, "7 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindFeedPage, Time: time.Now(), Comp: "discover", Msg: "page two"})
	ring.Push(otel.Event{Kind: otel.KindFeedError, Time: time.Now(), Err: "timeout"})
	ring.Push(otel.Event{Kind: otel.KindSearchStart, Time: time.Now(), Query: "matrix", QueryID: "abcdef1234567890"})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "[discover]") {
		t.Errorf("overlay should show the component, got:\n%s", result)
	}
	if !strings.Contains(result, "page two") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	if !strings.Contains(result, `q="matrix"`) {
		t.Errorf("overlay should show the query, got:\n%s", result)
	}
	if !strings.Contains(result, "qid:abcdef12") {
		t.Errorf("overlay should show truncated query ID, got:\n%s", result)
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindAPIRequest, Time: time.Now()})
	}

	// Very small height should still render without panic
	result := debugOverlay(ring, 80, 10)
	if result == "" {
		t.Fatal("overlay should still render with small height")
	}

	// maxHeight is 6 content lines, plus border and padding.
	if lines := strings.Count(result, "\n") + 1; lines > 6+debugPanelChrome {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestDebugToggle(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	ring.Push(otel.Event{Kind: otel.KindStartup, Time: time.Now()})

	// Nothing is fetched before Init, so the client never dials.
	app := New(Deps{Catalog: api.New("http://127.0.0.1:1", nil), Ring: ring})
	defer app.Close()
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if app.showDebug {
		t.Error("debug should be hidden initially")
	}

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'D'}})
	if !app.showDebug {
		t.Fatal("D should show debug overlay")
	}

	view := app.View()
	if !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}
	if !strings.Contains(view, string(otel.KindStartup)) {
		t.Errorf("debug view should list the startup event, got:\n%s", view)
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.showDebug {
		t.Error("esc should hide debug overlay")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "2m"}, // 1.5 minutes rounds to 2 with %.0f
		{5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		got := formatAge(tt.dur)
		if got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}

func TestFormatAgeNegative(t *testing.T) {
	got := formatAge(-5 * time.Second)
	if got != "0ms" {
		t.Errorf("formatAge(-5s) = %q, want \"0ms\"", got)
	}
}

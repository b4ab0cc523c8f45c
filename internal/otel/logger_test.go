package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindFeedPage, Level: LevelInfo, Comp: "feed:discover", Page: 2, Count: 20})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["kind"] != "feed.page" || got["level"] != "info" || got["comp"] != "feed:discover" {
		t.Errorf("unexpected record: %v", got)
	}
	if got["page"] != float64(2) || got["count"] != float64(20) {
		t.Errorf("page/count not serialized: %v", got)
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	after := time.Now()

	var evs []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatal(err)
		}
		evs = append(evs, ev)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Time.Before(before) || evs[0].Time.After(after) {
		t.Errorf("time %v outside [%v, %v]", evs[0].Time, before, after)
	}
	if len(evs[0].SessionID) != 16 {
		t.Errorf("session_id should be 16 hex chars, got %q", evs[0].SessionID)
	}
	if evs[0].SessionID != evs[1].SessionID || evs[0].SessionID != l.SessionID() {
		t.Error("session id should be stable for the logger's lifetime")
	}
}

func TestDurSerializedAsMillis(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindSearchComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	got := decodeLines(t, &buf)[0]
	if got["dur_ms"] != float64(1500) {
		t.Errorf("dur_ms = %v, want 1500", got["dur_ms"])
	}
}

func TestOmitEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()

	line := buf.String()
	for _, field := range []string{"dur_ms", "count", "page", "status", "query", "err", "msg", "extra", "qid"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("field %q should be omitted: %s", field, line)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindAPIRequest, Comp: "api"})
		}()
	}
	wg.Wait()
	l.Close()

	if n := len(decodeLines(t, &buf)); n != 100 {
		t.Errorf("expected 100 lines, got %d", n)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "x")
	l.Error(KindError, "main", errors.New("boom"))
	l.SetRingBuffer(NewRingBuffer(4))
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
	l.Close()
}

func TestCloseIsIdempotentAndDropsLateEmits(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
	if n := len(decodeLines(t, &buf)); n != 1 {
		t.Errorf("expected 1 line, got %d", n)
	}
}

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

func TestCloseClosesWriter(t *testing.T) {
	w := &closingBuffer{}
	l := NewLogger(w)
	l.Close()
	if !w.closed {
		t.Error("writer should be closed with the logger")
	}
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{started: make(chan struct{}), block: make(chan struct{})}
	l := NewLogger(bw)

	l.Emit(Event{Kind: KindAPIRequest})
	<-bw.started

	for i := 0; i < queueSize+10; i++ {
		l.Emit(Event{Kind: KindAPIRequest})
	}
	if l.Dropped() == 0 {
		t.Error("expected drops when the queue is full")
	}

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindAuthLogin, "session", "signed in")
	l.Warn(KindSearchError, "search", "timeout")
	l.Error(KindAuthError, "session", errors.New("bad credentials"))
	l.Close()

	lines := decodeLines(t, &buf)
	want := []struct{ level, kind string }{
		{"info", "auth.login"},
		{"warn", "search.error"},
		{"error", "auth.error"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, w := range want {
		if lines[i]["level"] != w.level || lines[i]["kind"] != w.kind {
			t.Errorf("line %d = %v, want %s %s", i, lines[i], w.level, w.kind)
		}
	}
	if lines[2]["err"] != "bad credentials" {
		t.Errorf("err = %v", lines[2]["err"])
	}
}

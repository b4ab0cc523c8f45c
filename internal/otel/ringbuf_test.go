package otel

import (
	"sync"
	"testing"
)

func TestPushAndSnapshot(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 0; i < 5; i++ {
		r.Push(Event{Kind: KindFeedPage, Page: i})
	}

	snap := r.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("expected 5 events, got %d", len(snap))
	}
	for i, e := range snap {
		if e.Page != i {
			t.Errorf("snap[%d].Page=%d, want %d", i, e.Page, i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 8; i++ {
		r.Push(Event{Kind: KindFeedPage, Page: i})
	}

	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 events, got %d", len(snap))
	}
	for i, e := range snap {
		if e.Page != i+4 {
			t.Errorf("snap[%d].Page=%d, want %d", i, e.Page, i+4)
		}
	}
}

func TestLast(t *testing.T) {
	tests := []struct {
		name   string
		pushes int
		n      int
		want   []int
	}{
		{"within", 8, 3, []int{5, 6, 7}},
		{"wrapped", 6, 2, []int{4, 5}},
		{"more than count", 2, 100, []int{0, 1}},
		{"zero", 3, 0, nil},
		{"negative", 3, -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRingBuffer(4)
			for i := 0; i < tt.pushes; i++ {
				r.Push(Event{Kind: KindFeedPage, Page: i})
			}
			got := r.Last(tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("Last(%d) returned %d events, want %d", tt.n, len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Page != tt.want[i] {
					t.Errorf("got[%d].Page = %d, want %d", i, e.Page, tt.want[i])
				}
			}
		})
	}
}

func TestSelect(t *testing.T) {
	r := NewRingBuffer(16)
	r.Push(Event{Kind: KindSearchStart, QueryID: "a"})
	r.Push(Event{Kind: KindFeedPage})
	r.Push(Event{Kind: KindSearchComplete, QueryID: "a"})
	r.Push(Event{Kind: KindSearchStart, QueryID: "b"})
	r.Push(Event{Kind: KindSearchStale, QueryID: "a"})

	got := r.Select(10, Filter{KindPrefix: "search", QueryID: "a"})
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Kind != KindSearchStart || got[2].Kind != KindSearchStale {
		t.Errorf("wrong order: %v", got)
	}

	if got := r.Select(1, Filter{KindPrefix: "search"}); len(got) != 1 || got[0].Kind != KindSearchStale {
		t.Errorf("Select(1) should return the newest match, got %v", got)
	}
}

func TestStats(t *testing.T) {
	r := NewRingBuffer(16)
	for _, k := range []EventKind{KindSearchStart, KindSearchStart, KindSearchComplete, KindFeedError, KindFeedError, KindFeedError} {
		r.Push(Event{Kind: k})
	}

	stats := r.Stats()
	if stats[KindSearchStart] != 2 || stats[KindSearchComplete] != 1 || stats[KindFeedError] != 3 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestConcurrentPushSnapshot(t *testing.T) {
	r := NewRingBuffer(256)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindAPIRequest})
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.Snapshot()
				_ = r.Last(10)
				_ = r.Stats()
			}
		}()
	}
	wg.Wait()

	if r.Len() != 256 {
		t.Errorf("Len() = %d, want 256", r.Len())
	}
}

func TestEmptyAndCapacity(t *testing.T) {
	r := NewRingBuffer(0)
	if r.Snapshot() != nil {
		t.Error("empty snapshot should be nil")
	}
	if r.Cap() != DefaultRingSize {
		t.Errorf("Cap() = %d, want %d", r.Cap(), DefaultRingSize)
	}

	r = NewRingBuffer(4)
	for i := 0; i < 10; i++ {
		r.Push(Event{Kind: KindAPIRequest})
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
}

func TestExtraIsCopied(t *testing.T) {
	r := NewRingBuffer(4)
	extra := map[string]any{"tab": "discover"}
	r.Push(Event{Kind: KindKeyPress, Extra: extra})

	extra["tab"] = "mutated"

	if got := r.Snapshot()[0].Extra["tab"]; got != "discover" {
		t.Errorf("extra was aliased: got %v", got)
	}
}

func TestRingBufferFedByLogger(t *testing.T) {
	r := NewRingBuffer(16)
	l := NewNullLogger()
	l.SetRingBuffer(r)

	l.Emit(Event{Kind: KindStartup, Msg: "hello"})
	l.Emit(Event{Kind: KindShutdown, Msg: "bye"})
	l.Close()

	last := r.Last(2)
	if len(last) != 2 || last[0].Kind != KindStartup || last[1].Kind != KindShutdown {
		t.Errorf("unexpected ring contents: %v", last)
	}
}

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// inbox hands messages from controller goroutines to the Bubble Tea loop.
// Messages posted under the same key replace each other, so a burst of
// snapshots from one controller is delivered as its latest state. Posting
// never blocks.
type inbox struct {
	mu      sync.Mutex
	pending []inboxEntry
	signal  chan struct{}
	done    chan struct{}
	once    sync.Once
}

type inboxEntry struct {
	key string
	msg tea.Msg
}

func newInbox() *inbox {
	return &inbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// post queues msg. A non-empty key replaces any queued message with the
// same key, keeping its position.
func (b *inbox) post(key string, msg tea.Msg) {
	b.mu.Lock()
	replaced := false
	if key != "" {
		for i := range b.pending {
			if b.pending[i].key == key {
				b.pending[i].msg = msg
				replaced = true
				break
			}
		}
	}
	if !replaced {
		b.pending = append(b.pending, inboxEntry{key: key, msg: msg})
	}
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// wait returns a command that blocks until something is posted and then
// delivers all of it as one inboxMsg. It returns nil after close.
func (b *inbox) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.signal:
		case <-b.done:
			return nil
		}
		return inboxMsg{msgs: b.drain()}
	}
}

func (b *inbox) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := make([]tea.Msg, len(b.pending))
	for i, e := range b.pending {
		msgs[i] = e.msg
	}
	b.pending = nil
	return msgs
}

func (b *inbox) close() {
	b.once.Do(func() { close(b.done) })
}

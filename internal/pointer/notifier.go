// Package pointer is a process-wide broadcaster of pointer and focus events.
// Components that close on an outside click subscribe while mounted and
// release the subscription when unmounted.
package pointer

import "sync"

// Kind is the type of pointer event.
type Kind int

const (
	// Press is a mouse button press.
	Press Kind = iota + 1
	// Focus is keyboard focus moving to another component.
	Focus
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Focus:
		return "focus"
	default:
		return "unknown"
	}
}

// Event is a pointer or focus event in terminal cell coordinates. Focus
// events carry the cell of the component receiving focus, or (-1, -1).
type Event struct {
	Kind Kind
	X, Y int
}

// Handler receives events.
type Handler func(Event)

// Notifier fans events out to subscribers. The zero value is not usable;
// call NewNotifier.
type Notifier struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
	order    []uint64
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[uint64]Handler)}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (n *Notifier) Subscribe(fn Handler) (unsubscribe func()) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.handlers[id] = fn
	n.order = append(n.order, id)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, id)
	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Publish delivers e synchronously, in subscription order, to the handlers
// registered when Publish was called. Handlers may subscribe or unsubscribe
// from inside a callback.
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.order))
	for _, id := range n.order {
		handlers = append(handlers, n.handlers[id])
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Len returns the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}

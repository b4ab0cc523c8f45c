package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	n := NewNotifier()
	var got []string
	n.Subscribe(func(e Event) { got = append(got, "a:"+e.Kind.String()) })
	n.Subscribe(func(e Event) { got = append(got, "b:"+e.Kind.String()) })

	n.Publish(Event{Kind: Press, X: 3, Y: 4})
	assert.Equal(t, []string{"a:press", "b:press"}, got)
}

func TestUnsubscribe(t *testing.T) {
	n := NewNotifier()
	calls := 0
	unsub := n.Subscribe(func(Event) { calls++ })
	other := 0
	n.Subscribe(func(Event) { other++ })

	n.Publish(Event{Kind: Focus})
	unsub()
	unsub()
	n.Publish(Event{Kind: Focus})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
	assert.Equal(t, 1, n.Len())
}

func TestUnsubscribeFromInsideHandler(t *testing.T) {
	n := NewNotifier()
	calls := 0
	var unsub func()
	unsub = n.Subscribe(func(Event) {
		calls++
		unsub()
	})

	n.Publish(Event{Kind: Press})
	n.Publish(Event{Kind: Press})
	assert.Equal(t, 1, calls)
	assert.Zero(t, n.Len())
}

func TestSubscribeDuringPublishSeesNextEvent(t *testing.T) {
	n := NewNotifier()
	late := 0
	added := false
	n.Subscribe(func(Event) {
		if !added {
			added = true
			n.Subscribe(func(Event) { late++ })
		}
	})

	n.Publish(Event{Kind: Press})
	assert.Equal(t, 0, late, "new subscription must not see the event being delivered")
	n.Publish(Event{Kind: Press})
	assert.Equal(t, 1, late)
}

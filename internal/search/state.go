package search

// Direction is a highlight movement.
type Direction int

const (
	Next Direction = iota + 1
	Previous
)

// State is a snapshot of the controller. Results is a copy owned by the
// receiver.
//
// Highlighted is -1 or a valid index into Results, and Open is false
// whenever Results is empty. Rev increases with every transition so a
// consumer receiving snapshots from several goroutines can drop older ones.
type State[T any] struct {
	Query       string
	Results     []T
	Open        bool
	Loading     bool
	Highlighted int
	Rev         uint64
}

// HighlightedItem returns the highlighted result, if any.
func (s State[T]) HighlightedItem() (T, bool) {
	var zero T
	if s.Highlighted < 0 || s.Highlighted >= len(s.Results) {
		return zero, false
	}
	return s.Results[s.Highlighted], true
}

// Phase names the keyboard state machine state.
type Phase int

const (
	Closed Phase = iota
	OpenNoHighlight
	OpenHighlighted
)

// Phase reports which keyboard state s is in.
func (s State[T]) Phase() Phase {
	switch {
	case !s.Open:
		return Closed
	case s.Highlighted < 0:
		return OpenNoHighlight
	default:
		return OpenHighlighted
	}
}

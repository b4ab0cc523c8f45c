package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read on every TUI message, so it is an atomic set once at
// init (tests flip it with setTraceEnabled).
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("CINELOG_TRACE") != "")
}

// TraceEnabled reports whether CINELOG_TRACE is set. When true the TUI emits
// a trace.msg_received event for every Bubble Tea message.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}

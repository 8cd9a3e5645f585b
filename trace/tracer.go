package trace

import (
	"fmt"
	"io"
	"loom/types"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Tracer writes a line-oriented execution log for a running task: verb
// calls/returns/exceptions, notify() output, and connection events. It
// exists for interactive debugging ("trace foo*") rather than
// production telemetry, so it deliberately has no levels or structured
// fields — just grep-able text on an io.Writer.
type Tracer struct {
	enabled bool
	filters []string
	out     io.Writer
	mu      sync.Mutex
}

var active *Tracer

// Init installs the process-wide tracer. A nil writer defaults to stderr.
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	active = &Tracer{enabled: enabled, filters: filters, out: writer}
}

// IsEnabled reports whether the process-wide tracer is on.
func IsEnabled() bool {
	return active != nil && active.enabled
}

// watches reports whether verbName matches one of the tracer's glob
// filters. An empty filter set watches every verb.
func (t *Tracer) watches(verbName string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if ok, _ := filepath.Match(pattern, verbName); ok {
			return true
		}
	}
	return false
}

// emit writes a formatted trace line under the tracer's lock, guarding
// against interleaved output from concurrently running tasks.
func (t *Tracer) emit(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// VerbCall logs entry into a verb.
func (t *Tracer) VerbCall(objID types.ObjID, verbName string, args []types.Value, player types.ObjID, caller types.ObjID) {
	if !t.enabled || !t.watches(verbName) {
		return
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	t.emit("[TRACE] CALL #%d:%s args=[%s] player=#%d caller=#%d\n",
		objID, verbName, strings.Join(parts, ", "), player, caller)
}

// VerbReturn logs a verb's return value.
func (t *Tracer) VerbReturn(objID types.ObjID, verbName string, result types.Value) {
	if !t.enabled || !t.watches(verbName) {
		return
	}
	resultStr := "0"
	if result != nil {
		resultStr = result.String()
	}
	t.emit("[TRACE] RETURN #%d:%s => %s\n", objID, verbName, resultStr)
}

// Exception logs a verb raising an uncaught error.
func (t *Tracer) Exception(objID types.ObjID, verbName string, err types.ErrorCode) {
	if !t.enabled || !t.watches(verbName) {
		return
	}
	t.emit("[TRACE] EXCEPTION #%d:%s %s\n", objID, verbName, types.NewErr(err).String())
}

// traceNotifyPreviewLen caps how much of a notify() message is echoed to
// the trace log before truncation, keeping long output readable.
const traceNotifyPreviewLen = 57

// Notify logs a notify() call, truncating long messages for readability.
func (t *Tracer) Notify(player types.ObjID, message string) {
	if !t.enabled {
		return
	}
	preview := message
	if len(preview) > traceNotifyPreviewLen+3 {
		preview = preview[:traceNotifyPreviewLen] + "..."
	}
	t.emit("[TRACE]   NOTIFY #%d %q\n", player, preview)
}

// Connection logs a connection lifecycle event (accept, login, close, ...).
func (t *Tracer) Connection(event string, connID int64, player types.ObjID, details string) {
	if !t.enabled {
		return
	}
	if details == "" {
		t.emit("[TRACE] CONN %s conn=%d player=#%d\n", event, connID, player)
		return
	}
	t.emit("[TRACE] CONN %s conn=%d player=#%d %s\n", event, connID, player, details)
}

// The package-level functions below forward to the process-wide tracer
// installed by Init, so callers needn't thread a *Tracer through every
// interpreter call; they're no-ops before Init or once disabled.

func VerbCall(objID types.ObjID, verbName string, args []types.Value, player types.ObjID, caller types.ObjID) {
	if active != nil {
		active.VerbCall(objID, verbName, args, player, caller)
	}
}

func VerbReturn(objID types.ObjID, verbName string, result types.Value) {
	if active != nil {
		active.VerbReturn(objID, verbName, result)
	}
}

func Exception(objID types.ObjID, verbName string, err types.ErrorCode) {
	if active != nil {
		active.Exception(objID, verbName, err)
	}
}

func Notify(player types.ObjID, message string) {
	if active != nil {
		active.Notify(player, message)
	}
}

func Connection(event string, connID int64, player types.ObjID, details string) {
	if active != nil {
		active.Connection(event, connID, player, details)
	}
}

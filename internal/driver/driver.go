// Package driver defines the debugger-agnostic capability surface spec.md
// §4.C/§9 calls out as the variant boundary: start/stop the child process
// and drive it through the handful of typed operations the dispatcher
// forwards. The only implementation today is internal/driver/lldb; a Node,
// Java or Python variant is a new implementation of this interface, not a
// change to the dispatcher.
package driver

import (
	"context"
	"time"
)

// Debugger is the capability set every debugger backend must provide.
type Debugger interface {
	// Start spawns debuggerCommand with runArgs and performs whatever
	// handshake the backend needs before it is ready to serve requests.
	Start(ctx context.Context, debuggerCommand string, runArgs []string) error
	HasStarted() bool
	// Stop asks the child process to exit. Idempotent.
	Stop()
	// Terminal reports whether the driver has observed a timeout, a
	// classifier desync, or a child exit and must fail fast from now on.
	Terminal() bool
	// TimedOut returns a channel that is closed the moment a rendezvous
	// wait exceeds its timeout. Per spec.md §7, a timeout (unlike a plain
	// child exit) is fatal to the whole process, not just the driver: the
	// caller is expected to select on this channel and exit(1) when it
	// closes, mirroring original_source/padre/src/debugger/lldb.rs's
	// check_response calling exit(1) directly.
	TimedOut() <-chan struct{}

	Run() (pid uint32, err error)
	Breakpoint(file string, line uint32) (pending bool, err error)
	StepIn() error
	StepOver() error
	ContinueOn() error
	Print(variable string) (value, typ string, err error)

	// SetTimeout overrides the rendezvous timeout at runtime (SPEC_FULL.md
	// §10's setConfig timeout_ms knob).
	SetTimeout(d time.Duration)
}

// DefaultTimeout is the rendezvous timeout from spec.md §4.C.
const DefaultTimeout = 5000 * time.Millisecond

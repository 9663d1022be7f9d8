package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-lang/vim-padre/internal/notifier"
	"github.com/steven-lang/vim-padre/internal/padreerr"
	"github.com/steven-lang/vim-padre/internal/protocol"
)

// fakeDebugger is a scripted driver.Debugger used to exercise the
// dispatcher's routing without spawning a real LLDB child.
type fakeDebugger struct {
	runPid        uint32
	runErr        error
	breakPending  bool
	breakErr      error
	printValue    string
	printType     string
	printErr      error
	lastTimeout   time.Duration
	stepErr       error
}

func (f *fakeDebugger) Start(context.Context, string, []string) error { return nil }
func (f *fakeDebugger) HasStarted() bool                              { return true }
func (f *fakeDebugger) Stop()                                         {}
func (f *fakeDebugger) Terminal() bool                                { return false }
func (f *fakeDebugger) TimedOut() <-chan struct{}                     { return nil }
func (f *fakeDebugger) Run() (uint32, error)                          { return f.runPid, f.runErr }
func (f *fakeDebugger) Breakpoint(string, uint32) (bool, error)       { return f.breakPending, f.breakErr }
func (f *fakeDebugger) StepIn() error                                 { return f.stepErr }
func (f *fakeDebugger) StepOver() error                               { return f.stepErr }
func (f *fakeDebugger) ContinueOn() error                             { return f.stepErr }
func (f *fakeDebugger) Print(string) (string, string, error)          { return f.printValue, f.printType, f.printErr }
func (f *fakeDebugger) SetTimeout(d time.Duration)                    { f.lastTimeout = d }

func TestDispatchPing(t *testing.T) {
	d := New(notifier.New(), &fakeDebugger{})
	resp := d.Dispatch(protocol.Request{ID: 1, Cmd: protocol.Command{Kind: protocol.CmdPing}})
	assert.Equal(t, uint64(1), resp.ID)
	assert.Equal(t, map[string]any{"status": "OK", "ping": "pong"}, resp.Value)
}

func TestDispatchPingsEmitsLogAndBroadcasts(t *testing.T) {
	n := notifier.New()
	c := notifier.NewClient("a")
	n.AddListener(c)
	d := New(n, &fakeDebugger{})

	resp := d.Dispatch(protocol.Request{ID: 2, Cmd: protocol.Command{Kind: protocol.CmdPings}})
	assert.Equal(t, map[string]any{"status": "OK"}, resp.Value)

	note := (<-c.Outbox).(protocol.Notification)
	assert.Equal(t, "padre#debugger#Log", note.Cmd)
	assert.Equal(t, []any{int(protocol.LogInfo), "pong"}, note.Args)
}

func TestDispatchRunReturnsPid(t *testing.T) {
	fake := &fakeDebugger{runPid: 1234}
	d := New(notifier.New(), fake)
	resp := d.Dispatch(protocol.Request{ID: 7, Cmd: protocol.Command{Kind: protocol.CmdRun}})
	assert.Equal(t, map[string]any{"status": "OK", "pid": uint32(1234)}, resp.Value)
}

func TestDispatchBreakpointPending(t *testing.T) {
	fake := &fakeDebugger{breakPending: true}
	d := New(notifier.New(), fake)
	resp := d.Dispatch(protocol.Request{ID: 3, Cmd: protocol.Command{Kind: protocol.CmdBreakpoint, File: "main.c", Line: 42}})
	assert.Equal(t, map[string]any{"status": "PENDING"}, resp.Value)
}

func TestDispatchPrintIncludesRequestedVariableName(t *testing.T) {
	fake := &fakeDebugger{printValue: "7", printType: "int"}
	d := New(notifier.New(), fake)
	resp := d.Dispatch(protocol.Request{ID: 4, Cmd: protocol.Command{Kind: protocol.CmdPrint, Variable: "x"}})
	assert.Equal(t, map[string]any{"status": "OK", "variable": "x", "value": "7", "type": "int"}, resp.Value)
}

func TestDispatchPropagatesDriverErrorAsErrorResponse(t *testing.T) {
	fake := &fakeDebugger{runErr: padreerr.New(padreerr.KindProtocolMismatch, "run: expected ProcessStarted, got None")}
	d := New(notifier.New(), fake)
	resp := d.Dispatch(protocol.Request{ID: 9, Cmd: protocol.Command{Kind: protocol.CmdRun}})
	value := resp.Value.(map[string]any)
	assert.Equal(t, "ERROR", value["status"])
	assert.Contains(t, value["message"], "ProtocolMismatch")
}

func TestDispatchSetConfigAppliesTimeout(t *testing.T) {
	fake := &fakeDebugger{}
	d := New(notifier.New(), fake)
	resp := d.Dispatch(protocol.Request{ID: 5, Cmd: protocol.Command{Kind: protocol.CmdSetConfig, Config: []byte(`{"timeout_ms":1500}`)}})
	assert.Equal(t, map[string]any{"status": "OK"}, resp.Value)
	assert.Equal(t, 1500*time.Millisecond, fake.lastTimeout)
}

func TestDetectExplicitDebuggerTypeWins(t *testing.T) {
	kind, resolved, err := Detect("lldb", "/bin/true")
	require.NoError(t, err)
	assert.Equal(t, "lldb", kind)
	assert.Equal(t, "/bin/true", resolved)
}

// Package lldb implements the driver.Debugger capability set against a
// spawned lldb child process, per spec.md §4.C. It is the hardest component
// in the system: it bridges LLDB's line-oriented, asynchronous stdout with
// a synchronous request/response API via a single mutex+condition-variable
// rendezvous slot, exactly as spec.md's design notes (§9) prescribe — "keep
// the big lock around a condition variable, it is the natural shape of a
// half-duplex text protocol".
package lldb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/steven-lang/vim-padre/internal/driver"
	"github.com/steven-lang/vim-padre/internal/notifier"
	"github.com/steven-lang/vim-padre/internal/padreerr"
	"github.com/steven-lang/vim-padre/internal/protocol"
)

// writerQueueCapacity is the bounded backpressure queue from spec.md §9: a
// misbehaving client that spams the debugger stalls on this queue rather
// than growing memory without bound.
const writerQueueCapacity = 512

var _ driver.Debugger = (*Driver)(nil)

// Driver is the LLDB-backed Debugger. Exactly one exists per process
// (spec.md §3's Debugger Session is a process-lifetime singleton).
type Driver struct {
	notifier *notifier.Notifier

	cmd   *exec.Cmd
	stdin io.WriteCloser
	queue chan string

	mu       sync.Mutex
	cond     *sync.Cond
	status   protocol.Status
	lastOp   protocol.CommandKind
	started  atomic.Bool
	terminal atomic.Bool
	timeout  atomic.Int64

	timedOutCh   chan struct{}
	timedOutOnce sync.Once

	stopOnce sync.Once
}

// New returns an LLDB driver that will publish classifier side effects
// (breakpoint hits, jumps, process exits, stderr lines) through n.
func New(n *notifier.Notifier) *Driver {
	d := &Driver{
		notifier:   n,
		queue:      make(chan string, writerQueueCapacity),
		timedOutCh: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.timeout.Store(int64(driver.DefaultTimeout))
	return d
}

// TimedOut implements driver.Debugger: it is closed the first time a
// rendezvous wait exceeds its timeout, per spec.md §7's "process exits" rule
// for TimedOut (unlike ChildExited, which only marks the driver terminal).
func (d *Driver) TimedOut() <-chan struct{} { return d.timedOutCh }

// SetTimeout overrides the rendezvous timeout for every subsequent command.
func (d *Driver) SetTimeout(dur time.Duration) {
	if dur <= 0 {
		return
	}
	d.timeout.Store(int64(dur))
}

// Start spawns debuggerCommand with runArgs, wires its three I/O pumps, and
// sends the three initial configuration commands spec.md §4.C requires
// before the classifier's regexes are guaranteed to match.
func (d *Driver) Start(ctx context.Context, debuggerCommand string, runArgs []string) error {
	cmd := exec.CommandContext(ctx, debuggerCommand, runArgs...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return padreerr.Wrap(padreerr.KindChildExited, err, "open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return padreerr.Wrap(padreerr.KindChildExited, err, "open stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return padreerr.Wrap(padreerr.KindChildExited, err, "open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return padreerr.Wrap(padreerr.KindChildExited, err, "start debugger child process")
	}

	d.cmd = cmd
	d.stdin = stdin

	go d.pumpWriter()
	go d.pumpStdout(stdout)
	go d.pumpStderr(stderr)

	d.queue <- "settings set stop-line-count-after 0"
	d.queue <- "settings set stop-line-count-before 0"
	d.queue <- "settings set frame-format frame #${frame.index}: " +
		"{${module.file.basename}{`${function.name-with-args}{${frame.no-debug}${function.pc-offset}}}}" +
		"{ at ${line.file.fullpath}:${line.number}}\\n"

	d.started.Store(true)
	logger.InfoKV("lldb driver started", "command", debuggerCommand, "args", runArgs)
	return nil
}

// HasStarted reports whether Start completed the handshake.
func (d *Driver) HasStarted() bool { return d.started.Load() }

// Terminal reports whether a timeout, classifier desync, or child exit has
// made this driver permanently unusable (spec.md §3 invariant).
func (d *Driver) Terminal() bool { return d.terminal.Load() }

// Stop requests a clean shutdown. Idempotent; later sends after the first
// call may fail and are swallowed, per spec.md §4.C.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		select {
		case d.queue <- "quit":
		default:
			logger.WarnKV("lldb stop: writer queue full, dropping quit command")
		}
	})
}

func (d *Driver) pumpWriter() {
	for line := range d.queue {
		if d.stdin == nil {
			continue
		}
		if _, err := fmt.Fprintf(d.stdin, "%s\n", line); err != nil {
			logger.DebugKV("lldb stdin write failed, swallowing", "error", err)
		}
	}
}

func (d *Driver) pumpStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		res := classify(line, d.currentOp())

		if res.BreakpointSet != nil {
			d.notifier.BreakpointSet(res.BreakpointSet.File, res.BreakpointSet.Line)
		}
		if res.Jump != nil {
			d.notifier.JumpToPosition(res.Jump.File, res.Jump.Line)
		}
		if res.Exited {
			d.notifier.SignalExited(res.ExitedPid, res.ExitedCode)
			d.terminal.Store(true)
		}
		if res.Status.Kind != "" {
			d.setStatus(res.Status)
		}
	}
}

func (d *Driver) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		d.notifier.LogMsg(protocol.LogWarn, scanner.Text())
	}
}

func (d *Driver) currentOp() protocol.CommandKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastOp
}

func (d *Driver) setStatus(s protocol.Status) {
	d.mu.Lock()
	d.status = s
	d.cond.Broadcast()
	d.mu.Unlock()
}

// checkResponse is the request/status rendezvous spec.md §4.C describes: it
// resets the slot, enqueues the command, and waits for the classifier to
// wake it, bounded by the configured timeout.
func (d *Driver) checkResponse(cmdLine string, opHint protocol.CommandKind) (protocol.Status, error) {
	if d.Terminal() {
		return protocol.Status{}, padreerr.New(padreerr.KindChildExited, "debugger is no longer usable")
	}

	d.mu.Lock()
	d.status = protocol.Status{Kind: protocol.StatusNone}
	d.lastOp = opHint

	timedOut := false
	timer := time.AfterFunc(time.Duration(d.timeout.Load()), func() {
		d.mu.Lock()
		timedOut = true
		d.cond.Broadcast()
		d.mu.Unlock()
	})

	d.queue <- cmdLine

	for d.status.None() && !timedOut {
		d.cond.Wait()
	}
	timer.Stop()
	status := d.status
	d.mu.Unlock()

	if timedOut && status.None() {
		d.notifier.LogMsg(protocol.LogCritical, fmt.Sprintf("Timed out waiting for condition: %s", cmdLine))
		d.terminal.Store(true)
		d.timedOutOnce.Do(func() { close(d.timedOutCh) })
		return protocol.Status{}, padreerr.New(padreerr.KindTimedOut, fmt.Sprintf("timed out waiting for condition: %s", cmdLine))
	}
	return status, nil
}

// Run implements driver.Debugger.
func (d *Driver) Run() (uint32, error) {
	if _, err := d.checkResponse("break set --name main", protocol.CmdRun); err != nil {
		return 0, err
	}
	status, err := d.checkResponse("process launch", protocol.CmdRun)
	if err != nil {
		return 0, err
	}
	if status.Kind != protocol.StatusProcessStarted || len(status.Args) < 1 {
		return 0, padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("run: expected ProcessStarted, got %s", status.Kind))
	}
	pid, _ := strconv.ParseUint(status.Args[0], 10, 32)
	return uint32(pid), nil
}

// Breakpoint implements driver.Debugger. It returns pending=true when LLDB
// reports the breakpoint has no locations yet.
func (d *Driver) Breakpoint(file string, line uint32) (bool, error) {
	status, err := d.checkResponse(fmt.Sprintf("break set --file %s --line %d", file, line), protocol.CmdBreakpoint)
	if err != nil {
		return false, err
	}
	switch status.Kind {
	case protocol.StatusBreakpoint:
		return false, nil
	case protocol.StatusBreakpointPend:
		return true, nil
	default:
		return false, padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("breakpoint: unexpected status %s", status.Kind))
	}
}

// StepIn implements driver.Debugger.
func (d *Driver) StepIn() error {
	status, err := d.checkResponse("thread step-in", protocol.CmdStepIn)
	if err != nil {
		return err
	}
	if status.Kind != protocol.StatusStepIn {
		return padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("stepIn: unexpected status %s", status.Kind))
	}
	return nil
}

// StepOver implements driver.Debugger.
func (d *Driver) StepOver() error {
	status, err := d.checkResponse("thread step-over", protocol.CmdStepOver)
	if err != nil {
		return err
	}
	if status.Kind != protocol.StatusStepOver {
		return padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("stepOver: unexpected status %s", status.Kind))
	}
	return nil
}

// ContinueOn implements driver.Debugger.
func (d *Driver) ContinueOn() error {
	status, err := d.checkResponse("thread continue", protocol.CmdContinue)
	if err != nil {
		return err
	}
	if status.Kind != protocol.StatusContinue {
		return padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("continue: unexpected status %s", status.Kind))
	}
	return nil
}

// Print implements driver.Debugger.
func (d *Driver) Print(variable string) (value, typ string, err error) {
	status, err := d.checkResponse(fmt.Sprintf("frame variable %s", variable), protocol.CmdPrint)
	if err != nil {
		return "", "", err
	}
	if status.Kind != protocol.StatusVariable || len(status.Args) < 3 {
		return "", "", padreerr.New(padreerr.KindProtocolMismatch, fmt.Sprintf("print: unexpected status %s", status.Kind))
	}
	return status.Args[1], status.Args[2], nil
}

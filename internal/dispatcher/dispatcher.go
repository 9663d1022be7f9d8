// Package dispatcher implements spec.md §4.D: it autodetects the debugger
// kind from the target program, owns the one Debugger instance for the
// process lifetime, answers Ping/Pings/SetConfig directly, and serializes
// every other typed request onto the driver (which, per spec.md §4.C,
// services exactly one command at a time).
package dispatcher

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/steven-lang/vim-padre/internal/driver"
	"github.com/steven-lang/vim-padre/internal/notifier"
	"github.com/steven-lang/vim-padre/internal/padreerr"
	"github.com/steven-lang/vim-padre/internal/protocol"
)

// Detect resolves which debugger backend should drive programPath, per
// spec.md §4.D. An explicit debuggerType always wins; otherwise the target
// is resolved against PATH and classified with the host `file -L` utility.
func Detect(debuggerType, programPath string) (string, string, error) {
	if debuggerType != "" {
		return debuggerType, programPath, nil
	}

	resolved := programPath
	if p, err := exec.LookPath(programPath); err == nil {
		resolved = p
	}

	out, err := exec.Command("file", "-L", resolved).Output()
	if err != nil {
		return "", "", padreerr.Wrap(padreerr.KindUnknownDebugger, err, "run file(1) on target program")
	}

	output := string(out)
	name := filepath.Base(resolved)
	if strings.Contains(output, "ELF") || strings.Contains(name, "lldb") {
		return "lldb", resolved, nil
	}

	// Reserved for future: ASCII/UTF-8 output + ".js" suffix, or name "node"
	// on an ELF binary, would resolve to "node" here (spec.md §4.D design
	// note). Not implemented speculatively.

	return "", "", padreerr.New(padreerr.KindUnknownDebugger, "no debugger rule matched "+resolved)
}

// Dispatcher routes decoded commands to either a direct local answer or the
// debugger driver, per spec.md §4.D.
type Dispatcher struct {
	notifier *notifier.Notifier
	debugger driver.Debugger

	// mu serializes every typed operation sent to the driver: the driver's
	// rendezvous slot only ever holds one in-flight command.
	mu sync.Mutex
}

// New returns a Dispatcher that answers local commands through n and
// forwards typed operations to dbg.
func New(n *notifier.Notifier, dbg driver.Debugger) *Dispatcher {
	return &Dispatcher{notifier: n, debugger: dbg}
}

// Start launches the underlying driver against debuggerCommand/runArgs.
func (d *Dispatcher) Start(ctx context.Context, debuggerCommand string, runArgs []string) error {
	return d.debugger.Start(ctx, debuggerCommand, runArgs)
}

// Stop asks the underlying driver to shut down.
func (d *Dispatcher) Stop() { d.debugger.Stop() }

// Dispatch turns one decoded Request into a Response, per the routing table
// in spec.md §4.D and the wire shapes in spec.md §8's testable properties.
func (d *Dispatcher) Dispatch(req protocol.Request) protocol.Response {
	switch req.Cmd.Kind {
	case protocol.CmdPing:
		return protocol.Response{ID: req.ID, Value: map[string]any{"status": "OK", "ping": "pong"}}

	case protocol.CmdPings:
		d.notifier.LogMsg(protocol.LogInfo, "pong")
		return protocol.Response{ID: req.ID, Value: map[string]any{"status": "OK"}}

	case protocol.CmdSetConfig:
		return protocol.Response{ID: req.ID, Value: d.setConfig(req.Cmd.Config)}

	case protocol.CmdRun:
		return d.runOp(req.ID)

	case protocol.CmdBreakpoint:
		return d.breakpointOp(req)

	case protocol.CmdStepIn:
		return d.simpleOp(req.ID, d.debugger.StepIn)

	case protocol.CmdStepOver:
		return d.simpleOp(req.ID, d.debugger.StepOver)

	case protocol.CmdContinue:
		return d.simpleOp(req.ID, d.debugger.ContinueOn)

	case protocol.CmdPrint:
		return d.printOp(req)

	default:
		return errResponse(req.ID, padreerr.New(padreerr.KindProtocolMismatch, "unhandled command kind"))
	}
}

func (d *Dispatcher) runOp(id uint64) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	pid, err := d.debugger.Run()
	if err != nil {
		return errResponse(id, err)
	}
	return protocol.Response{ID: id, Value: map[string]any{"status": "OK", "pid": pid}}
}

func (d *Dispatcher) breakpointOp(req protocol.Request) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending, err := d.debugger.Breakpoint(req.Cmd.File, req.Cmd.Line)
	if err != nil {
		return errResponse(req.ID, err)
	}
	status := "OK"
	if pending {
		status = "PENDING"
	}
	return protocol.Response{ID: req.ID, Value: map[string]any{"status": status}}
}

func (d *Dispatcher) simpleOp(id uint64, op func() error) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := op(); err != nil {
		return errResponse(id, err)
	}
	return protocol.Response{ID: id, Value: map[string]any{"status": "OK"}}
}

func (d *Dispatcher) printOp(req protocol.Request) protocol.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	value, typ, err := d.debugger.Print(req.Cmd.Variable)
	if err != nil {
		return errResponse(req.ID, err)
	}
	return protocol.Response{ID: req.ID, Value: map[string]any{
		"status":   "OK",
		"variable": req.Cmd.Variable,
		"value":    value,
		"type":     typ,
	}}
}

// setConfigPayload is the shape of the "config" object in a setConfig
// command, per SPEC_FULL.md §12. Only the timeout_ms knob is wired today;
// unrecognized keys are silently ignored, matching spec.md's
// general "unknown keys are an error only for framing, not for semantics
// we don't yet support" posture for forward-compatible config growth.
type setConfigPayload struct {
	TimeoutMs *int64 `json:"timeout_ms"`
}

func (d *Dispatcher) setConfig(raw []byte) map[string]any {
	var cfg setConfigPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			logger.WarnKV("setConfig: ignoring unparseable config payload", "error", err)
			return map[string]any{"status": "OK"}
		}
	}
	if cfg.TimeoutMs != nil {
		d.debugger.SetTimeout(time.Duration(*cfg.TimeoutMs) * time.Millisecond)
	}
	return map[string]any{"status": "OK"}
}

func errResponse(id uint64, err error) protocol.Response {
	return protocol.Response{ID: id, Value: map[string]any{"status": "ERROR", "message": err.Error()}}
}

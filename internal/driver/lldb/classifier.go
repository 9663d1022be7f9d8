package lldb

import (
	"regexp"
	"strconv"

	"github.com/steven-lang/vim-padre/internal/protocol"
)

// These patterns depend on the exact frame-format the driver configures at
// startup (spec.md §4.C: "frame #<idx>: <basename>`function`<offset> at
// <path>:<line>") and on LLDB's stock breakpoint/process phrasing. A change
// to the settings set frame-format command must be mirrored here.
var (
	reProcessStarted = regexp.MustCompile(`^Process (\d+) (?:launched|resuming)`)
	reProcessExited  = regexp.MustCompile(`^Process (\d+) exited with status = (\d+)`)
	reBreakpointHit  = regexp.MustCompile(`^Breakpoint \d+: where = .*? at (.+):(\d+), address =`)
	reBreakpointPend = regexp.MustCompile(`^Breakpoint \d+: no locations \(pending\)`)
	reFrameLine      = regexp.MustCompile(`^frame #\d+: .*? at (.+):(\d+)\s*$`)
	reVariable       = regexp.MustCompile(`^\(([^)]+)\) (\S+) = (.*)$`)
)

// fileLine is a parsed source location.
type fileLine struct {
	File string
	Line uint32
}

// classifyResult is everything one stdout line might produce: a Status for
// whichever request is rendezvousing, plus the side-effecting notifications
// spec.md's classifier table calls out (a stop reason always jumps the
// cursor; a breakpoint hit or a process exit is independently newsworthy).
type classifyResult struct {
	Status        protocol.Status
	BreakpointSet *fileLine
	Jump          *fileLine
	ExitedPid     uint32
	ExitedCode    int
	Exited        bool
}

// classify turns one line of LLDB stdout into a classifyResult. lastOp
// disambiguates a bare "frame #0: ... at file:line" stop between StepIn and
// StepOver, since LLDB's own output doesn't say which stepping command
// produced it — only the driver, which just issued that command, knows.
func classify(line string, lastOp protocol.CommandKind) classifyResult {
	if m := reProcessStarted.FindStringSubmatch(line); m != nil {
		pid, _ := strconv.ParseUint(m[1], 10, 32)
		return classifyResult{Status: protocol.Status{Kind: protocol.StatusProcessStarted, Args: []string{m[1]}}, Jump: nil, ExitedPid: uint32(pid)}
	}

	if m := reProcessExited.FindStringSubmatch(line); m != nil {
		pid, _ := strconv.ParseUint(m[1], 10, 32)
		code, _ := strconv.Atoi(m[2])
		return classifyResult{
			Status:     protocol.Status{Kind: protocol.StatusProcessExited, Args: []string{m[1], m[2]}},
			Exited:     true,
			ExitedPid:  uint32(pid),
			ExitedCode: code,
		}
	}

	if m := reBreakpointHit.FindStringSubmatch(line); m != nil {
		ln, _ := strconv.ParseUint(m[2], 10, 32)
		fl := &fileLine{File: m[1], Line: uint32(ln)}
		return classifyResult{
			Status:        protocol.Status{Kind: protocol.StatusBreakpoint, Args: []string{m[1], m[2]}},
			BreakpointSet: fl,
			Jump:          fl,
		}
	}

	if reBreakpointPend.MatchString(line) {
		return classifyResult{Status: protocol.Status{Kind: protocol.StatusBreakpointPend}}
	}

	if m := reFrameLine.FindStringSubmatch(line); m != nil {
		ln, _ := strconv.ParseUint(m[2], 10, 32)
		fl := &fileLine{File: m[1], Line: uint32(ln)}
		kind := protocol.StatusStepOver
		if lastOp == protocol.CmdStepIn {
			kind = protocol.StatusStepIn
		} else if lastOp == protocol.CmdContinue {
			kind = protocol.StatusContinue
		}
		return classifyResult{Status: protocol.Status{Kind: kind, Args: []string{m[1], m[2]}}, Jump: fl}
	}

	if m := reVariable.FindStringSubmatch(line); m != nil {
		typ, name, value := m[1], m[2], m[3]
		return classifyResult{Status: protocol.Status{Kind: protocol.StatusVariable, Args: []string{name, value, typ}}}
	}

	return classifyResult{}
}

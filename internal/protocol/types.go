// Package protocol defines the wire-level data model shared by every
// component of the adapter: the Request a client sends, the Outbound
// (Response or Notification) the server sends back, and the Status values
// the debugger driver's classifier hands to the rendezvous.
package protocol

import "encoding/json"

// CommandKind is the tagged-variant discriminant of a Command, taken
// verbatim from the "cmd" field on the wire.
type CommandKind string

const (
	CmdPing       CommandKind = "ping"
	CmdPings      CommandKind = "pings"
	CmdSetConfig  CommandKind = "setConfig"
	CmdRun        CommandKind = "run"
	CmdBreakpoint CommandKind = "breakpoint"
	CmdStepIn     CommandKind = "stepIn"
	CmdStepOver   CommandKind = "stepOver"
	CmdContinue   CommandKind = "continue"
	CmdPrint      CommandKind = "print"
)

// Command is the decoded, validated payload of a Request. The codec rejects
// Config on any Kind other than CmdSetConfig; File/Line and Variable are
// accepted on any Kind and are left unused where Kind does not need them.
type Command struct {
	Kind     CommandKind
	File     string
	Line     uint32
	Variable string
	Config   json.RawMessage // only for CmdSetConfig, see SPEC_FULL.md §12
}

// Request is (id, cmd): id is client-chosen and opaque to the server, and
// must appear verbatim on the matching Response.
type Request struct {
	ID  uint64
	Cmd Command
}

// Outbound is anything the server writes back unprompted by decode: either a
// correlated Response or an unsolicited Notification.
type Outbound interface {
	isOutbound()
}

// Response correlates a reply with the Request.ID that produced it.
type Response struct {
	ID    uint64
	Value any
}

func (Response) isOutbound() {}

// Notification is an unsolicited event, encoded on the wire as
// ["call", cmd, args].
type Notification struct {
	Cmd  string
	Args []any
}

func (Notification) isOutbound() {}

// LogLevel is part of the wire contract: its numeric value is sent verbatim
// inside padre#debugger#Log notifications.
type LogLevel int

const (
	LogCritical LogLevel = 1
	LogError    LogLevel = 2
	LogWarn     LogLevel = 3
	LogInfo     LogLevel = 4
	LogDebug    LogLevel = 5
)

func (l LogLevel) String() string {
	switch l {
	case LogCritical:
		return "CRITICAL"
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// StatusKind is the classifier's output discriminant (internal to the
// driver; never sent on the wire directly).
type StatusKind string

const (
	StatusNone             StatusKind = "None"
	StatusProcessStarted   StatusKind = "ProcessStarted"
	StatusBreakpoint       StatusKind = "Breakpoint"
	StatusBreakpointPend   StatusKind = "BreakpointPending"
	StatusStepIn           StatusKind = "StepIn"
	StatusStepOver         StatusKind = "StepOver"
	StatusContinue         StatusKind = "Continue"
	StatusVariable         StatusKind = "Variable"
	StatusProcessExited    StatusKind = "ProcessExited"
)

// Status is what the classifier writes into the rendezvous slot: a kind plus
// whatever positional argument strings that kind carries.
type Status struct {
	Kind StatusKind
	Args []string
}

// None reports whether the status is the zero/unset value.
func (s Status) None() bool {
	return s.Kind == "" || s.Kind == StatusNone
}

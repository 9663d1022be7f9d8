// Package padreerr defines the error taxonomy shared across the adapter:
// every failure mode in spec.md §7 (BadFrame, UnknownDebugger,
// ProtocolMismatch, TimedOut, ClientGone, ChildExited) gets a sentinel here so
// callers can branch on Kind with errors.Is instead of string matching.
package padreerr

import (
	"github.com/cockroachdb/errors"
)

// Kind categorizes a padre error per the spec.md §7 taxonomy table.
type Kind string

const (
	KindBadFrame         Kind = "BadFrame"
	KindUnknownDebugger  Kind = "UnknownDebugger"
	KindProtocolMismatch Kind = "ProtocolMismatch"
	KindTimedOut         Kind = "TimedOut"
	KindClientGone       Kind = "ClientGone"
	KindChildExited      Kind = "ChildExited"
)

// Sentinels usable with errors.Is.
var (
	ErrBadFrame         = errors.New("bad frame")
	ErrUnknownDebugger  = errors.New("unknown debugger")
	ErrProtocolMismatch = errors.New("protocol mismatch")
	ErrTimedOut         = errors.New("timed out waiting for debugger response")
	ErrClientGone       = errors.New("client gone")
	ErrChildExited      = errors.New("debugger child process exited")
)

var sentinelByKind = map[Kind]error{
	KindBadFrame:         ErrBadFrame,
	KindUnknownDebugger:  ErrUnknownDebugger,
	KindProtocolMismatch: ErrProtocolMismatch,
	KindTimedOut:         ErrTimedOut,
	KindClientGone:       ErrClientGone,
	KindChildExited:      ErrChildExited,
}

// Error wraps a taxonomy Kind with a human-readable detail message.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return sentinelByKind[e.Kind]
}

// New builds a taxonomy error with a formatted detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap attaches a taxonomy Kind to an existing cause, preserving it for
// errors.Is/errors.As while giving higher layers a stable Kind to dispatch on.
func Wrap(kind Kind, cause error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, cause: errors.Wrap(cause, detail)}
}

// Is reports whether err carries the given taxonomy Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return errors.Is(err, sentinelByKind[kind])
}

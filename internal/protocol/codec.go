package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Codec implements spec.md §4.A: it decodes a byte stream of concatenated
// JSON values into Requests, tolerating split and partially valid frames,
// and encodes Outbound values back into wire bytes. It keeps no state across
// calls besides the unconsumed input buffer.
type Codec struct {
	buf bytes.Buffer
}

// NewCodec returns a ready-to-use Codec with an empty input buffer.
func NewCodec() *Codec {
	return &Codec{}
}

// Feed appends freshly-read socket bytes to the codec's input buffer.
func (c *Codec) Feed(data []byte) {
	c.buf.Write(data)
}

// DecodeError carries the ERROR+DEBUG log pair spec.md §4.A requires for a
// malformed frame. It is never fatal: the codec has already resynchronized
// by the time it's returned.
type DecodeError struct {
	ErrorMsg string // e.g. "Must be valid JSON" or "Bad arguments: [bar foo]"
	DebugMsg string // the offending raw text, logged at DEBUG
}

func (e *DecodeError) Error() string { return e.ErrorMsg }

var allowedKeys = map[string]bool{
	"cmd":      true,
	"file":     true,
	"line":     true,
	"variable": true,
	"config":   true,
}

// Decode consumes at most one complete frame from the buffer. It returns
// (nil, nil) when the buffer holds no complete frame yet (call again once
// more bytes arrive), (req, nil) on success, or (nil, err) after
// resynchronizing past one malformed frame. Decode does not log; the caller
// publishes the returned error's log pair.
func (c *Codec) Decode() (*Request, *DecodeError) {
	if c.buf.Len() == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(c.buf.Bytes()))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Incomplete frame: leave the buffer untouched for the next Feed.
			return nil, nil
		}
		offending := c.buf.String()
		c.buf.Reset()
		return nil, &DecodeError{
			ErrorMsg: "Must be valid JSON",
			DebugMsg: offending,
		}
	}

	// Advance past exactly the bytes the decoder consumed; anything after
	// stays buffered for the next frame.
	c.buf.Next(int(dec.InputOffset()))

	req, derr := parseFrame(raw)
	if derr != nil {
		return nil, derr
	}
	return req, nil
}

func parseFrame(raw json.RawMessage) (*Request, *DecodeError) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 2 {
		return nil, &DecodeError{
			ErrorMsg: "Frame must be a two-element array",
			DebugMsg: string(raw),
		}
	}

	var id uint64
	if err := json.Unmarshal(arr[0], &id); err != nil {
		return nil, &DecodeError{
			ErrorMsg: "Frame id must be an unsigned integer",
			DebugMsg: string(arr[0]),
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(arr[1], &obj); err != nil {
		return nil, &DecodeError{
			ErrorMsg: "Frame payload must be an object",
			DebugMsg: string(arr[1]),
		}
	}

	cmdRaw, ok := obj["cmd"]
	if !ok {
		return nil, &DecodeError{ErrorMsg: "Frame payload missing \"cmd\"", DebugMsg: string(arr[1])}
	}
	var cmdStr string
	if err := json.Unmarshal(cmdRaw, &cmdStr); err != nil {
		return nil, &DecodeError{ErrorMsg: "\"cmd\" must be a string", DebugMsg: string(cmdRaw)}
	}

	cmd := Command{Kind: CommandKind(cmdStr)}

	_, hasFile := obj["file"]
	_, hasLine := obj["line"]
	if hasFile != hasLine {
		return nil, &DecodeError{ErrorMsg: "\"file\" and \"line\" must appear together", DebugMsg: string(arr[1])}
	}
	if hasFile {
		if err := json.Unmarshal(obj["file"], &cmd.File); err != nil {
			return nil, &DecodeError{ErrorMsg: "\"file\" must be a string", DebugMsg: string(obj["file"])}
		}
		var line int64
		if err := json.Unmarshal(obj["line"], &line); err != nil || line < 0 {
			return nil, &DecodeError{ErrorMsg: "\"line\" must be an unsigned integer", DebugMsg: string(obj["line"])}
		}
		cmd.Line = uint32(line)
	}

	if variableRaw, ok := obj["variable"]; ok {
		if err := json.Unmarshal(variableRaw, &cmd.Variable); err != nil {
			return nil, &DecodeError{ErrorMsg: "\"variable\" must be a string", DebugMsg: string(variableRaw)}
		}
	}

	if configRaw, ok := obj["config"]; ok {
		if cmd.Kind != CmdSetConfig {
			return nil, &DecodeError{ErrorMsg: "\"config\" is only valid with \"cmd\":\"setConfig\"", DebugMsg: string(arr[1])}
		}
		cmd.Config = configRaw
	}

	var leftover []string
	for k := range obj {
		if !allowedKeys[k] {
			leftover = append(leftover, k)
		}
	}
	if len(leftover) > 0 {
		sort.Strings(leftover)
		return nil, &DecodeError{
			ErrorMsg: fmt.Sprintf("Bad arguments: %v", leftover),
			DebugMsg: string(arr[1]),
		}
	}

	if err := validateCommand(cmd); err != nil {
		return nil, &DecodeError{ErrorMsg: err.Error(), DebugMsg: string(arr[1])}
	}

	return &Request{ID: id, Cmd: cmd}, nil
}

func validateCommand(cmd Command) error {
	switch cmd.Kind {
	case CmdPing, CmdPings, CmdSetConfig, CmdRun, CmdStepIn, CmdStepOver, CmdContinue:
		return nil
	case CmdBreakpoint:
		if cmd.File == "" || cmd.Line < 1 {
			return fmt.Errorf("breakpoint requires a file and a line >= 1")
		}
		return nil
	case CmdPrint:
		if cmd.Variable == "" {
			return fmt.Errorf("print requires a non-empty variable")
		}
		return nil
	default:
		return fmt.Errorf("unrecognized command %q", cmd.Kind)
	}
}

// Encode appends the wire bytes for out to buf. It never fails: Outbound
// values are always well-formed by construction.
func Encode(out Outbound, buf *bytes.Buffer) {
	switch v := out.(type) {
	case Response:
		b, _ := json.Marshal([]any{v.ID, v.Value})
		buf.Write(b)
	case Notification:
		args := v.Args
		if args == nil {
			args = []any{}
		}
		b, _ := json.Marshal([]any{"call", v.Cmd, args})
		buf.Write(b)
	default:
		panic(fmt.Sprintf("protocol: unknown Outbound type %T", out))
	}
}

package lldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-lang/vim-padre/internal/protocol"
)

func TestClassifyProcessStarted(t *testing.T) {
	res := classify("Process 4242 launched: '/bin/true' (x86_64)", protocol.CmdRun)
	require.Equal(t, protocol.StatusProcessStarted, res.Status.Kind)
	assert.Equal(t, []string{"4242"}, res.Status.Args)
}

func TestClassifyProcessExited(t *testing.T) {
	res := classify("Process 4242 exited with status = 1", protocol.CmdContinue)
	require.True(t, res.Exited)
	assert.Equal(t, uint32(4242), res.ExitedPid)
	assert.Equal(t, 1, res.ExitedCode)
	assert.Equal(t, protocol.StatusProcessExited, res.Status.Kind)
}

func TestClassifyBreakpointHit(t *testing.T) {
	line := "Breakpoint 1: where = a.out`main + 22 at main.c:10, address = 0x0000000100000f50"
	res := classify(line, protocol.CmdBreakpoint)
	require.Equal(t, protocol.StatusBreakpoint, res.Status.Kind)
	require.NotNil(t, res.BreakpointSet)
	assert.Equal(t, "main.c", res.BreakpointSet.File)
	assert.Equal(t, uint32(10), res.BreakpointSet.Line)
	require.NotNil(t, res.Jump)
	assert.Equal(t, "main.c", res.Jump.File)
}

func TestClassifyBreakpointPending(t *testing.T) {
	res := classify("Breakpoint 1: no locations (pending).", protocol.CmdBreakpoint)
	assert.Equal(t, protocol.StatusBreakpointPend, res.Status.Kind)
	assert.Nil(t, res.BreakpointSet)
}

func TestClassifyFrameLineDisambiguatesByLastOp(t *testing.T) {
	line := "frame #0: a.out`main at main.c:12"

	stepIn := classify(line, protocol.CmdStepIn)
	assert.Equal(t, protocol.StatusStepIn, stepIn.Status.Kind)

	stepOver := classify(line, protocol.CmdStepOver)
	assert.Equal(t, protocol.StatusStepOver, stepOver.Status.Kind)

	cont := classify(line, protocol.CmdContinue)
	assert.Equal(t, protocol.StatusContinue, cont.Status.Kind)

	require.NotNil(t, stepIn.Jump)
	assert.Equal(t, "main.c", stepIn.Jump.File)
	assert.Equal(t, uint32(12), stepIn.Jump.Line)
}

func TestClassifyVariable(t *testing.T) {
	res := classify("(int) x = 7", protocol.CmdPrint)
	require.Equal(t, protocol.StatusVariable, res.Status.Kind)
	assert.Equal(t, []string{"x", "7", "int"}, res.Status.Args)
}

func TestClassifyUnrecognizedLineIsNone(t *testing.T) {
	res := classify("(lldb) some other chatter", protocol.CmdRun)
	assert.True(t, res.Status.None())
	assert.False(t, res.Exited)
	assert.Nil(t, res.BreakpointSet)
	assert.Nil(t, res.Jump)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"/bin/true"})
	require.NoError(t, err)
	assert.Equal(t, defaultHost, cfg.Host)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, "/bin/true", cfg.Program)
	assert.Empty(t, cfg.ProgramArgs)
	assert.Empty(t, cfg.Debugger)
}

func TestParseFlagsAndProgramArgs(t *testing.T) {
	cfg, err := Parse([]string{"--host", "127.0.0.1", "--port", "9999", "--debugger", "lldb", "/bin/echo", "hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "lldb", cfg.Debugger)
	assert.Equal(t, "/bin/echo", cfg.Program)
	assert.Equal(t, []string{"hello", "world"}, cfg.ProgramArgs)
}

func TestParseRequiresProgram(t *testing.T) {
	_, err := Parse([]string{"--verbose"})
	require.Error(t, err)
}

func TestParseShorthandFlags(t *testing.T) {
	cfg, err := Parse([]string{"-h", "127.0.0.1", "-p", "9999", "-d", "/usr/bin/lldb", "-t", "lldb", "/bin/echo"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/usr/bin/lldb", cfg.Debugger)
	assert.Equal(t, "lldb", cfg.Type)
}

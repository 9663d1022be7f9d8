// Package config parses the CLI surface for the padre server, per spec.md
// §6: command-line argument parsing is "an external collaborator", wired up
// with the teacher's flag library (github.com/spf13/pflag) rather than
// hand-rolled flag parsing.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 12345
)

// Config is every flag the padre binary accepts.
type Config struct {
	Host        string
	Port        int
	Debugger    string // path to the debugger binary, e.g. "/usr/bin/lldb"
	Type        string // explicit debugger type, e.g. "lldb"; empty means autodetect
	Program     string // target program to debug
	ProgramArgs []string
	Verbose     bool
}

// Parse builds a Config from argv (excluding argv[0]). The first positional
// argument is the target program path; any remaining positionals are passed
// through to it unchanged.
func Parse(argv []string) (Config, error) {
	fs := pflag.NewFlagSet("padre", pflag.ContinueOnError)

	var cfg Config
	fs.StringVarP(&cfg.Host, "host", "h", defaultHost, "address to bind the TCP listener to")
	fs.IntVarP(&cfg.Port, "port", "p", defaultPort, "port to bind the TCP listener to")
	fs.StringVarP(&cfg.Debugger, "debugger", "d", "", "path to the debugger binary")
	fs.StringVarP(&cfg.Type, "type", "t", "", "debugger type: lldb, node, java, python (autodetected if empty)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")

	if err := fs.Parse(argv); err != nil {
		return Config{}, err
	}

	args := fs.Args()
	if len(args) == 0 {
		return Config{}, fmt.Errorf("usage: padre [flags] <program> [program-args...]")
	}
	cfg.Program = args[0]
	cfg.ProgramArgs = args[1:]

	return cfg, nil
}

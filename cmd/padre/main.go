// Command padre is the debugger adapter server's entry point: it parses the
// CLI surface (SPEC_FULL.md §10), wires the notifier/dispatcher/driver/
// server stack together, and handles clean shutdown on SIGINT/SIGTERM, per
// spec.md §6. The accept-loop-plus-signal-goroutine shape is grounded on the
// teacher's bridge/main.go bootstrap sequence.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/steven-lang/vim-padre/internal/config"
	"github.com/steven-lang/vim-padre/internal/dispatcher"
	"github.com/steven-lang/vim-padre/internal/driver/lldb"
	"github.com/steven-lang/vim-padre/internal/notifier"
	"github.com/steven-lang/vim-padre/internal/server"
)

// shutdownGrace bounds how long the server waits for in-flight connections
// to drain before giving up during a signal-triggered shutdown.
const shutdownGrace = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	env := "production"
	if cfg.Verbose {
		env = "development"
	}
	logger.InitWithFile(env, cfg.Verbose, "")

	kind, resolvedProgram, err := dispatcher.Detect(cfg.Type, cfg.Program)
	if err != nil {
		logger.Errorf("debugger detection failed: %v", err)
		return 1
	}
	if kind != "lldb" {
		logger.Errorf("unsupported debugger type %q (only lldb is implemented)", kind)
		return 1
	}

	debuggerBinary := cfg.Debugger
	if debuggerBinary == "" {
		debuggerBinary = kind
	}
	runArgs := append([]string{"--", resolvedProgram}, cfg.ProgramArgs...)

	n := notifier.New()
	drv := lldb.New(n)
	disp := dispatcher.New(n, drv)

	srv := server.New(n, disp)

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := disp.Start(ctx, debuggerBinary, runArgs); err != nil {
		logger.Errorf("failed to start debugger: %v", err)
		srv.Shutdown(shutdownGrace)
		return 1
	}
	logger.InfoKV("padre ready", "host", cfg.Host, "port", cfg.Port, "debugger", kind)

	select {
	case sig := <-sigc:
		logger.InfoKV("shutting down", "signal", sig.String())
		disp.Stop()
		srv.Shutdown(shutdownGrace)
		return 0
	case <-drv.TimedOut():
		// spec.md §7: a rendezvous timeout is fatal to the whole process,
		// not just the driver — the classifier is out of sync and no
		// further request can be trusted. §6 pins this to exit code 1.
		logger.Errorf("debugger driver timed out, exiting")
		disp.Stop()
		srv.Shutdown(shutdownGrace)
		return 1
	case err := <-serveErr:
		if err != nil {
			logger.Errorf("server exited: %v", err)
			disp.Stop()
			return 1
		}
		return 0
	}
}

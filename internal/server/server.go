// Package server implements spec.md §4.E: the TCP listener and per-socket
// connection handler that bind the codec, notifier, and dispatcher
// together. Its accept-loop/per-connection-goroutine/bounded-drain shape is
// grounded on the teacher's bridge main.go accept loop and graceful
// shutdown (github.com/mordilloSan/LinuxIO backend/bridge/main.go).
package server

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mordilloSan/go-logger/logger"

	"github.com/steven-lang/vim-padre/internal/dispatcher"
	"github.com/steven-lang/vim-padre/internal/notifier"
	"github.com/steven-lang/vim-padre/internal/protocol"
)

// Server owns the TCP listener and the live connection set.
type Server struct {
	notifier   *notifier.Notifier
	dispatcher *dispatcher.Dispatcher

	listener net.Listener
	wg       sync.WaitGroup

	closeOnce sync.Once
	done      chan struct{}
}

// New returns a Server that will dispatch decoded requests through disp and
// broadcast unsolicited events through n.
func New(n *notifier.Notifier, disp *dispatcher.Dispatcher) *Server {
	return &Server{notifier: n, dispatcher: disp, done: make(chan struct{})}
}

// ListenAndServe binds addr and accepts connections until Shutdown is
// called or the listener otherwise fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	logger.InfoKV("padre server listening", "addr", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				logger.WarnKV("accept failed", "error", err)
				continue
			}
		}
		id := uuid.NewString()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn, id)
		}()
	}
}

// Shutdown stops accepting new connections and waits up to grace for
// in-flight connections to drain, mirroring the teacher's bounded-wait
// shutdown sequence.
func (s *Server) Shutdown(grace time.Duration) {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.WarnKV("listener close failed", "error", err)
			}
		}
	})

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		logger.DebugKV("in-flight connections drained")
	case <-time.After(grace):
		logger.WarnKV("in-flight connections exceeded grace period", "grace", grace)
	}
}

// handleConn is the per-socket glue spec.md §4.E describes: register a
// Client, push the one-shot SignalPADREStarted event, then decode/dispatch/
// encode in a loop until the client disconnects.
func (s *Server) handleConn(conn net.Conn, id string) {
	defer conn.Close()

	client := notifier.NewClient(conn.RemoteAddr().String() + "/" + id)
	s.notifier.AddListener(client)
	defer s.notifier.RemoveListener(client.Addr)

	notifier.SignalToOne(client, notifier.SignalStarted())

	writeDone := make(chan struct{})
	go s.pumpOutbox(conn, client, writeDone)

	s.readLoop(conn, client)

	close(client.Outbox)
	<-writeDone
}

// pumpOutbox drains client.Outbox onto the socket until it is closed.
func (s *Server) pumpOutbox(conn net.Conn, client *notifier.Client, done chan<- struct{}) {
	defer close(done)
	var buf bytes.Buffer
	for out := range client.Outbox {
		buf.Reset()
		protocol.Encode(out, &buf)
		if _, err := conn.Write(buf.Bytes()); err != nil {
			logger.DebugKV("write failed, client likely gone", "addr", client.Addr, "error", err)
			return
		}
	}
}

// readLoop decodes frames off conn and dispatches each Request in order,
// per spec.md §5's ordering guarantee: responses are emitted strictly in
// the order their requests were decoded.
func (s *Server) readLoop(conn net.Conn, client *notifier.Client) {
	codec := protocol.NewCodec()
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			codec.Feed(buf[:n])
			s.drainRequests(codec, client)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || isConnResetOrClosed(err) {
				logger.DebugKV("client disconnected", "addr", client.Addr)
			} else {
				logger.WarnKV("connection read error", "addr", client.Addr, "error", err)
			}
			return
		}
	}
}

func (s *Server) drainRequests(codec *protocol.Codec, client *notifier.Client) {
	for {
		req, decErr := codec.Decode()
		if decErr != nil {
			s.notifier.LogMsg(protocol.LogError, decErr.ErrorMsg)
			s.notifier.LogMsg(protocol.LogDebug, decErr.DebugMsg)
			continue
		}
		if req == nil {
			return
		}
		resp := s.dispatcher.Dispatch(*req)
		select {
		case client.Outbox <- resp:
		default:
			logger.WarnKV("client outbox full, dropping response", "addr", client.Addr, "id", resp.ID)
		}
	}
}

// isConnResetOrClosed mirrors the teacher's substring check on the raw
// error text (net.ErrClosed and ECONNRESET don't share a single sentinel
// worth importing syscall for here).
func isConnResetOrClosed(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "reset by peer") || strings.Contains(msg, "use of closed")
}

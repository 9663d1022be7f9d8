// Package notifier owns the set of connected editor sessions and
// broadcasts unsolicited events to all of them, per spec.md §4.B. It follows
// the teacher's "hand each client a channel, keep only channels behind a
// mutex" shape (mordilloSan/LinuxIO backend/bridge/terminal manager.go uses
// the same non-blocking-notify pattern for a single reader; here it's
// generalized to N listeners with per-socket failure isolation).
package notifier

import (
	"sync"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/steven-lang/vim-padre/internal/protocol"
)

// outboxCapacity bounds how far a slow client can lag before it is
// considered broken and dropped from the set.
const outboxCapacity = 256

// Client is one connected editor session. Outbox is the single-producer
// sink the notifier pushes Outbound frames onto; the connection handler
// owns draining it onto the socket.
type Client struct {
	Addr   string
	Outbox chan protocol.Outbound
}

// NewClient allocates a Client with a ready outbox.
func NewClient(addr string) *Client {
	return &Client{Addr: addr, Outbox: make(chan protocol.Outbound, outboxCapacity)}
}

// Notifier maintains the live client set and performs fan-out broadcast.
type Notifier struct {
	mu      sync.Mutex
	order   []string
	clients map[string]*Client
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{clients: make(map[string]*Client)}
}

// AddListener registers a client so it receives future broadcasts.
func (n *Notifier) AddListener(c *Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.clients[c.Addr]; !exists {
		n.order = append(n.order, c.Addr)
	}
	n.clients[c.Addr] = c
}

// RemoveListener deregisters a client. Safe to call more than once.
func (n *Notifier) RemoveListener(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removeLocked(addr)
}

func (n *Notifier) removeLocked(addr string) {
	if _, ok := n.clients[addr]; !ok {
		return
	}
	delete(n.clients, addr)
	for i, a := range n.order {
		if a == addr {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of currently registered clients.
func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.order)
}

// broadcast delivers note to every registered client, in registration
// order, holding the lock for the whole operation so broadcasts are
// linearizable with respect to each other. A client whose outbox is full is
// dropped from the set rather than allowed to stall the others.
func (n *Notifier) broadcast(note protocol.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var dead []string
	for _, addr := range n.order {
		c := n.clients[addr]
		select {
		case c.Outbox <- note:
		default:
			logger.WarnKV("dropping unresponsive client", "addr", addr, "cmd", note.Cmd)
			dead = append(dead, addr)
		}
	}
	for _, addr := range dead {
		n.removeLocked(addr)
	}
}

// SignalToOne delivers a notification to exactly one client without going
// through broadcast bookkeeping, used by the connection handler to push the
// one-shot SignalPADREStarted event right after registration.
func SignalToOne(c *Client, note protocol.Notification) {
	select {
	case c.Outbox <- note:
	default:
		logger.WarnKV("client outbox full on initial signal", "addr", c.Addr)
	}
}

// SignalStarted builds the padre#debugger#SignalPADREStarted notification.
func SignalStarted() protocol.Notification {
	return protocol.Notification{Cmd: "padre#debugger#SignalPADREStarted", Args: []any{}}
}

// LogMsg broadcasts a level-tagged log line to every client and mirrors it
// to the process-local logger, per SPEC_FULL.md §10.
func (n *Notifier) LogMsg(level protocol.LogLevel, msg string) {
	switch level {
	case protocol.LogCritical, protocol.LogError:
		logger.Errorf("[%s] %s", level, msg)
	case protocol.LogWarn:
		logger.Warnf("[%s] %s", level, msg)
	default:
		logger.Debugf("[%s] %s", level, msg)
	}
	n.broadcast(protocol.Notification{
		Cmd:  "padre#debugger#Log",
		Args: []any{int(level), msg},
	})
}

// SignalExited announces an inferior exit. Note the wire argument order is
// [exit_code, pid], the inverse of this method's own parameter order — this
// inversion is load-bearing (the editor plugin depends on it) per spec.md
// §9 and must be preserved verbatim.
func (n *Notifier) SignalExited(pid uint32, code int) {
	n.broadcast(protocol.Notification{
		Cmd:  "padre#debugger#ProcessExited",
		Args: []any{code, pid},
	})
}

// JumpToPosition tells every client to move the cursor to file:line.
func (n *Notifier) JumpToPosition(file string, line uint32) {
	n.broadcast(protocol.Notification{
		Cmd:  "padre#debugger#JumpToPosition",
		Args: []any{file, line},
	})
}

// BreakpointSet announces a confirmed breakpoint.
func (n *Notifier) BreakpointSet(file string, line uint32) {
	n.broadcast(protocol.Notification{
		Cmd:  "padre#debugger#BreakpointSet",
		Args: []any{file, line},
	})
}

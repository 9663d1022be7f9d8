package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steven-lang/vim-padre/internal/protocol"
)

func TestBroadcastDeliversToAllInOrder(t *testing.T) {
	n := New()
	a := NewClient("a")
	b := NewClient("b")
	c := NewClient("c")
	n.AddListener(a)
	n.AddListener(b)
	n.AddListener(c)

	n.BreakpointSet("main.c", 42)

	for _, client := range []*Client{a, b, c} {
		select {
		case note := <-client.Outbox:
			n, ok := note.(protocol.Notification)
			require.True(t, ok)
			assert.Equal(t, "padre#debugger#BreakpointSet", n.Cmd)
			assert.Equal(t, []any{"main.c", uint32(42)}, n.Args)
		default:
			t.Fatalf("client %s got no notification", client.Addr)
		}
	}
}

func TestBroadcastDropsFullClientButDeliversToOthers(t *testing.T) {
	n := New()
	full := NewClient("full")
	ok := NewClient("ok")
	n.AddListener(full)
	n.AddListener(ok)

	// Fill full's outbox to capacity so the next broadcast can't enqueue.
	for i := 0; i < outboxCapacity; i++ {
		full.Outbox <- protocol.Notification{Cmd: "filler"}
	}

	n.JumpToPosition("a.c", 1)

	select {
	case note := <-ok.Outbox:
		n, _ := note.(protocol.Notification)
		assert.Equal(t, "padre#debugger#JumpToPosition", n.Cmd)
	default:
		t.Fatal("surviving client got nothing")
	}

	assert.Equal(t, 1, n.Count())
}

func TestSignalExitedArgOrderIsCodeThenPid(t *testing.T) {
	n := New()
	c := NewClient("a")
	n.AddListener(c)

	n.SignalExited(1234, 7)

	note := (<-c.Outbox).(protocol.Notification)
	assert.Equal(t, []any{7, uint32(1234)}, note.Args)
}

func TestRemoveListenerIsIdempotent(t *testing.T) {
	n := New()
	c := NewClient("a")
	n.AddListener(c)
	n.RemoveListener("a")
	n.RemoveListener("a")
	assert.Equal(t, 0, n.Count())
}

package actorloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(WithMaxActors(32), WithPayloadPool(64, 256), WithTimerPool(32))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func runUntilDone(t *testing.T, rt *Runtime) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- rt.Run() }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not finish within timeout")
	}
}

// TestSpawnExitNormal covers the simplest actor lifecycle: spawn, Exit, the
// runtime drains to zero actors and Run returns cleanly.
func TestSpawnExitNormal(t *testing.T) {
	rt := newTestRuntime(t)
	_, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())
	waitRun(t, runUntilDone(t, rt))
}

// TestSpawnCrashOnPlainReturn covers spec.md's "actor function returned
// without calling exit" crash rule: a plain return is indistinguishable from
// any other uncaught failure.
func TestSpawnCrashOnPlainReturn(t *testing.T) {
	rt := newTestRuntime(t)
	crashed := make(chan ExitReason, 1)

	// the crasher is spawned at low priority so the normal-priority monitor
	// actor below is guaranteed to run first and register its monitor before
	// the crasher ever gets a turn.
	crasherID, st := rt.SpawnEx(func(ctx *ActorContext, _ any) {}, nil, SpawnConfig{Priority: PriorityLow})
	require.True(t, st.Ok())

	_, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		_, st := ctx.Monitor(crasherID)
		require.True(t, st.Ok())
		msg, st := ctx.Recv()
		require.True(t, st.Ok())
		_, reason, st := DecodeExit(msg)
		require.True(t, st.Ok())
		crashed <- reason
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	select {
	case reason := <-crashed:
		assert.Equal(t, ExitCrash, reason)
	default:
		t.Fatal("monitor never observed the crash notification")
	}
}

// TestSpawnCrashOnPanic covers a genuine panic (not the Exit unwind sentinel)
// inside an actor body: the trampoline recovers it and Run still returns
// without error once the crashed actor has been reaped.
func TestSpawnCrashOnPanic(t *testing.T) {
	rt := newTestRuntime(t)
	_, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		panic("boom")
	}, nil)
	require.True(t, st.Ok())
	waitRun(t, runUntilDone(t, rt))
}

// TestPriorityOrdering is invariant 2 of spec.md §8: while a higher-priority
// actor is READY, no lower-priority actor ever enters RUNNING.
func TestPriorityOrdering(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	lowDone := make(chan struct{})
	_, st := rt.SpawnEx(func(ctx *ActorContext, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "low")
			ctx.Yield()
		}
		close(lowDone)
		ctx.Exit()
	}, nil, SpawnConfig{Priority: PriorityLow})
	require.True(t, st.Ok())

	_, st = rt.SpawnEx(func(ctx *ActorContext, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "high")
			ctx.Yield()
		}
		ctx.Exit()
	}, nil, SpawnConfig{Priority: PriorityHigh})
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	// every "high" entry must precede the first "low" entry: the low-priority
	// actor never runs while the high-priority one is READY.
	lastHigh := -1
	for i, v := range order {
		if v == "high" {
			lastHigh = i
		}
	}
	firstLow := -1
	for i, v := range order {
		if v == "low" {
			firstLow = i
			break
		}
	}
	require.NotEqual(t, -1, lastHigh)
	require.NotEqual(t, -1, firstLow)
	assert.Less(t, lastHigh, firstLow)
}

// TestSendRecvCopyRoundTrip is invariant 4 of spec.md §8: a copy-sent payload
// round-trips through recv byte for byte.
func TestSendRecvCopyRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	result := make(chan []byte, 1)

	receiverID, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		msg, st := ctx.Recv()
		require.True(t, st.Ok())
		got := append([]byte(nil), msg.Payload...)
		ctx.Release(msg)
		result <- got
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	_, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		st := ctx.Send(receiverID, MsgNormal, 7, []byte("hello actor"), SendCopy)
		require.True(t, st.Ok())
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	select {
	case got := <-result:
		assert.Equal(t, []byte("hello actor"), got)
	default:
		t.Fatal("receiver never got the message")
	}
}

// TestOrderingPerSenderReceiverPair is invariant 1 of spec.md §8.
func TestOrderingPerSenderReceiverPair(t *testing.T) {
	rt := newTestRuntime(t)
	var received []uint32
	recvDone := make(chan struct{})

	receiverID, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		for i := 0; i < 5; i++ {
			msg, st := ctx.Recv()
			require.True(t, st.Ok())
			received = append(received, msg.Tag)
			ctx.Release(msg)
		}
		close(recvDone)
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	_, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		for i := uint32(0); i < 5; i++ {
			st := ctx.Send(receiverID, MsgNormal, i, []byte{byte(i)}, SendCopy)
			require.True(t, st.Ok())
		}
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, received)
}

// TestBorrowSendBlocksUntilRelease is invariant 5 of spec.md §8.
func TestBorrowSendBlocksUntilRelease(t *testing.T) {
	rt := newTestRuntime(t)
	senderBlocked := make(chan struct{})
	releaseSeen := make(chan struct{})

	buf := []byte("borrowed")

	receiverID, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		msg, st := ctx.Recv()
		require.True(t, st.Ok())
		assert.Equal(t, buf, msg.Payload)
		ctx.Yield() // give the sender a chance to observe it's still BLOCKED
		ctx.Release(msg)
		close(releaseSeen)
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	_, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		close(senderBlocked)
		st := ctx.Send(receiverID, MsgNormal, 0, buf, SendBorrow)
		assert.True(t, st.Ok())
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	select {
	case <-releaseSeen:
	default:
		t.Fatal("receiver never released the borrow")
	}
}

// TestBorrowReceiverDiesWakesSenderWithError covers the borrow-send edge
// case named in spec.md §4.4: a receiver that exits while holding a borrow
// wakes the sender with an error status instead of hanging forever.
func TestBorrowReceiverDiesWakesSenderWithError(t *testing.T) {
	rt := newTestRuntime(t)
	senderResult := make(chan Status, 1)

	receiverID, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		_, st := ctx.Recv()
		require.True(t, st.Ok())
		ctx.Exit() // exits without releasing
	}, nil)
	require.True(t, st.Ok())

	_, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		st := ctx.Send(receiverID, MsgNormal, 0, []byte("x"), SendBorrow)
		senderResult <- st
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	select {
	case st := <-senderResult:
		assert.False(t, st.Ok())
		assert.Equal(t, INVALID, st.Code)
	default:
		t.Fatal("sender was never woken")
	}
}

// TestSelfReportsOwnID checks ActorContext.Self against the id Spawn returned.
func TestSelfReportsOwnID(t *testing.T) {
	rt := newTestRuntime(t)
	selfID := make(chan ActorID, 1)

	id, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		selfID <- ctx.Self()
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))
	assert.Equal(t, id, <-selfID)
}

// TestShutdownStopsSchedulingNewWork covers Shutdown called from within an
// actor body: the loop must stop dispatching after the in-flight round
// completes, leaving any still-parked actor for Cleanup to reap. Shutdown is
// called from inside the actor (rather than from this test's goroutine)
// because shutdownRequested is only ever synchronized across the
// resumeCh/yieldCh rendezvous, not safe for an unrelated goroutine to poke.
func TestShutdownStopsSchedulingNewWork(t *testing.T) {
	rt := newTestRuntime(t)
	iterations := make(chan int, 1)

	_, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		count := 0
		for i := 0; i < 3; i++ {
			count++
			ctx.Yield()
		}
		ctx.Runtime().Shutdown()
		iterations <- count
		for {
			ctx.Yield() // parked forever; Cleanup below force-kills it
		}
	}, nil)
	require.True(t, st.Ok())

	done := runUntilDone(t, rt)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	select {
	case n := <-iterations:
		assert.Equal(t, 3, n)
	default:
		t.Fatal("actor never reached the shutdown call")
	}

	require.NoError(t, rt.Cleanup())
}

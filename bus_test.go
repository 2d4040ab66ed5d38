package actorloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, cfg BusConfig) *Bus {
	t.Helper()
	bt := newBusTable()
	id, st := bt.Create(cfg)
	require.True(t, st.Ok())
	b, st := bt.get(id)
	require.True(t, st.Ok())
	return b
}

// TestBusAtMostOncePerSubscriber is spec.md §8 invariant 8: each subscriber
// observes a given valid entry at most once.
func TestBusAtMostOncePerSubscriber(t *testing.T) {
	b := newTestBus(t, BusConfig{Capacity: 4, MaxSubscribers: 2})

	slotA, st := b.Subscribe(10)
	require.True(t, st.Ok())
	slotB, st := b.Subscribe(20)
	require.True(t, st.Ok())

	require.True(t, b.Publish([]byte("hello")).Ok())

	buf := make([]byte, 16)
	n, st := b.Read(slotA, buf)
	require.True(t, st.Ok())
	assert.Equal(t, "hello", string(buf[:n]))

	// second read for the same subscriber sees nothing new.
	_, st = b.Read(slotA, buf)
	assert.Equal(t, WOULDBLOCK, st.Code)

	// the other subscriber, unaffected, still sees the entry.
	n, st = b.Read(slotB, buf)
	require.True(t, st.Ok())
	assert.Equal(t, "hello", string(buf[:n]))
	_, st = b.Read(slotB, buf)
	assert.Equal(t, WOULDBLOCK, st.Code)
}

// TestBusSubscribeOnlySeesFutureEntries covers spec.md §4.7's "subscribers
// only see entries published after they subscribed" rule.
func TestBusSubscribeOnlySeesFutureEntries(t *testing.T) {
	b := newTestBus(t, BusConfig{Capacity: 4, MaxSubscribers: 2})
	require.True(t, b.Publish([]byte("before")).Ok())

	slot, st := b.Subscribe(1)
	require.True(t, st.Ok())

	buf := make([]byte, 16)
	_, st = b.Read(slot, buf)
	assert.Equal(t, WOULDBLOCK, st.Code)

	require.True(t, b.Publish([]byte("after")).Ok())
	n, st := b.Read(slot, buf)
	require.True(t, st.Ok())
	assert.Equal(t, "after", string(buf[:n]))
}

// TestBusRingEvictsOldestOnOverflow covers the bounded-ring overwrite rule.
func TestBusRingEvictsOldestOnOverflow(t *testing.T) {
	b := newTestBus(t, BusConfig{Capacity: 2, MaxSubscribers: 1})
	slot, st := b.Subscribe(1)
	require.True(t, st.Ok())

	require.True(t, b.Publish([]byte("1")).Ok())
	require.True(t, b.Publish([]byte("2")).Ok())
	require.True(t, b.Publish([]byte("3")).Ok()) // evicts "1"

	buf := make([]byte, 8)
	n, st := b.Read(slot, buf)
	require.True(t, st.Ok())
	assert.Equal(t, "2", string(buf[:n]))

	n, st = b.Read(slot, buf)
	require.True(t, st.Ok())
	assert.Equal(t, "3", string(buf[:n]))

	_, st = b.Read(slot, buf)
	assert.Equal(t, WOULDBLOCK, st.Code)
}

// TestBusMaxReadersExpiresEntry covers reader-count-based expiry: once every
// outstanding subscriber has consumed an entry, it's freed even though the
// ring has room.
func TestBusMaxReadersExpiresEntry(t *testing.T) {
	b := newTestBus(t, BusConfig{Capacity: 4, MaxSubscribers: 2, MaxReaders: 2})
	slotA, st := b.Subscribe(1)
	require.True(t, st.Ok())
	slotB, st := b.Subscribe(2)
	require.True(t, st.Ok())

	require.True(t, b.Publish([]byte("x")).Ok())
	assert.Equal(t, 1, b.EntryCount())

	buf := make([]byte, 4)
	_, st = b.Read(slotA, buf)
	require.True(t, st.Ok())
	assert.Equal(t, 1, b.EntryCount(), "still one reader outstanding")

	_, st = b.Read(slotB, buf)
	require.True(t, st.Ok())
	assert.Equal(t, 0, b.EntryCount(), "entry freed once both readers consumed it")
}

// TestBusSubscriberCapEnforced covers MaxSubscribers / maxBusSubscribers.
func TestBusSubscriberCapEnforced(t *testing.T) {
	b := newTestBus(t, BusConfig{Capacity: 4, MaxSubscribers: 1})
	_, st := b.Subscribe(1)
	require.True(t, st.Ok())
	_, st = b.Subscribe(2)
	assert.Equal(t, NOMEM, st.Code)
}

// TestBusDestroyRejectsWithActiveSubscribers covers busTable.Destroy's guard.
func TestBusDestroyRejectsWithActiveSubscribers(t *testing.T) {
	bt := newBusTable()
	id, st := bt.Create(BusConfig{Capacity: 2, MaxSubscribers: 1})
	require.True(t, st.Ok())
	b, st := bt.get(id)
	require.True(t, st.Ok())

	slot, st := b.Subscribe(1)
	require.True(t, st.Ok())
	assert.False(t, bt.Destroy(id).Ok())

	require.True(t, b.Unsubscribe(slot).Ok())
	assert.True(t, bt.Destroy(id).Ok())
}

// TestActorBusFanOut exercises the full ActorContext-facing API end to end:
// one publisher, one subscriber, coordinated entirely through actor mailbox
// sends (never a raw Go channel receive inside an actor body, which would
// block the actor's goroutine without yielding back to the scheduler).
func TestActorBusFanOut(t *testing.T) {
	rt := newTestRuntime(t)
	result := make(chan string, 1)

	var publisherID ActorID
	subscriberID, st := rt.Spawn(func(ctx *ActorContext, _ any) {
		msg, st := ctx.Recv()
		require.True(t, st.Ok())
		id := BusID(msg.Tag)
		ctx.Release(msg)

		slot, st := ctx.BusSubscribe(id)
		require.True(t, st.Ok())
		require.True(t, ctx.Send(publisherID, MsgNormal, 0, nil, SendCopy).Ok())

		buf := make([]byte, 32)
		n, st := ctx.ReadWait(id, slot, buf, 1000)
		require.True(t, st.Ok())
		result <- string(buf[:n])
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	publisherID, st = rt.Spawn(func(ctx *ActorContext, _ any) {
		id, st := ctx.BusCreate(BusConfig{Capacity: 4, MaxSubscribers: 2})
		require.True(t, st.Ok())
		require.True(t, ctx.Send(subscriberID, MsgNormal, uint32(id), nil, SendCopy).Ok())

		_, st = ctx.Recv() // wait for the subscriber's subscribe-ack
		require.True(t, st.Ok())
		require.True(t, ctx.BusPublish(id, []byte("fanout")).Ok())
		ctx.Exit()
	}, nil)
	require.True(t, st.Ok())

	waitRun(t, runUntilDone(t, rt))

	select {
	case got := <-result:
		assert.Equal(t, "fanout", got)
	default:
		t.Fatal("subscriber never received the published entry")
	}
}

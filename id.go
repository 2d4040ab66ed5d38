package actorloop

import "sync/atomic"

// ActorID is an opaque actor identifier. Zero is reserved for "invalid" per
// spec.md §3, so a zero-valued field (e.g. an uninitialized struct member)
// never collides with a live actor.
type ActorID uint32

// InvalidActorID is the zero value, never assigned to a live actor.
const InvalidActorID ActorID = 0

// Two IDs are reserved for non-actor senders, per spec.md §3: one for
// system-generated messages (exit notifications) and one for timer-generated
// messages. They are carved off the bottom of the ID space so the monotonic
// allocator below never hands them out.
const (
	// SystemSenderID marks a message as scheduler-generated (exit notifications).
	SystemSenderID ActorID = 1
	// TimerSenderID marks a message as a timer tick.
	TimerSenderID ActorID = 2

	firstAllocatableID ActorID = 3
)

// idAllocator hands out monotonically increasing ActorIDs, wrapping around
// (skipping 0 and the two reserved ids) only after 2^32-3 allocations, which
// in practice never happens within a single runtime's lifetime.
type idAllocator struct {
	next atomic.Uint32
}

func newIDAllocator() *idAllocator {
	a := &idAllocator{}
	a.next.Store(uint32(firstAllocatableID))
	return a
}

// allocate returns the next id, skipping reserved and invalid values on wraparound.
func (a *idAllocator) allocate() ActorID {
	for {
		v := a.next.Add(1) - 1
		id := ActorID(v)
		if id >= firstAllocatableID {
			return id
		}
		// wrapped past the reserved range; reset and retry
		a.next.Store(uint32(firstAllocatableID) + 1)
	}
}

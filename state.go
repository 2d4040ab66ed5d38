package actorloop

import (
	"sync/atomic"
)

// FastState is a lock-free state machine with cache-line padding, shared by
// the Runtime's own lifecycle and by every Actor's state field.
//
// PERFORMANCE: Uses pure atomic CAS operations with no mutex. Cache-line
// padding prevents false sharing between cores when many actors' states sit
// next to each other in the actor table.
type FastState struct { // betteralign:ignore
	_ [64]byte      // cache line padding (before value) //nolint:unused
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line (64 - 8 = 56) //nolint:unused
}

// NewFastState creates a new state machine holding the given initial value.
func NewFastState(initial uint64) *FastState {
	s := &FastState{}
	s.v.Store(initial)
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() uint64 {
	return s.v.Load()
}

// Store atomically stores a new state, bypassing transition validation. The
// scheduler uses it for every actor state change and for the runtime's
// Sleeping/Running/Terminating/Terminated changes; only Run's initial
// Awake→Running step goes through TryTransition.
func (s *FastState) Store(state uint64) {
	s.v.Store(state)
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to uint64) bool {
	return s.v.CompareAndSwap(from, to)
}

// RuntimeState represents the lifecycle of the Runtime itself.
//
//	RuntimeAwake       → RuntimeRunning     [Run(), via CAS]
//	RuntimeRunning     → RuntimeSleeping    [idleWait, before PollIO]
//	RuntimeSleeping    → RuntimeRunning     [idleWait, after PollIO]
//	any                → RuntimeTerminating [Shutdown()]
//	RuntimeRunning or
//	RuntimeTerminating → RuntimeTerminated  [Run loop exits]
//	RuntimeTerminated  → (terminal)
type RuntimeState uint64

const (
	// RuntimeAwake indicates the runtime has been created but Run has not been called.
	RuntimeAwake RuntimeState = 0
	// RuntimeTerminated indicates the runtime has fully shut down.
	RuntimeTerminated RuntimeState = 1
	// RuntimeSleeping indicates the scheduler is idle-waiting on the multiplexer.
	RuntimeSleeping RuntimeState = 2
	// RuntimeRunning indicates the scheduler is actively dispatching actors.
	RuntimeRunning RuntimeState = 3
	// RuntimeTerminating indicates shutdown has been requested but not completed.
	RuntimeTerminating RuntimeState = 4
)

func (s RuntimeState) String() string {
	switch s {
	case RuntimeAwake:
		return "Awake"
	case RuntimeRunning:
		return "Running"
	case RuntimeSleeping:
		return "Sleeping"
	case RuntimeTerminating:
		return "Terminating"
	case RuntimeTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ActorState is the per-actor state machine of spec.md §3: DEAD is the zero
// value so a zero-initialized actor-table slot reads as DEAD without any
// explicit initialization.
type ActorState uint64

const (
	// ActorDead means the slot is free (the zero value, by design).
	ActorDead ActorState = 0
	// ActorReady means the actor is eligible for scheduling.
	ActorReady ActorState = 1
	// ActorRunning means the actor currently holds the scheduling token.
	ActorRunning ActorState = 2
	// ActorBlocked means the actor is suspended pending a message, timer, or I/O completion.
	ActorBlocked ActorState = 3
)

func (s ActorState) String() string {
	switch s {
	case ActorDead:
		return "Dead"
	case ActorReady:
		return "Ready"
	case ActorRunning:
		return "Running"
	case ActorBlocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

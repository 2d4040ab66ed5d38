package actorloop

// Priority is one of four scheduling priority levels. The zero value is
// PriorityCritical so an accidentally-zero-valued SpawnConfig still gets the
// strictest ordering guarantee rather than the loosest.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow

	numPriorities = int(PriorityLow) + 1
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ExitReason labels why an actor terminated.
type ExitReason uint32

const (
	// ExitNormal means the actor terminated by calling Exit. A plain return
	// from the entry function is not a normal exit — see ExitCrash.
	ExitNormal ExitReason = iota
	// ExitCrash means the actor's entry function returned without calling
	// Exit, or panicked with a value other than the internal unwind sentinel.
	ExitCrash
	// ExitKilled means the actor was terminated externally (Cleanup tearing it down).
	ExitKilled
)

func (r ExitReason) String() string {
	switch r {
	case ExitNormal:
		return "normal"
	case ExitCrash:
		return "crash"
	case ExitKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Func is an actor entry point. ctx is the handle the body uses to call back
// into the runtime (Send, Recv, Self, Exit, ...); arg is whatever was passed
// to Spawn/SpawnEx.
type Func func(ctx *ActorContext, arg any)

// SpawnConfig customizes a single Spawn call. The zero value is valid and
// picks PriorityCritical (the zero Priority) and no debug name; Spawn itself
// passes PriorityNormal.
type SpawnConfig struct {
	Priority Priority
	Name     string
	// LinkParent is carried in the config, but SpawnEx does not read it: no
	// link to the spawning actor is created.
	LinkParent bool
}

// Actor is the control block of spec.md §3: every field the scheduler or a
// subsystem needs to observe or mutate about one actor lives here. The saved
// CPU context / stack buffer of a systems-language implementation is
// replaced by a goroutine plus the two-channel rendezvous in context.go —
// see SPEC_FULL.md's [CONTEXT] section for the rationale.
type Actor struct {
	id       ActorID
	state    *FastState
	priority Priority
	name     string

	mailbox *mailbox
	current *Message // entry currently being handled, so a mid-handling crash can release it

	links    []linkEntry // reciprocal links this actor holds
	monitors []monitorEntry

	exitReason ExitReason
	exitValue  any // panic value, if ExitCrash came from an actual panic

	// io holds the result of the most recently completed file or network I/O
	// operation, populated before re-readying the actor. Borrow-send results
	// travel on the message's borrowWait channel instead.
	io          ioResult
	fileReadBuf []byte // data from the most recently completed file read/pread

	fn  Func
	arg any

	resumeCh chan struct{}    // scheduler -> actor: "you may run"
	yieldCh  chan yieldReason // actor -> scheduler: "I'm suspending, here's why"

	slot int // index into the actor table's pool, for O(1) free
}

type ioResult struct {
	status   Status
	resultFD int
	resultN  int
}

// linkEntry and monitorEntry are the reciprocal/one-sided supervision nodes
// of spec.md §4.6. They are plain values (not pool-allocated) since an
// actor's link/monitor lists are small and owned exclusively by that actor;
// the pool-exhaustion invariant instead applies to the table-wide caps
// enforced in links.go.
type linkEntry struct {
	peer ActorID
}

type monitorEntry struct {
	peer ActorID
	ref  uint64
}

// State returns the actor's current lifecycle state.
func (a *Actor) State() ActorState {
	return ActorState(a.state.Load())
}

// ID returns the actor's identifier.
func (a *Actor) ID() ActorID { return a.id }

// Priority returns the actor's scheduling priority.
func (a *Actor) Priority() Priority { return a.priority }

// Name returns the actor's debug name, which may be empty.
func (a *Actor) Name() string { return a.name }

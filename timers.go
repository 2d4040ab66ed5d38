package actorloop

// timerEntry is the pool-backed timer descriptor of spec.md §3: an id, the
// owning actor, a periodic flag, and a platform-specific kernel handle
// (timerFD on Linux; nothing real on the portable fallback — see
// timer_linux.go / timer_other.go).
type timerEntry struct {
	id       uint64
	owner    ActorID
	periodic bool
	handle   timerHandle
	idx      int
}

// timerSet owns every live timer, backed by a fixed pool (spec.md §8.3's
// pool-exhaustion invariant applies here exactly as it does to payloads).
type timerSet struct {
	pool   *pool[timerEntry]
	byID   map[uint64]int
	nextID uint64
	rt     *Runtime
}

func newTimerSet(rt *Runtime, capacity int) *timerSet {
	return &timerSet{
		pool: newPool[timerEntry](capacity),
		byID: make(map[uint64]int),
		rt:   rt,
	}
}

// minIntervalNS substitutes for a zero interval, per spec.md §4.5: "fire
// immediately" must stay distinguishable from "disable."
const minIntervalNS = 1

// after arms a one-shot timer for owner firing after ms milliseconds.
func (ts *timerSet) after(owner *Actor, ms int64) (uint64, Status) {
	return ts.arm(owner, ms, false)
}

// every arms a periodic timer for owner firing every ms milliseconds.
func (ts *timerSet) every(owner *Actor, ms int64) (uint64, Status) {
	return ts.arm(owner, ms, true)
}

func (ts *timerSet) arm(owner *Actor, ms int64, periodic bool) (uint64, Status) {
	ns := ms * 1_000_000
	if ns <= 0 {
		ns = minIntervalNS
	}

	idx, t, ok := ts.pool.Alloc()
	if !ok {
		return 0, StatusNoMem
	}
	ts.nextID++
	id := ts.nextID
	t.id = id
	t.owner = owner.id
	t.periodic = periodic
	t.idx = idx
	ts.byID[id] = idx

	handle, err := newTimerHandle(ts.rt, ns, periodic, func() {
		ts.fire(id)
	})
	if err != nil {
		ts.pool.Free(idx)
		delete(ts.byID, id)
		return 0, ioStatus(err)
	}
	t.handle = handle

	return id, StatusOK
}

// cancel disarms and frees timer id.
func (ts *timerSet) cancel(id uint64) Status {
	idx, ok := ts.byID[id]
	if !ok {
		return StatusInvalid
	}
	t, ok := ts.pool.Get(idx)
	if !ok {
		return StatusInvalid
	}
	if t.handle != nil {
		t.handle.Close()
	}
	delete(ts.byID, id)
	ts.pool.Free(idx)
	return StatusOK
}

// fire is invoked (on the scheduler goroutine, via the poller callback) when
// a timer's kernel handle reports readiness. It delivers a timer-class
// message to the owner and self-destructs one-shot timers.
func (ts *timerSet) fire(id uint64) {
	idx, ok := ts.byID[id]
	if !ok {
		return
	}
	t, ok := ts.pool.Get(idx)
	if !ok {
		return
	}
	owner, ok := ts.rt.table.lookup(t.owner)
	if ok {
		ts.rt.deliver(owner, &Message{Sender: TimerSenderID, Class: MsgTimer, Tag: uint32(id)})
	}
	if !t.periodic {
		if t.handle != nil {
			t.handle.Close()
		}
		delete(ts.byID, id)
		ts.pool.Free(idx)
	}
}

// IsTimer reports whether msg is a timer tick.
func IsTimer(msg *Message) bool {
	return msg != nil && msg.Class == MsgTimer && msg.Sender == TimerSenderID
}

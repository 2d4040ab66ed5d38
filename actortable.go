package actorloop

// actorTable owns every Actor control block, keyed by ActorID, backed by a
// fixed-capacity pool so the N+1-th spawn past capacity fails clean with
// NOMEM (spec.md §8.3) instead of growing unbounded.
//
// It also owns the per-priority ready queues the scheduler selects from:
// spec.md §4.3 calls for "round-robin from the last-served slot" within a
// priority level, which needs a slot-indexed rotation, not just a bag of
// ready ids — so the rotation state lives here, next to the slots it indexes.
type actorTable struct {
	pool *pool[Actor]
	ids  *idAllocator
	byID map[ActorID]int // ActorID -> pool slot index

	ready      [numPriorities][]int // pool slot indices currently READY, per priority
	lastServed [numPriorities]int   // rotation cursor into ready[p]
}

func newActorTable(capacity int) *actorTable {
	return &actorTable{
		pool: newPool[Actor](capacity),
		ids:  newIDAllocator(),
		byID: make(map[ActorID]int, capacity),
	}
}

// alloc reserves a slot, assigns a fresh id, and fills the control block.
// The caller is responsible for starting the actor's goroutine and setting
// its initial state; alloc only does bookkeeping.
func (t *actorTable) alloc(fn Func, arg any, cfg SpawnConfig) (*Actor, Status) {
	slot, a, ok := t.pool.Alloc()
	if !ok {
		return nil, StatusNoMem
	}
	id := t.ids.allocate()
	a.id = id
	a.slot = slot
	a.priority = cfg.Priority
	a.name = cfg.Name
	a.fn = fn
	a.arg = arg
	a.state = NewFastState(uint64(ActorReady))
	a.resumeCh = make(chan struct{})
	a.yieldCh = make(chan yieldReason, 1)
	t.byID[id] = slot
	return a, StatusOK
}

// lookup returns the actor for id, rejecting DEAD slots — the filtered
// accessor of spec.md §4.2.
func (t *actorTable) lookup(id ActorID) (*Actor, bool) {
	slot, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	a, ok := t.pool.Get(slot)
	if !ok || a.id != id {
		return nil, false
	}
	return a, true
}

// free releases id's slot back to the pool and removes the id mapping.
func (t *actorTable) free(id ActorID) {
	slot, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	t.pool.Free(slot)
}

// enqueueReady appends a slot to its priority's ready queue. No-op if
// already present (callers are expected to only call this on a genuine
// BLOCKED/READY or READY-on-create transition, but double-enqueue would
// otherwise let an actor run twice per round).
func (t *actorTable) enqueueReady(a *Actor) {
	q := t.ready[a.priority]
	for _, s := range q {
		if s == a.slot {
			return
		}
	}
	t.ready[a.priority] = append(q, a.slot)
}

// removeReady removes a slot from its priority's ready queue, if present.
func (t *actorTable) removeReady(a *Actor) {
	q := t.ready[a.priority]
	for i, s := range q {
		if s == a.slot {
			t.ready[a.priority] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// selectNext implements spec.md §4.3's selection rule: scan priority levels
// highest to lowest, round-robin within a level from the last-served
// position, return the first READY actor found. Returns nil if no actor is
// READY anywhere.
func (t *actorTable) selectNext() *Actor {
	for p := 0; p < numPriorities; p++ {
		q := t.ready[p]
		n := len(q)
		if n == 0 {
			continue
		}
		start := t.lastServed[p] % n
		for i := 0; i < n; i++ {
			idx := (start + i) % n
			slot := q[idx]
			a, ok := t.pool.Get(slot)
			if !ok || a.State() != ActorReady {
				continue
			}
			t.lastServed[p] = (idx + 1) % n
			return a
		}
	}
	return nil
}

// count returns the number of live actors.
func (t *actorTable) count() int {
	return t.pool.Len()
}

// liveActorsSnapshot returns a point-in-time copy of every live actor
// pointer, used by death-time monitor scanning (links.go) so mutation of one
// actor's monitor list during the scan cannot invalidate the scan itself.
func (t *actorTable) liveActorsSnapshot() []*Actor {
	out := make([]*Actor, 0, len(t.byID))
	for id, slot := range t.byID {
		if a, ok := t.pool.Get(slot); ok && a.id == id {
			out = append(out, a)
		}
	}
	return out
}

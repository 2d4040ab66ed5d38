// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package actorloop

import (
	"sync"
	"time"
)

// Runtime is the process-wide scheduler façade of spec.md §4.9/§6: init,
// run, spawn, exit, yield, self, shutdown, cleanup. It owns every subsystem
// — actor table, payload pool, timers, buses, file/network adapters, the
// I/O multiplexer — and is the only type application code constructs
// directly.
//
// Model: single-threaded cooperative. Exactly one actor goroutine is ever
// between its resumeCh receive and its yieldCh send at any instant; the
// Runtime's own run loop is the only other goroutine that touches scheduler
// state, and it never does so while an actor is "running" in that sense.
// Poller callbacks (timers, sockets) run inline on the scheduler loop. The
// file adapter's worker goroutine runs concurrently, but it touches only its
// SPSC rings, its own fd map and the wakeup handle, never the structures
// above, so none of them needs additional locking.
type Runtime struct {
	opts *runtimeOptions

	state *FastState

	table    *actorTable
	payloads *payloadPool
	timers   *timerSet
	buses    *busTable
	poller   *poller
	wake     *wakeup
	files    *fileAdapter

	metrics *Metrics

	linkCount    int // total active reciprocal link relationships, capped at opts.maxLinks
	monitorCount int // total active monitors, capped at opts.maxMonitors

	softFireMu sync.Mutex
	softFires  []func()

	shutdownRequested bool
}

// Metrics returns the runtime's scheduling-latency tracker, or nil if
// WithMetrics was not enabled.
func (rt *Runtime) Metrics() *Metrics { return rt.metrics }

// New creates a Runtime. Call Run to start the scheduler loop.
func New(opts ...RuntimeOption) (*Runtime, error) {
	cfg, err := resolveRuntimeOptions(opts)
	if err != nil {
		return nil, err
	}

	p, err := newPoller()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		opts:  cfg,
		state: NewFastState(uint64(RuntimeAwake)),
		table: newActorTable(cfg.maxActors),
		buses: newBusTable(),
		poller: p,
	}
	rt.payloads = newPayloadPool(cfg.payloadPoolSize, cfg.maxMessageSize)
	rt.timers = newTimerSet(rt, cfg.maxTimers)

	wk, err := newWakeup(p)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	rt.wake = wk
	if err := rt.registerWakeFD(); err != nil {
		_ = p.Close()
		return nil, err
	}

	rt.files = newFileAdapter(rt, cfg.spscCapacity)

	if cfg.metricsEnabled {
		rt.metrics = NewMetrics()
	}

	return rt, nil
}

// Spawn creates a new actor at PriorityNormal, returning its id.
func (rt *Runtime) Spawn(fn Func, arg any) (ActorID, Status) {
	return rt.SpawnEx(fn, arg, SpawnConfig{Priority: PriorityNormal})
}

// SpawnEx creates a new actor with an explicit configuration.
func (rt *Runtime) SpawnEx(fn Func, arg any, cfg SpawnConfig) (ActorID, Status) {
	a, st := rt.table.alloc(fn, arg, cfg)
	if !st.Ok() {
		logPoolExhausted(`actor table`)
		return InvalidActorID, st
	}
	a.mailbox = &mailbox{}
	startTrampoline(rt, a)
	rt.table.enqueueReady(a)
	return a.id, StatusOK
}

// Alive reports whether id currently names a live (non-DEAD) actor.
func (rt *Runtime) Alive(id ActorID) bool {
	_, ok := rt.table.lookup(id)
	return ok
}

// Shutdown requests the scheduler loop exit after the current dispatch
// round. It is safe to call from any actor.
func (rt *Runtime) Shutdown() {
	rt.shutdownRequested = true
	rt.state.Store(uint64(RuntimeTerminating))
}

// Run starts the scheduler loop and blocks until every actor has exited or
// Shutdown is called. It must not be called re-entrantly from within an
// actor body.
func (rt *Runtime) Run() error {
	if !rt.state.TryTransition(uint64(RuntimeAwake), uint64(RuntimeRunning)) {
		return ErrRuntimeAlreadyRunning
	}

	for {
		if rt.shutdownRequested {
			break
		}

		rt.drainSoftFires()
		rt.files.drainCompletions(rt)

		a := rt.table.selectNext()
		if a == nil {
			if rt.table.count() == 0 {
				break
			}
			if err := rt.idleWait(); err != nil {
				return err
			}
			continue
		}

		rt.dispatch(a)
	}

	rt.state.Store(uint64(RuntimeTerminated))
	return nil
}

// dispatch runs one actor until it next suspends, per spec.md §4.3.
func (rt *Runtime) dispatch(a *Actor) {
	a.state.Store(uint64(ActorRunning))
	rt.table.removeReady(a)

	start := time.Time{}
	if rt.metrics != nil {
		start = time.Now()
	}

	a.resumeCh <- struct{}{}
	reason := <-a.yieldCh

	if rt.metrics != nil {
		rt.metrics.RecordDispatch(time.Since(start))
	}

	switch reason.kind {
	case yieldDead:
		rt.reap(a)
	case yieldExplicit:
		a.state.Store(uint64(ActorReady))
		rt.table.enqueueReady(a)
	case yieldBlocked:
		// state already set to ActorBlocked by ActorContext.block(); the
		// actor is re-readied by whichever subsystem completes its wait.
	}
}

// reap runs death-time link/monitor notification then releases the actor's
// slot, per spec.md §4.6.
func (rt *Runtime) reap(a *Actor) {
	if a.exitReason == ExitCrash {
		logCrash(a.id, a.name, a.exitValue)
	}
	if a.current != nil {
		if a.current.borrow && a.current.borrower != nil {
			a.current.borrower.done <- Status{Code: INVALID, Msg: "receiver exited while holding borrow"}
			if sender, ok := rt.table.lookup(a.current.Sender); ok {
				rt.ready(sender)
			}
		} else if a.current.slot != nil {
			rt.payloads.free(a.current.slot)
		}
		a.current = nil
	}
	rt.notifyDeath(a, a.exitReason, a.exitValue)
	rt.table.removeReady(a)
	rt.table.free(a.id)
}

// deliver appends msg to target's mailbox and re-readies it if it was
// waiting on a receive.
func (rt *Runtime) deliver(target *Actor, msg *Message) {
	target.mailbox.append(msg)
	if target.State() == ActorBlocked {
		rt.ready(target)
	}
}

// deliverSystem wraps deliver for scheduler-generated exit notifications.
func (rt *Runtime) deliverSystem(target *Actor, payload []byte) {
	rt.deliver(target, &Message{Sender: SystemSenderID, Class: MsgSystem, Payload: payload})
}

// ready transitions a to READY and enqueues it, if it is not already dead.
func (rt *Runtime) ready(a *Actor) {
	if a.State() == ActorDead {
		return
	}
	a.state.Store(uint64(ActorReady))
	rt.table.enqueueReady(a)
}

// after/cancelTimer are the Runtime-level entry points ipc.go's RecvTimeout uses.
func (rt *Runtime) after(owner *Actor, ms int64) (uint64, Status) {
	return rt.timers.after(owner, ms)
}

func (rt *Runtime) cancelTimer(id uint64) Status {
	return rt.timers.cancel(id)
}

// After arms a one-shot timer for the calling actor.
func (c *ActorContext) After(ms int64) (uint64, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	return c.rt.timers.after(c.actor, ms)
}

// Every arms a periodic timer for the calling actor.
func (c *ActorContext) Every(ms int64) (uint64, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	return c.rt.timers.every(c.actor, ms)
}

// CancelTimer disarms a previously armed timer.
func (c *ActorContext) CancelTimer(id uint64) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	return c.rt.timers.cancel(id)
}

// Sleep suspends the calling actor for ms milliseconds, preserving any
// unrelated messages that arrive in the meantime (spec.md §4.5).
func (c *ActorContext) Sleep(ms int64) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	timerID, st := c.rt.after(c.actor, ms)
	if !st.Ok() {
		return st
	}
	_, st = c.RecvSelective(func(m *Message) bool {
		return m.Class == MsgTimer && m.Sender == TimerSenderID && m.Tag == uint32(timerID)
	})
	return st
}

// registerWakeFD registers the scheduler wakeup handle with the poller so a
// worker thread's Signal() breaks PollIO out of an idle wait.
func (rt *Runtime) registerWakeFD() error {
	if wfd, ok := rt.wake.fd(); ok {
		return rt.poller.RegisterFD(wfd, EventRead, func(IOEvents) {
			rt.wake.Drain()
		})
	}
	return nil
}

// idleWait blocks on the multiplexer per spec.md §4.3's selection rule,
// returning ErrDeadlock per the policy in DESIGN.md if nothing is pending.
func (rt *Runtime) idleWait() error {
	if rt.timers.pool.Len() == 0 && !rt.hasPendingIO() {
		logDeadlock(rt.table.count())
		return ErrDeadlock
	}
	rt.state.Store(uint64(RuntimeSleeping))
	_, err := rt.poller.PollIO(int(rt.opts.schedulerIdleSleep / time.Millisecond))
	rt.state.Store(uint64(RuntimeRunning))
	return err
}

func (rt *Runtime) hasPendingIO() bool {
	return rt.files.reqRing.Len() > 0 || rt.files.compRing.Len() > 0
}

// drainSoftFires runs any timer callbacks queued by the portable
// (non-Linux) software timer fallback; see timer_other.go.
func (rt *Runtime) drainSoftFires() {
	rt.softFireMu.Lock()
	fires := rt.softFires
	rt.softFires = nil
	rt.softFireMu.Unlock()
	for _, fn := range fires {
		fn()
	}
}

// pendingSoftFire queues fn to run on the scheduler goroutine at the start
// of the next dispatch round, and wakes a blocked PollIO so it doesn't wait
// out its timeout. Called from the software timer goroutine (timer_other.go).
func (rt *Runtime) pendingSoftFire(fn func()) {
	rt.softFireMu.Lock()
	rt.softFires = append(rt.softFires, fn)
	rt.softFireMu.Unlock()
	_ = rt.wake.Signal()
}

// Cleanup forcibly kills every remaining live actor (notifying their links
// and monitors with ExitKilled) and tears down every subsystem. Call after
// Run returns, instead of Close, when Shutdown was requested with actors
// still alive. Actor goroutines parked mid-body are left blocked forever;
// Go gives no mechanism to force-unwind another goroutine's stack, so a
// killed actor's trampoline simply never resumes rather than being reaped.
func (rt *Runtime) Cleanup() error {
	for _, a := range rt.table.liveActorsSnapshot() {
		if a.State() == ActorDead {
			continue
		}
		a.exitReason = ExitKilled
		a.state.Store(uint64(ActorDead))
		rt.notifyDeath(a, ExitKilled, nil)
		rt.table.removeReady(a)
		rt.table.free(a.id)
	}
	return rt.Close()
}

// Close tears down every subsystem. Call after Run returns with no actors
// left alive; use Cleanup instead if actors may still be live. Calling Close
// again after Close or Cleanup has already run does nothing.
func (rt *Runtime) Close() error {
	select {
	case <-rt.files.stop:
		return nil
	default:
	}
	rt.files.close()
	rt.wake.Close()
	return rt.poller.Close()
}

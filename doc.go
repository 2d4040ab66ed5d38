// Package actorloop implements a small-footprint, cooperatively-scheduled
// actor runtime: a single context switcher that multiplexes many actors
// onto a fixed number of OS threads, each actor running inside its own
// goroutine but resumed one-at-a-time by the scheduler.
//
// # Architecture
//
// The runtime is built around a [Runtime] core owning the actor table,
// mailbox/IPC subsystem, link/monitor supervision, a timer set, a topic
// bus, and file/network I/O adapters. Actors are plain functions
// ([Func]) spawned with [Runtime.Spawn] or [Runtime.SpawnEx]; each runs
// on its own trampoline goroutine, but only one actor (or the scheduler
// itself) is ever the active party touching shared state at a given
// instant, so the core data structures need no locking.
//
// # Scheduling
//
// [Runtime.Run] drives a priority-with-round-robin loop across four
// priority levels ([PriorityCritical], [PriorityHigh], [PriorityNormal],
// [PriorityLow]), dispatching one ready actor at a time until it yields,
// blocks, or exits. An actor exits normally via [ActorContext.Exit],
// crashes on an unrecovered panic or a plain return from its [Func], or
// is terminated externally; all three paths converge on the same
// death-time supervision notification ([ActorContext.Link],
// [ActorContext.Monitor]).
//
// # Messaging
//
// [ActorContext.Send] supports both copy sends (payload duplicated into
// a fixed pool) and borrow sends (the sender blocks until the receiver
// releases the buffer via [ActorContext.Release]), matching the
// zero-copy and isolated-copy modes of a constrained-memory actor
// system. [ActorContext.Recv], [ActorContext.RecvSelective], and
// [ActorContext.RecvTimeout] provide ordered and selective mailbox
// receive. A process-wide topic bus ([ActorContext.BusCreate] and
// friends) supports publish/subscribe fan-out independent of the
// point-to-point mailbox path.
//
// # I/O
//
// File I/O is dispatched to a small worker-thread adapter that performs
// blocking syscalls off the scheduler thread and posts completions back
// through a lock-free ring; network I/O is driven directly from the
// scheduler's own multiplexer (epoll on Linux, a portable fallback
// elsewhere), since sockets can be polled non-blockingly without a
// worker thread.
//
// # Thread Safety
//
// [Runtime.Spawn], [Runtime.SpawnEx], and [Runtime.Shutdown] take no locks:
// call them before [Runtime.Run] starts or from inside an actor body, never
// from an unrelated goroutine while Run is active. Everything reachable only through
// [ActorContext] is intended to run on the owning actor's own
// goroutine, between a resume and the next yield; the scheduler
// enforces this by construction; it never resumes a second actor while
// the first has not yet suspended.
package actorloop

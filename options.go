// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package actorloop

import "time"

// runtimeOptions holds every compile-time constant spec.md §6 calls out as
// configurable, resolved from RuntimeOptions at New time.
type runtimeOptions struct {
	maxActors          int
	actorStackHint     int // advisory only; Go goroutines grow their own stacks
	payloadPoolSize    int
	maxMessageSize     int
	maxBuses           int
	maxBusEntries      int
	maxLinks           int
	maxMonitors        int
	maxTimers          int
	spscCapacity       int
	WorkerIdleSleep    time.Duration
	CompletionRetrySleep time.Duration
	schedulerIdleSleep time.Duration
	metricsEnabled     bool
}

// RuntimeOption configures a Runtime instance, mirroring the teacher's
// functional-options pattern (options.go's LoopOption) generalized to this
// package's configuration surface.
type RuntimeOption interface {
	applyRuntime(*runtimeOptions) error
}

type runtimeOptionImpl struct {
	fn func(*runtimeOptions) error
}

func (o *runtimeOptionImpl) applyRuntime(opts *runtimeOptions) error {
	return o.fn(opts)
}

// WithMaxActors sets the actor table's fixed capacity.
func WithMaxActors(n int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.maxActors = n
		return nil
	}}
}

// WithPayloadPool sets the payload pool's capacity and per-message size cap.
func WithPayloadPool(capacity, maxMessageSize int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.payloadPoolSize = capacity
		o.maxMessageSize = maxMessageSize
		return nil
	}}
}

// WithBusLimits sets the maximum number of buses and entries per bus.
func WithBusLimits(maxBuses, maxEntries int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.maxBuses = maxBuses
		o.maxBusEntries = maxEntries
		return nil
	}}
}

// WithLinkMonitorLimits sets the runtime-wide caps on simultaneously active
// links and monitors (spec.md §8's pool-exhaustion invariant extended to
// link and monitor bookkeeping).
func WithLinkMonitorLimits(maxLinks, maxMonitors int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.maxLinks = maxLinks
		o.maxMonitors = maxMonitors
		return nil
	}}
}

// WithTimerPool sets the maximum number of simultaneously armed timers.
func WithTimerPool(n int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.maxTimers = n
		return nil
	}}
}

// WithSPSCCapacity sets the file-adapter request/completion ring capacity
// (rounded up to a power of two).
func WithSPSCCapacity(n int) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.spscCapacity = n
		return nil
	}}
}

// WithWorkerIdleSleep sets how long an idle I/O worker sleeps between empty
// request-ring polls.
func WithWorkerIdleSleep(d time.Duration) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.WorkerIdleSleep = d
		return nil
	}}
}

// WithSchedulerIdleSleep sets the scheduler's idle-wait duration: the
// timeout (in whole milliseconds) passed to the poller's PollIO when no actor
// is READY, on both the epoll and the portable poller.
func WithSchedulerIdleSleep(d time.Duration) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.schedulerIdleSleep = d
		return nil
	}}
}

// WithMetrics enables scheduling-latency percentile tracking via Runtime.Metrics().
func WithMetrics(enabled bool) RuntimeOption {
	return &runtimeOptionImpl{func(o *runtimeOptions) error {
		o.metricsEnabled = enabled
		return nil
	}}
}

func resolveRuntimeOptions(opts []RuntimeOption) (*runtimeOptions, error) {
	cfg := &runtimeOptions{
		maxActors:            1024,
		payloadPoolSize:      4096,
		maxMessageSize:       4096,
		maxBuses:             64,
		maxBusEntries:        256,
		maxLinks:             4096,
		maxMonitors:          4096,
		maxTimers:            1024,
		spscCapacity:         1024,
		WorkerIdleSleep:      200 * time.Microsecond,
		CompletionRetrySleep: 50 * time.Microsecond,
		schedulerIdleSleep:   time.Millisecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyRuntime(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

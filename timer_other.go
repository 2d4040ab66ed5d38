//go:build !linux

package actorloop

import "time"

// timerHandle on non-Linux POSIX targets has no real kernel fd to attach to
// the portable poller, so it is backed by a time.Timer goroutine that wakes
// the scheduler's poller directly. This is the fallback path named in
// DESIGN.md; the Linux build (timer_linux.go) uses genuine timerfd handles.
type timerHandle interface {
	Close()
}

type softTimerHandle struct {
	stop chan struct{}
}

func newTimerHandle(rt *Runtime, ns int64, periodic bool, onFire func()) (timerHandle, error) {
	h := &softTimerHandle{stop: make(chan struct{})}
	d := time.Duration(ns)

	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-t.C:
				rt.pendingSoftFire(onFire)
				if !periodic {
					return
				}
				t.Reset(d)
			}
		}
	}()

	return h, nil
}

func (h *softTimerHandle) Close() {
	close(h.stop)
}

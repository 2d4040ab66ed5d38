//go:build linux

package actorloop

import "golang.org/x/sys/unix"

// wakeup is an eventfd the scheduler registers with its poller so worker
// threads (file I/O adapter) can break it out of an idle PollIO wait, per
// spec.md §4.8's "signals the scheduler via the wakeup eventfd."
type wakeup struct {
	efd int
}

// newWakeup creates an eventfd-based wakeup. p is unused on Linux (the
// eventfd is registered with the poller by the caller) but kept in the
// signature so scheduler.go can construct a wakeup uniformly across platforms.
func newWakeup(p *poller) (*wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &wakeup{efd: fd}, nil
}

// Signal wakes any blocked PollIO call. Safe to call from a worker thread.
func (w *wakeup) Signal() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(w.efd, buf[:])
	return err
}

// Drain clears the eventfd's counter after PollIO reports it readable.
func (w *wakeup) Drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.efd, buf[:])
		if err != nil {
			return
		}
	}
}

func (w *wakeup) Close() error {
	return unix.Close(w.efd)
}

// fd exposes the underlying eventfd so the scheduler can register it with
// the poller directly; the portable fallback has no real fd, hence the bool.
func (w *wakeup) fd() (int, bool) {
	return w.efd, true
}

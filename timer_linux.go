//go:build linux

package actorloop

import "golang.org/x/sys/unix"

// timerHandle is the underlying kernel timer handle of spec.md §3, on Linux
// a genuine timerfd registered with the scheduler's epoll multiplexer.
type timerHandle interface {
	Close()
}

type fdTimerHandle struct {
	rt *Runtime
	fd int
}

func newTimerHandle(rt *Runtime, ns int64, periodic bool, onFire func()) (timerHandle, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, err
	}

	spec := itimerspecFromNS(ns, periodic)
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	h := &fdTimerHandle{rt: rt, fd: fd}
	err = rt.poller.RegisterFD(fd, EventRead, func(IOEvents) {
		var buf [8]byte
		_, _ = unix.Read(fd, buf[:]) // acknowledge the expiration count
		onFire()
	})
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return h, nil
}

func itimerspecFromNS(ns int64, periodic bool) unix.ItimerSpec {
	value := unix.NsecToTimespec(ns)
	var interval unix.Timespec
	if periodic {
		interval = value
	}
	return unix.ItimerSpec{Interval: interval, Value: value}
}

func (h *fdTimerHandle) Close() {
	_ = h.rt.poller.UnregisterFD(h.fd)
	_ = unix.Close(h.fd)
}

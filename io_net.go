//go:build !windows

package actorloop

import (
	"net"

	"golang.org/x/sys/unix"
)

// The network adapter is the non-blocking-socket half of spec.md §4.8: unlike
// file I/O, sockets can be opened O_NONBLOCK and registered directly on the
// scheduler's own epoll multiplexer, so no worker thread is needed — the
// calling actor blocks, a single poller callback performs the (now
// non-blocking) syscall when the fd reports ready, and the actor is re-readied
// with the result. IPv4 TCP only; the wire-level detail is explicitly
// "not core-critical" per spec.md §4.8.

// NetListen creates a non-blocking TCP listening socket bound to address.
func (c *ActorContext) NetListen(address string) (int, Status) {
	if !c.requireRunning() {
		return -1, StatusNotFromActor
	}
	addr, err := net.ResolveTCPAddr("tcp4", address)
	if err != nil {
		return -1, StatusInvalid
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, ioStatus(err)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To4())
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, ioStatus(err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		return -1, ioStatus(err)
	}
	return fd, StatusOK
}

// NetAccept blocks the calling actor until a connection arrives on
// listenFD, then returns the new connection's fd.
func (c *ActorContext) NetAccept(listenFD int) (int, Status) {
	if !c.requireRunning() {
		return -1, StatusNotFromActor
	}
	a := c.actor
	rt := c.rt
	err := rt.poller.RegisterFD(listenFD, EventRead, func(IOEvents) {
		_ = rt.poller.UnregisterFD(listenFD)
		connFD, _, err := unix.Accept(listenFD)
		if err != nil {
			a.io = ioResult{status: ioStatus(err)}
		} else {
			_ = unix.SetNonblock(connFD, true)
			a.io = ioResult{status: StatusOK, resultFD: connFD}
		}
		rt.ready(a)
	})
	if err != nil {
		return -1, ioStatus(err)
	}
	c.block()
	return a.io.resultFD, a.io.status
}

// NetDial opens a non-blocking connection to address, suspending the calling
// actor until the connection completes or fails.
func (c *ActorContext) NetDial(address string) (int, Status) {
	if !c.requireRunning() {
		return -1, StatusNotFromActor
	}
	addr, err := net.ResolveTCPAddr("tcp4", address)
	if err != nil {
		return -1, StatusInvalid
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, ioStatus(err)
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To4())

	connErr := unix.Connect(fd, sa)
	if connErr == nil {
		return fd, StatusOK // connected synchronously (rare, but valid)
	}
	if connErr != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return -1, ioStatus(connErr)
	}

	a := c.actor
	rt := c.rt
	regErr := rt.poller.RegisterFD(fd, EventWrite, func(IOEvents) {
		_ = rt.poller.UnregisterFD(fd)
		errno, _ := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if errno != 0 {
			a.io = ioResult{status: ioStatus(unix.Errno(errno)), resultFD: fd}
		} else {
			a.io = ioResult{status: StatusOK, resultFD: fd}
		}
		rt.ready(a)
	})
	if regErr != nil {
		_ = unix.Close(fd)
		return -1, ioStatus(regErr)
	}
	c.block()
	if !a.io.status.Ok() {
		_ = unix.Close(fd)
		return -1, a.io.status
	}
	return fd, StatusOK
}

// NetRead blocks the calling actor until fd is readable, then reads into buf.
func (c *ActorContext) NetRead(fd int, buf []byte) (int, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	a := c.actor
	rt := c.rt
	err := rt.poller.RegisterFD(fd, EventRead, func(IOEvents) {
		_ = rt.poller.UnregisterFD(fd)
		n, err := unix.Read(fd, buf)
		switch {
		case err != nil:
			a.io = ioResult{status: ioStatus(err)}
		case n == 0:
			a.io = ioResult{status: StatusClosed}
		default:
			a.io = ioResult{status: StatusOK, resultN: n}
		}
		rt.ready(a)
	})
	if err != nil {
		return 0, ioStatus(err)
	}
	c.block()
	return a.io.resultN, a.io.status
}

// NetWrite blocks the calling actor until fd is writable, then writes data.
func (c *ActorContext) NetWrite(fd int, data []byte) (int, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	a := c.actor
	rt := c.rt
	err := rt.poller.RegisterFD(fd, EventWrite, func(IOEvents) {
		_ = rt.poller.UnregisterFD(fd)
		n, err := unix.Write(fd, data)
		if err != nil {
			a.io = ioResult{status: ioStatus(err)}
		} else {
			a.io = ioResult{status: StatusOK, resultN: n}
		}
		rt.ready(a)
	})
	if err != nil {
		return 0, ioStatus(err)
	}
	c.block()
	return a.io.resultN, a.io.status
}

// NetClose closes a socket fd opened via NetListen/NetAccept/NetDial.
func (c *ActorContext) NetClose(fd int) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	_ = c.rt.poller.UnregisterFD(fd)
	if err := unix.Close(fd); err != nil {
		return ioStatus(err)
	}
	return StatusOK
}

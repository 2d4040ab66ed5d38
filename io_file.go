package actorloop

import (
	"errors"
	"io"
	"os"
	"time"
)

type fileOp int

const (
	opOpen fileOp = iota
	opClose
	opRead
	opPread
	opWrite
	opPwrite
	opSync
)

// fileRequest crosses the scheduler->worker SPSC ring, per spec.md §4.8.
type fileRequest struct {
	actor  ActorID
	op     fileOp
	fd     int
	path   string
	buf    []byte
	offset int64
	flags  int
	perm   os.FileMode
}

// fileCompletion crosses the worker->scheduler SPSC ring.
type fileCompletion struct {
	actor    ActorID
	status   Status
	resultFD int
	resultN  int
	data     []byte // populated for read/pread
}

// fileAdapter is the file-I/O worker thread of spec.md §4.8: a long-lived
// goroutine that drains requests, performs the blocking syscall, and posts a
// completion, waking the scheduler via the shared eventfd so a blocked
// PollIO returns promptly instead of waiting out its timeout.
type fileAdapter struct {
	rt       *Runtime
	reqRing  *spscRing[fileRequest]
	compRing *spscRing[fileCompletion]
	openFDs  map[int]*os.File
	nextFD   int
	stop     chan struct{}
}

func newFileAdapter(rt *Runtime, capacity int) *fileAdapter {
	fa := &fileAdapter{
		rt:       rt,
		reqRing:  newSPSCRing[fileRequest](capacity),
		compRing: newSPSCRing[fileCompletion](capacity),
		openFDs:  make(map[int]*os.File),
		nextFD:   3,
		stop:     make(chan struct{}),
	}
	go fa.run()
	return fa
}

func (fa *fileAdapter) run() {
	idle := fa.rt.opts.WorkerIdleSleep
	for {
		select {
		case <-fa.stop:
			return
		default:
		}
		req, ok := fa.reqRing.Pop()
		if !ok {
			time.Sleep(idle)
			continue
		}
		comp := fa.execute(req)
		for !fa.compRing.Push(comp) {
			time.Sleep(fa.rt.opts.CompletionRetrySleep)
		}
		_ = fa.rt.wake.Signal()
	}
}

func (fa *fileAdapter) execute(req fileRequest) fileCompletion {
	switch req.op {
	case opOpen:
		f, err := os.OpenFile(req.path, req.flags, req.perm)
		if err != nil {
			return fileCompletion{actor: req.actor, status: ioStatus(err)}
		}
		fd := fa.nextFD
		fa.nextFD++
		fa.openFDs[fd] = f
		return fileCompletion{actor: req.actor, status: StatusOK, resultFD: fd}

	case opClose:
		f, ok := fa.openFDs[req.fd]
		if !ok {
			return fileCompletion{actor: req.actor, status: StatusInvalid}
		}
		delete(fa.openFDs, req.fd)
		if err := f.Close(); err != nil {
			return fileCompletion{actor: req.actor, status: ioStatus(err)}
		}
		return fileCompletion{actor: req.actor, status: StatusOK}

	case opRead, opPread:
		f, ok := fa.openFDs[req.fd]
		if !ok {
			return fileCompletion{actor: req.actor, status: StatusInvalid}
		}
		buf := make([]byte, len(req.buf))
		var n int
		var err error
		if req.op == opPread {
			n, err = f.ReadAt(buf, req.offset)
		} else {
			n, err = f.Read(buf)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if n > 0 {
					return fileCompletion{actor: req.actor, status: StatusOK, resultN: n, data: buf[:n]}
				}
				return fileCompletion{actor: req.actor, status: StatusClosed}
			}
			return fileCompletion{actor: req.actor, status: ioStatus(err)}
		}
		return fileCompletion{actor: req.actor, status: StatusOK, resultN: n, data: buf[:n]}

	case opWrite, opPwrite:
		f, ok := fa.openFDs[req.fd]
		if !ok {
			return fileCompletion{actor: req.actor, status: StatusInvalid}
		}
		var n int
		var err error
		if req.op == opPwrite {
			n, err = f.WriteAt(req.buf, req.offset)
		} else {
			n, err = f.Write(req.buf)
		}
		if err != nil {
			return fileCompletion{actor: req.actor, status: ioStatus(err)}
		}
		return fileCompletion{actor: req.actor, status: StatusOK, resultN: n}

	case opSync:
		f, ok := fa.openFDs[req.fd]
		if !ok {
			return fileCompletion{actor: req.actor, status: StatusInvalid}
		}
		if err := f.Sync(); err != nil {
			return fileCompletion{actor: req.actor, status: ioStatus(err)}
		}
		return fileCompletion{actor: req.actor, status: StatusOK}

	default:
		return fileCompletion{actor: req.actor, status: StatusInvalid}
	}
}

func (fa *fileAdapter) close() {
	close(fa.stop)
}

// drainCompletions is called by the scheduler once per dispatch round (§4.3
// "before each selection round, drain the file-I/O... completion paths").
func (fa *fileAdapter) drainCompletions(rt *Runtime) {
	for {
		comp, ok := fa.compRing.Pop()
		if !ok {
			return
		}
		a, ok := rt.table.lookup(comp.actor)
		if !ok {
			continue
		}
		a.io = ioResult{status: comp.status, resultFD: comp.resultFD, resultN: comp.resultN}
		if comp.data != nil {
			a.fileReadBuf = comp.data
		}
		rt.ready(a)
	}
}

// submitFileRequest pushes req onto the request ring, spin-yielding the calling actor
// cooperatively (spec.md §4.8's "spin-push with cooperative yields on full")
// rather than busy-looping the OS thread.
func (c *ActorContext) submitFileRequest(req fileRequest) {
	if !c.requireRunning() {
		c.actor.io.status = StatusNotFromActor
		return
	}
	fa := c.rt.files
	for !fa.reqRing.Push(req) {
		c.Yield()
	}
	c.block()
}

// FileOpen opens a file, returning a runtime-scoped file descriptor handle.
func (c *ActorContext) FileOpen(path string, flags int, perm os.FileMode) (int, Status) {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opOpen, path: path, flags: flags, perm: perm})
	return c.actor.io.resultFD, c.actor.io.status
}

// FileClose closes a previously opened file descriptor.
func (c *ActorContext) FileClose(fd int) Status {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opClose, fd: fd})
	return c.actor.io.status
}

// FileRead reads up to len(buf) bytes from fd's current position.
func (c *ActorContext) FileRead(fd int, buf []byte) (int, Status) {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opRead, fd: fd, buf: buf})
	n := copy(buf, c.actor.fileReadBuf)
	c.actor.fileReadBuf = nil
	return n, c.actor.io.status
}

// FilePread reads up to len(buf) bytes from fd at the given offset.
func (c *ActorContext) FilePread(fd int, buf []byte, offset int64) (int, Status) {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opPread, fd: fd, buf: buf, offset: offset})
	n := copy(buf, c.actor.fileReadBuf)
	c.actor.fileReadBuf = nil
	return n, c.actor.io.status
}

// FileWrite writes data to fd at its current position.
func (c *ActorContext) FileWrite(fd int, data []byte) (int, Status) {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opWrite, fd: fd, buf: data})
	return c.actor.io.resultN, c.actor.io.status
}

// FilePwrite writes data to fd at the given offset.
func (c *ActorContext) FilePwrite(fd int, data []byte, offset int64) (int, Status) {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opPwrite, fd: fd, buf: data, offset: offset})
	return c.actor.io.resultN, c.actor.io.status
}

// FileSync flushes fd to stable storage.
func (c *ActorContext) FileSync(fd int) Status {
	c.submitFileRequest(fileRequest{actor: c.actor.id, op: opSync, fd: fd})
	return c.actor.io.status
}

package actorloop

// Send delivers a message to the actor to, either by copying data into a
// pool-owned buffer (SendCopy) or by handing the receiver a pointer into the
// caller's own buffer and blocking the caller until Release (SendBorrow).
//
// Because at most one actor goroutine is ever runnable at a time (the
// scheduler does not resume the next actor until the current one has
// suspended), every mutation here — mailbox append, payload pool alloc,
// ready-queue update — needs no lock even though it executes on the calling
// actor's own goroutine rather than the scheduler's.
func (c *ActorContext) Send(to ActorID, class MsgClass, tag uint32, data []byte, mode SendMode) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	rt := c.rt
	target, ok := rt.table.lookup(to)
	if !ok {
		return StatusInvalid
	}

	switch mode {
	case SendCopy:
		slot, st := rt.payloads.alloc(data)
		if !st.Ok() {
			return st
		}
		msg := &Message{Sender: c.actor.id, Class: class, Tag: tag, Payload: slot.buf, slot: slot}
		rt.deliver(target, msg)
		return StatusOK

	case SendBorrow:
		bw := newBorrowWait()
		msg := &Message{Sender: c.actor.id, Class: class, Tag: tag, Payload: data, borrow: true, borrower: bw}
		rt.deliver(target, msg)
		c.block()
		return <-bw.done

	default:
		return StatusInvalid
	}
}

// Recv dequeues the oldest mailbox entry, blocking if the mailbox is empty.
func (c *ActorContext) Recv() (*Message, Status) {
	return c.RecvSelective(func(*Message) bool { return true })
}

// RecvSelective returns the first mailbox entry (in arrival order) for which
// pred holds, leaving non-matching entries in place, per spec.md §4.4. It
// blocks, re-scanning after every newly delivered message, until a match
// arrives.
func (c *ActorContext) RecvSelective(pred func(*Message) bool) (*Message, Status) {
	if !c.requireRunning() {
		return nil, StatusNotFromActor
	}
	a := c.actor
	for {
		if msg := a.mailbox.removeMatching(pred); msg != nil {
			a.current = msg
			return msg, StatusOK
		}
		c.block()
	}
}

// RecvTimeout behaves like Recv but gives up with StatusTimeout after ms
// milliseconds if no message arrives first. It is implemented on top of
// After + RecvSelective exactly as spec.md §4.5 describes sleep, filtering
// for the companion timer's own tick so unrelated timer messages owned by
// other in-flight timers are not mistaken for this one.
func (c *ActorContext) RecvTimeout(ms int64) (*Message, Status) {
	if !c.requireRunning() {
		return nil, StatusNotFromActor
	}
	timerID, st := c.rt.after(c.actor, ms)
	if !st.Ok() {
		return nil, st
	}

	msg, st := c.RecvSelective(func(m *Message) bool {
		if m.Class == MsgTimer && m.Sender == TimerSenderID && m.Tag == uint32(timerID) {
			return true
		}
		return m.Class != MsgTimer
	})
	if st.Ok() && msg.Class == MsgTimer && msg.Tag == uint32(timerID) {
		return nil, StatusTimeout
	}
	c.rt.cancelTimer(timerID)
	return msg, st
}

// Release returns a message's payload to the pool (copy mode) or wakes the
// blocked sender (borrow mode). It is the receiver's responsibility to call
// this exactly once per message it has finished using.
func (c *ActorContext) Release(msg *Message) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	if msg == nil {
		return StatusInvalid
	}
	if c.actor.current == msg {
		c.actor.current = nil
	}
	if msg.borrow {
		if msg.borrower != nil {
			msg.borrower.done <- StatusOK
		}
		if sender, ok := c.rt.table.lookup(msg.Sender); ok {
			c.rt.ready(sender)
		}
		return StatusOK
	}
	if msg.slot != nil {
		c.rt.payloads.free(msg.slot)
	}
	return StatusOK
}

package actorloop

import "sync/atomic"

// exitMsg is the decoded form of an exit notification, spec.md §6's
// `{actor_id, reason}` on-wire layout. In this Go implementation the "wire
// layout" is just the struct itself, carried as Message.Payload via gob-free
// direct encoding (encodeExit/decodeExit below), since there is no real wire
// to cross — only the mailbox.
type exitMsg struct {
	ActorID ActorID
	Reason  ExitReason
}

const exitMsgSize = 8 // 4 bytes id + 4 bytes reason, matching spec.md §6's on-wire layout

func encodeExit(m exitMsg) []byte {
	buf := make([]byte, exitMsgSize)
	putU32(buf[0:4], uint32(m.ActorID))
	putU32(buf[4:8], uint32(m.Reason))
	return buf
}

// IsExit reports whether msg is a scheduler-generated exit notification.
func IsExit(msg *Message) bool {
	return msg != nil && msg.Sender == SystemSenderID && len(msg.Payload) == exitMsgSize
}

// DecodeExit decodes msg's payload into an (actor id, reason) pair. Callers
// should check IsExit first.
func DecodeExit(msg *Message) (ActorID, ExitReason, Status) {
	if !IsExit(msg) {
		return InvalidActorID, ExitNormal, StatusInvalid
	}
	return ActorID(getU32(msg.Payload[0:4])), ExitReason(getU32(msg.Payload[4:8])), StatusOK
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

var monitorRefCounter atomic.Uint64

// Link creates a reciprocal link between the calling actor and target.
// Rejects self-links, duplicates, and dead targets, per spec.md §4.6. Fails
// with NOMEM once the runtime-wide link cap (opts.maxLinks, set by
// WithLinkMonitorLimits) is reached, per spec.md §8's pool-exhaustion invariant
// extending to link entries, not just mailbox/payload/timer pools.
func (c *ActorContext) Link(target ActorID) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	rt := c.rt
	self := c.actor
	if target == self.id {
		return StatusInvalid
	}
	peer, ok := rt.table.lookup(target)
	if !ok {
		return StatusInvalid
	}
	for _, l := range self.links {
		if l.peer == target {
			return StatusInvalid
		}
	}
	if rt.linkCount >= rt.opts.maxLinks {
		return StatusNoMem
	}
	self.links = append(self.links, linkEntry{peer: target})
	peer.links = append(peer.links, linkEntry{peer: self.id})
	rt.linkCount++
	return StatusOK
}

// Unlink removes both sides of a link, if present.
func (c *ActorContext) Unlink(target ActorID) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	rt := c.rt
	self := c.actor
	if !removeLink(&self.links, target) {
		return StatusInvalid
	}
	if peer, ok := rt.table.lookup(target); ok {
		removeLink(&peer.links, self.id)
	}
	rt.linkCount--
	return StatusOK
}

func removeLink(links *[]linkEntry, target ActorID) bool {
	for i, l := range *links {
		if l.peer == target {
			*links = append((*links)[:i], (*links)[i+1:]...)
			return true
		}
	}
	return false
}

// Monitor creates a one-sided monitor of target, returning a strictly
// positive, run-unique reference number (spec.md §8's monitor-uniqueness
// invariant). Fails with NOMEM once the runtime-wide monitor cap
// (opts.maxMonitors) is reached.
func (c *ActorContext) Monitor(target ActorID) (uint64, Status) {
	if !c.requireRunning() {
		return 0, StatusNotFromActor
	}
	rt := c.rt
	if _, ok := rt.table.lookup(target); !ok {
		return 0, StatusInvalid
	}
	if rt.monitorCount >= rt.opts.maxMonitors {
		return 0, StatusNoMem
	}
	ref := monitorRefCounter.Add(1)
	c.actor.monitors = append(c.actor.monitors, monitorEntry{peer: target, ref: ref})
	rt.monitorCount++
	return ref, StatusOK
}

// Demonitor removes a previously created monitor by reference number.
func (c *ActorContext) Demonitor(ref uint64) Status {
	if !c.requireRunning() {
		return StatusNotFromActor
	}
	m := c.actor.monitors
	for i, e := range m {
		if e.ref == ref {
			c.actor.monitors = append(m[:i], m[i+1:]...)
			c.rt.monitorCount--
			return StatusOK
		}
	}
	return StatusInvalid
}

// notifyDeath runs the death-time traversal of spec.md §4.6, in the order
// decided in DESIGN.md: links first, then monitors. Peer lists are
// snapshotted before any mutation so cleanup of one peer's list never
// invalidates iteration over another's, per spec.md §9's "collect into a
// small local list before modifying anyone."
func (rt *Runtime) notifyDeath(dead *Actor, reason ExitReason, panicValue any) {
	payload := encodeExit(exitMsg{ActorID: dead.id, Reason: reason})

	linkPeers := make([]ActorID, len(dead.links))
	copy(linkPeers, peerIDs(dead.links))

	for _, peerID := range linkPeers {
		peer, ok := rt.table.lookup(peerID)
		if !ok {
			continue
		}
		removeLink(&peer.links, dead.id)
		rt.linkCount--
		rt.deliverSystem(peer, payload)
	}
	dead.links = nil

	for _, a := range rt.table.liveActorsSnapshot() {
		if a.id == dead.id {
			continue
		}
		kept := a.monitors[:0]
		for _, m := range a.monitors {
			if m.peer == dead.id {
				rt.monitorCount--
				rt.deliverSystem(a, payload)
				continue
			}
			kept = append(kept, m)
		}
		a.monitors = kept
	}

	rt.monitorCount -= len(dead.monitors)
	dead.monitors = nil
}

func peerIDs(links []linkEntry) []ActorID {
	ids := make([]ActorID, len(links))
	for i, l := range links {
		ids[i] = l.peer
	}
	return ids
}

package actorloop

// MsgClass distinguishes why a message was delivered, per spec.md §3.
type MsgClass uint32

const (
	// MsgNormal is an ordinary actor-to-actor message.
	MsgNormal MsgClass = iota
	// MsgTimer is a timer tick, sender == TimerSenderID, tag == timer id.
	MsgTimer
	// MsgSystem is a scheduler-generated notification (currently: exit messages).
	MsgSystem
)

func (c MsgClass) String() string {
	switch c {
	case MsgNormal:
		return "normal"
	case MsgTimer:
		return "timer"
	case MsgSystem:
		return "system"
	default:
		return "unknown"
	}
}

// SendMode selects between the copy and zero-copy borrow send paths of
// spec.md §4.4.
type SendMode int

const (
	SendCopy SendMode = iota
	SendBorrow
)

// Message is one mailbox entry, in arrival order. Payload is either an
// owned, pool-backed copy (copy mode) or a caller-owned buffer the sender is
// blocked on (borrow mode) — see payload.go and ipc.go.
type Message struct {
	Sender  ActorID
	Class   MsgClass
	Tag     uint32
	Payload []byte

	borrow  bool
	slot    *payloadSlot // set in copy mode, nil in borrow mode
	borrower *borrowWait  // set in borrow mode, nil in copy mode

	next *Message // mailbox intrusive singly-linked list
}

// mailbox is a singly-linked FIFO queue of Message entries, owned
// exclusively by the scheduler thread. Insertion is always at the tail;
// popFront removes from the head and removeMatching can unlink an entry at
// any position.
type mailbox struct {
	head, tail *Message
	len        int
}

func (m *mailbox) empty() bool { return m.head == nil }

func (m *mailbox) append(msg *Message) {
	msg.next = nil
	if m.tail == nil {
		m.head = msg
		m.tail = msg
	} else {
		m.tail.next = msg
		m.tail = msg
	}
	m.len++
}

// popFront removes and returns the oldest entry, or nil if empty.
func (m *mailbox) popFront() *Message {
	msg := m.head
	if msg == nil {
		return nil
	}
	m.head = msg.next
	if m.head == nil {
		m.tail = nil
	}
	msg.next = nil
	m.len--
	return msg
}

// removeMatching scans in arrival order for the first entry satisfying pred,
// unlinks and returns it, leaving all other entries in place and in order —
// the mechanism behind recv_selective (spec.md §4.4).
func (m *mailbox) removeMatching(pred func(*Message) bool) *Message {
	var prev *Message
	for cur := m.head; cur != nil; cur = cur.next {
		if pred(cur) {
			if prev == nil {
				m.head = cur.next
			} else {
				prev.next = cur.next
			}
			if cur == m.tail {
				m.tail = prev
			}
			cur.next = nil
			m.len--
			return cur
		}
		prev = cur
	}
	return nil
}

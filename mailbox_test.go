package actorloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFOOrder(t *testing.T) {
	m := &mailbox{}
	assert.True(t, m.empty())

	m.append(&Message{Tag: 1})
	m.append(&Message{Tag: 2})
	m.append(&Message{Tag: 3})
	assert.False(t, m.empty())

	first := m.popFront()
	require.NotNil(t, first)
	assert.Equal(t, uint32(1), first.Tag)

	second := m.popFront()
	require.NotNil(t, second)
	assert.Equal(t, uint32(2), second.Tag)

	third := m.popFront()
	require.NotNil(t, third)
	assert.Equal(t, uint32(3), third.Tag)

	assert.Nil(t, m.popFront())
	assert.True(t, m.empty())
}

// TestMailbox_RemoveMatchingPreservesOrder covers recv_selective's contract:
// the first matching entry is removed, everything else stays in arrival order.
func TestMailbox_RemoveMatchingPreservesOrder(t *testing.T) {
	m := &mailbox{}
	m.append(&Message{Tag: 1})
	m.append(&Message{Tag: 2})
	m.append(&Message{Tag: 3})
	m.append(&Message{Tag: 4})

	matched := m.removeMatching(func(msg *Message) bool { return msg.Tag == 3 })
	require.NotNil(t, matched)
	assert.Equal(t, uint32(3), matched.Tag)

	var remaining []uint32
	for msg := m.popFront(); msg != nil; msg = m.popFront() {
		remaining = append(remaining, msg.Tag)
	}
	assert.Equal(t, []uint32{1, 2, 4}, remaining)
}

func TestMailbox_RemoveMatchingNoneFound(t *testing.T) {
	m := &mailbox{}
	m.append(&Message{Tag: 1})
	assert.Nil(t, m.removeMatching(func(msg *Message) bool { return msg.Tag == 99 }))
	assert.Equal(t, 1, m.len)
}

// TestMailbox_RemoveMatchingTail covers unlinking the tail entry specifically,
// since that branch has to fix up m.tail rather than just m.head.
func TestMailbox_RemoveMatchingTail(t *testing.T) {
	m := &mailbox{}
	m.append(&Message{Tag: 1})
	m.append(&Message{Tag: 2})

	matched := m.removeMatching(func(msg *Message) bool { return msg.Tag == 2 })
	require.NotNil(t, matched)

	m.append(&Message{Tag: 3})
	var remaining []uint32
	for msg := m.popFront(); msg != nil; msg = m.popFront() {
		remaining = append(remaining, msg.Tag)
	}
	assert.Equal(t, []uint32{1, 3}, remaining)
}

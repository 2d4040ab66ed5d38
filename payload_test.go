package actorloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPayloadPool_RoundTripExactBytes is spec.md §8 invariant 4: a payload
// copy-allocated then read back reproduces the original bytes exactly. This
// guards specifically against a pool slot's pre-sized backing buffer being
// zeroed out from under it on first allocation.
func TestPayloadPool_RoundTripExactBytes(t *testing.T) {
	p := newPayloadPool(4, 64)

	want := []byte("exact bytes, round trip")
	slot, st := p.alloc(want)
	require.True(t, st.Ok())
	assert.Equal(t, want, slot.buf)

	p.free(slot)

	// reallocating the same slot must not resurrect the old contents.
	slot2, st := p.alloc([]byte("next"))
	require.True(t, st.Ok())
	assert.Equal(t, []byte("next"), slot2.buf)
}

func TestPayloadPool_RejectsOversizedPayload(t *testing.T) {
	p := newPayloadPool(2, 4)
	_, st := p.alloc([]byte("too long"))
	assert.Equal(t, INVALID, st.Code)
}

// TestPayloadPool_ExhaustionDegradesCleanly is spec.md §8 invariant 3 applied
// to the payload pool specifically.
func TestPayloadPool_ExhaustionDegradesCleanly(t *testing.T) {
	p := newPayloadPool(2, 8)
	first, st := p.alloc([]byte("a"))
	require.True(t, st.Ok())
	_, st = p.alloc([]byte("b"))
	require.True(t, st.Ok())

	_, st = p.alloc([]byte("c"))
	assert.Equal(t, NOMEM, st.Code)

	assert.Equal(t, []byte("a"), first.buf)
}

func TestPayloadPool_FreeNilIsNoop(t *testing.T) {
	p := newPayloadPool(1, 8)
	p.free(nil)
}

package actorloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_OkAndError(t *testing.T) {
	assert.True(t, StatusOK.Ok())
	assert.False(t, StatusNoMem.Ok())
	assert.Equal(t, "NOMEM: pool exhausted", StatusNoMem.Error())

	bare := Status{Code: INVALID}
	assert.Equal(t, "INVALID", bare.Error())
}

func TestCrashError_UnwrapsUnderlyingError(t *testing.T) {
	cause := errors.New("boom")
	ce := &CrashError{ActorID: 7, Value: cause}
	assert.ErrorIs(t, ce, cause)
	assert.Contains(t, ce.Error(), "actor 7 crashed")
}

func TestCrashError_NonErrorValueUnwrapsToNil(t *testing.T) {
	ce := &CrashError{ActorID: 1, Value: "not an error"}
	assert.Nil(t, ce.Unwrap())
}

func TestPoolExhaustedError_Message(t *testing.T) {
	pe := &PoolExhaustedError{Pool: "timer"}
	assert.Equal(t, "actorloop: timer pool exhausted", pe.Error())
}

func TestIOStatus_WrapsCause(t *testing.T) {
	cause := errors.New("ENOENT")
	st := ioStatus(cause)
	assert.Equal(t, IO, st.Code)
	assert.Equal(t, "ENOENT", st.Msg)

	assert.Equal(t, StatusIO, ioStatus(nil))
}

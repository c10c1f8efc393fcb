package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(TransientFetchFailure, "engine run failed", cause)
	require.Error(t, err)
	assert.True(t, Is(err, TransientFetchFailure))
	assert.False(t, Is(err, PermanentFetchFailure))
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(TransientFetchFailure, "x", nil))
}

func TestOfOrDefault(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, InternalInvariantViolation, OfOrDefault(plain, InternalInvariantViolation))

	classified := New(EngineUnavailable, "no adapter")
	assert.Equal(t, EngineUnavailable, OfOrDefault(classified, InternalInvariantViolation))
}

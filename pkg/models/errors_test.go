package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{"config", NewError(ConfigError, "bad range %q", "5-1"), ErrConfig, ConfigError},
		{"input", NewError(InputError, "image too small"), ErrInput, InputError},
		{"range", NewError(RangeError, "window exceeds %d", 1024), ErrRange, RangeError},
		{"computation", NewError(ComputationError, "no variance"), ErrComputation, ComputationError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			assert.Equal(t, tc.kind, KindOf(tc.err))

			wrapped := fmt.Errorf("analyzing foo.jpg: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Equal(t, tc.kind, KindOf(wrapped))
		})
	}
}

func TestErrorIsDistinguishesKinds(t *testing.T) {
	err := NewError(RangeError, "out of range")
	assert.False(t, errors.Is(err, ErrInput))
	assert.False(t, errors.Is(err, ErrConfig))
}

func TestWrapError(t *testing.T) {
	base := errors.New("unexpected EOF")
	err := WrapError(InputError, base, "decoding %s", "a.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInput)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "decoding a.jpg")

	// An existing kind survives re-wrapping with a different one
	rewrapped := WrapError(ComputationError, err, "outer")
	assert.Equal(t, InputError, KindOf(rewrapped))

	assert.NoError(t, WrapError(InputError, nil, "nothing"))
	assert.Equal(t, ErrorKind(0), KindOf(base))
}

func TestMismatchedPositions(t *testing.T) {
	r := &LocalizationResult{}
	r.SecondaryQuantization[0][1] = 10
	r.SecondaryQuantization[1][0] = 12
	r.PrimaryQuantization[0][1] = 10
	r.PrimaryQuantization[1][0] = 7
	assert.Equal(t, 1, r.MismatchedPositions())
}

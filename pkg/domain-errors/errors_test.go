package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("new carries code and message", func(t *testing.T) {
		err := New(CodeValidation, "course ids are required")
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeValidation))
		assert.Equal(t, "course ids are required", err.Error())
	})

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(cause, CodeUnavailable, "lock store unavailable")
		assert.ErrorIs(t, err, cause)
		assert.True(t, Is(err, CodeUnavailable))
		assert.Contains(t, err.Error(), "dial tcp: refused")
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("start: %w", New(CodeConflict, "held"))
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("uncoded errors report internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.Equal(t, Code(""), CodeOf(nil))
	})
}

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsStopUnwrapsWrappedError(t *testing.T) {
	stop := NewStop(7, "shutting down")
	wrapped := fmt.Errorf("handler failed: %w", stop)

	got, ok := AsStop(wrapped)
	assert.True(t, ok)
	assert.Same(t, stop, got)
}

func TestAsStopFalseForUnrelatedError(t *testing.T) {
	_, ok := AsStop(errors.New("boom"))
	assert.False(t, ok)
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewService("warm up", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "warm up")
}

func TestInvalidMessageErrorMessage(t *testing.T) {
	err := NewInvalidMessage("bad frame count", nil)
	assert.Equal(t, "invalid message: bad frame count", err.Error())

	wrapped := NewInvalidMessage("bad dataframe", errors.New("short varint"))
	assert.Contains(t, wrapped.Error(), "short varint")
}

func TestChannelErrorMessage(t *testing.T) {
	err := NewChannelError("control", "already bound")
	assert.Equal(t, `channel "control": already bound`, err.Error())
}

func TestTimeoutErrorMessage(t *testing.T) {
	err := NewTimeout("controller.waitReady")
	assert.Contains(t, err.Error(), "timed out")
}

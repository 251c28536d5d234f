package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

func TestCodeForStopErrorKeepsItsCode(t *testing.T) {
	stop := errs.NewStop(int(ErrOK), "end of stream")
	assert.Equal(t, ErrOK, codeFor(stop))
}

func TestCodeForOtherErrorMapsToInternalError(t *testing.T) {
	assert.Equal(t, ErrInternalError, codeFor(errs.NewChannelError("x", "boom")))
}

func TestResolveBatchDelegatesOnMinusOne(t *testing.T) {
	assert.Equal(t, 50, resolveBatch(-1, 50))
	assert.Equal(t, 10, resolveBatch(10, 50))
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 3, minInt(3, 5))
	assert.Equal(t, 3, minInt(5, 3))
}

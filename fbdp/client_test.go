package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

func TestClientHandleDataBeforeReadyIsProtocolViolation(t *testing.T) {
	c := NewClient("a.pipe", PipeSocketInput, "application/octet-stream", 0)
	session := newTestSession()

	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion}, Payload: []byte("x")}
	err := c.handleData(nil, session, msg)
	require.Error(t, err)

	stop, ok := errs.AsStop(err)
	require.True(t, ok)
	assert.Equal(t, int(ErrProtocolViolation), stop.Code)
}

func TestClientHandleDataAfterReadyConsumesCredit(t *testing.T) {
	c := NewClient("a.pipe", PipeSocketInput, "application/octet-stream", 0)
	session := newTestSession()
	dataOf(session).SetTransmit(1)

	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion}, Payload: []byte("x")}
	require.NoError(t, c.handleData(nil, session, msg))

	assert.Equal(t, 0, *dataOf(session).Transmit)
}

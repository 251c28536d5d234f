package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

func newTestSession() *channel.Session {
	return &channel.Session{Data: &SessionData{}}
}

func TestServerHandleDataBeforeReadyIsProtocolViolation(t *testing.T) {
	s := NewServer(0, 10)
	session := newTestSession()

	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion}, Payload: []byte("x")}
	err := s.handleData(nil, session, msg)
	require.Error(t, err)

	stop, ok := errs.AsStop(err)
	require.True(t, ok)
	assert.Equal(t, int(ErrProtocolViolation), stop.Code)
}

func TestServerHandleReadyNegotiatesTransmitCredit(t *testing.T) {
	s := NewServer(0, 10)
	session := newTestSession()

	ready := &Message{Header: Header{Type: MsgReady, Version: ProtocolVersion, TypeData: 5}}
	require.NoError(t, s.handleReady(nil, session, ready))

	data := dataOf(session)
	require.NotNil(t, data.Transmit)
	assert.Equal(t, 5, *data.Transmit)
	assert.False(t, data.AwaitReady)
}

func TestServerHandleDataAfterReadyConsumesCredit(t *testing.T) {
	s := NewServer(0, 10)
	session := newTestSession()
	dataOf(session).SetTransmit(2)

	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion}, Payload: []byte("x")}
	require.NoError(t, s.handleData(nil, session, msg))

	assert.Equal(t, 1, *dataOf(session).Transmit)
}

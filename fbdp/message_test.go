package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
)

func TestMessageOpenRoundTrip(t *testing.T) {
	m := &Message{
		Header: Header{Type: MsgOpen, Version: ProtocolVersion},
		Open: &wire.OpenDataframe{
			DataPipe: "input", PipeSocket: int(PipeSocketInput), DataFormat: "application/octet-stream",
		},
	}
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, m.Open, got.Open)
}

func TestMessageOpenRejectsEmptyDataPipe(t *testing.T) {
	open := (&wire.OpenDataframe{DataPipe: "", PipeSocket: int(PipeSocketInput), DataFormat: "x"}).Marshal()
	header := Header{Type: MsgOpen, Version: ProtocolVersion}.Encode()

	got := &Message{}
	err := got.FromFrames(nil, [][]byte{header, open})
	assert.Error(t, err)
}

func TestMessageOpenRejectsInvalidPipeSocket(t *testing.T) {
	open := (&wire.OpenDataframe{DataPipe: "p", PipeSocket: 99, DataFormat: "x"}).Marshal()
	header := Header{Type: MsgOpen, Version: ProtocolVersion}.Encode()

	got := &Message{}
	err := got.FromFrames(nil, [][]byte{header, open})
	assert.Error(t, err)
}

func TestMessageDataRoundTrip(t *testing.T) {
	m := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion, TypeData: 3}, Payload: []byte("payload")}
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, m.Payload, got.Payload)
}

func TestMessageDataRejectsMultiplePayloadFrames(t *testing.T) {
	header := Header{Type: MsgData, Version: ProtocolVersion}.Encode()
	got := &Message{}
	err := got.FromFrames(nil, [][]byte{header, []byte("a"), []byte("b")})
	assert.Error(t, err)
}

func TestMessageReadyCarriesTypeDataNoPayload(t *testing.T) {
	m := &Message{Header: Header{Type: MsgReady, Version: ProtocolVersion, TypeData: 16}}
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	assert.Len(t, frames, 1)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, uint16(16), got.Header.TypeData)
}

func TestMessageCloseRejectsEmptyDescription(t *testing.T) {
	errDesc := (&wire.ErrorDescription{Description: "", Code: 1}).Marshal()
	header := Header{Type: MsgClose, Version: ProtocolVersion}.Encode()

	got := &Message{}
	err := got.FromFrames(nil, [][]byte{header, errDesc})
	assert.Error(t, err)
}

func TestMessageCloseRoundTripWithCause(t *testing.T) {
	m := &Message{
		Header: Header{Type: MsgClose, Version: ProtocolVersion, TypeData: uint16(ErrOK)},
		Errors: []wire.ErrorDescription{{Description: "end of stream"}},
	}
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, m.Errors, got.Errors)
}

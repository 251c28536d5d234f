package fbdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Type: MsgData, Version: ProtocolVersion, Flags: FlagMore, TypeData: 42}
	frame := h.Encode()
	require.Len(t, frame, HeaderSize)

	got, err := DecodeHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsBadFOURCC(t *testing.T) {
	frame := Header{Type: MsgOpen, Version: ProtocolVersion}.Encode()
	frame[1] = 'Z'
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsWrongSize(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize+1))
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsVersionMismatch(t *testing.T) {
	frame := Header{Type: MsgOpen, Version: ProtocolVersion}.Encode()
	frame[4] = byte(MsgOpen)<<3 | (ProtocolVersion + 1)
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsReservedFlagBits(t *testing.T) {
	frame := Header{Type: MsgOpen, Version: ProtocolVersion}.Encode()
	frame[5] = 0x08
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderAcceptsKnownFlagCombination(t *testing.T) {
	frame := Header{Type: MsgData, Version: ProtocolVersion, Flags: FlagAckReq | FlagMore}.Encode()
	_, err := DecodeHeader(frame)
	assert.NoError(t, err)
}

func TestMsgTypeString(t *testing.T) {
	assert.Equal(t, "READY", MsgReady.String())
	assert.Equal(t, "INVALID", MsgType(99).String())
}

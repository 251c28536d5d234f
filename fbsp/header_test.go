package fbsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Type: MsgRequest, Version: ProtocolVersion, Flags: FlagAckReq, TypeData: PackAPI(3, 7), Token: 0xdeadbeef}
	frame := h.Encode()
	require.Len(t, frame, HeaderSize)

	got, err := DecodeHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsBadFOURCC(t *testing.T) {
	frame := Header{Type: MsgHello, Version: ProtocolVersion}.Encode()
	frame[0] = 'X'
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsWrongSize(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsUnknownType(t *testing.T) {
	frame := Header{Type: MsgHello, Version: ProtocolVersion}.Encode()
	frame[4] = byte(30)<<3 | ProtocolVersion
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsVersionMismatch(t *testing.T) {
	frame := Header{Type: MsgHello, Version: ProtocolVersion}.Encode()
	frame[4] = byte(MsgHello)<<3 | (ProtocolVersion + 1)
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsReservedFlagBits(t *testing.T) {
	frame := Header{Type: MsgHello, Version: ProtocolVersion}.Encode()
	frame[5] = 0x10
	_, err := DecodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeaderAcceptsKnownFlagCombination(t *testing.T) {
	frame := Header{Type: MsgRequest, Version: ProtocolVersion, Flags: FlagAckReq | FlagAckReply | FlagMore}.Encode()
	_, err := DecodeHeader(frame)
	assert.NoError(t, err)
}

func TestPackUnpackAPI(t *testing.T) {
	td := PackAPI(12, 200)
	iface, code := UnpackAPI(td)
	assert.Equal(t, byte(12), iface)
	assert.Equal(t, byte(200), code)
}

func TestPackUnpackError(t *testing.T) {
	td := PackError(ErrNotFound, MsgRequest)
	code, relatesTo := UnpackError(td)
	assert.Equal(t, ErrNotFound, code)
	assert.Equal(t, MsgRequest, relatesTo)
}

func TestMsgTypeString(t *testing.T) {
	assert.Equal(t, "REQUEST", MsgRequest.String())
	assert.Equal(t, "INVALID", MsgType(255).String())
}

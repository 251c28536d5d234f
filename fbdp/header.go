// Package fbdp implements the Firebird Butler Data Pipe protocol
// (spec.md §4.5, §6): credit-based batch negotiation between a producer
// and a consumer over a single pipe, framed over an 8-byte control
// header that mirrors FBSP's encoding.
package fbdp

import (
	"encoding/binary"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

// FOURCC identifies an FBDP control frame.
var FOURCC = [4]byte{'F', 'B', 'D', 'P'}

// ProtocolVersion is the only protocol revision this module speaks.
const ProtocolVersion = 1

const versionMask = 0x07

// HeaderSize is the fixed size of the FBDP control frame.
const HeaderSize = 8

// MsgType enumerates FBDP message types, this module's own numbering -
// same rationale as fbsp.MsgType (see DESIGN.md).
type MsgType byte

const (
	MsgUnknown MsgType = iota
	MsgOpen
	MsgReady
	MsgNoop
	MsgData
	MsgClose
)

var msgTypeNames = [...]string{"UNKNOWN", "OPEN", "READY", "NOOP", "DATA", "CLOSE"}

func (t MsgType) String() string {
	if int(t) < len(msgTypeNames) {
		return msgTypeNames[t]
	}
	return "INVALID"
}

// MsgFlag mirrors fbsp.MsgFlag's bit layout.
type MsgFlag byte

const (
	FlagNone     MsgFlag = 0
	FlagAckReq   MsgFlag = 1
	FlagAckReply MsgFlag = 2
	FlagMore     MsgFlag = 4
)

// ErrorCode enumerates FBDP wire error codes (spec.md §6, exact values).
// OK is not an error: it is the normal end-of-stream CLOSE code.
type ErrorCode int

const (
	ErrOK                       ErrorCode = 0
	ErrInvalidMessage           ErrorCode = 1
	ErrProtocolViolation        ErrorCode = 2
	ErrError                    ErrorCode = 3
	ErrInternalError            ErrorCode = 4
	ErrInvalidData              ErrorCode = 5
	ErrTimeout                  ErrorCode = 6
	ErrPipeEndpointUnavailable  ErrorCode = 100
	ErrVersionNotSupported      ErrorCode = 101
	ErrNotImplemented           ErrorCode = 102
	ErrDataFormatNotSupported   ErrorCode = 103
)

// PipeSocket identifies a pipe endpoint's declared role in OPEN.
type PipeSocket int

const (
	PipeSocketUnknown PipeSocket = 0
	PipeSocketInput   PipeSocket = 1
	PipeSocketOutput  PipeSocket = 2
)

// Header is the decoded 8-byte FBDP control frame.
type Header struct {
	Type     MsgType
	Version  byte
	Flags    MsgFlag
	TypeData uint16
}

// Encode serializes h to its 8-byte wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], FOURCC[:])
	buf[4] = byte(h.Type)<<3 | (h.Version & versionMask)
	buf[5] = byte(h.Flags)
	binary.BigEndian.PutUint16(buf[6:8], h.TypeData)
	return buf
}

// DecodeHeader parses the 8-byte FBDP control frame.
func DecodeHeader(frame []byte) (Header, error) {
	var h Header
	if len(frame) != HeaderSize {
		return h, errs.NewInvalidMessage("fbdp: header must be 8 bytes", nil)
	}
	if frame[0] != FOURCC[0] || frame[1] != FOURCC[1] || frame[2] != FOURCC[2] || frame[3] != FOURCC[3] {
		return h, errs.NewInvalidMessage("fbdp: bad FOURCC", nil)
	}
	h.Type = MsgType(frame[4] >> 3)
	h.Version = frame[4] & versionMask
	if h.Type == MsgUnknown || int(h.Type) >= len(msgTypeNames) {
		return h, errs.NewInvalidMessage("fbdp: unknown message type", nil)
	}
	if h.Version != ProtocolVersion {
		return h, errs.NewInvalidMessage("fbdp: version mismatch", nil)
	}
	h.Flags = MsgFlag(frame[5])
	if h.Flags & ^(FlagAckReq|FlagAckReply|FlagMore) != 0 {
		return h, errs.NewInvalidMessage("fbdp: reserved flag bits set", nil)
	}
	h.TypeData = binary.BigEndian.Uint16(frame[6:8])
	return h, nil
}

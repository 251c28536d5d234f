// Package fbsp implements the Firebird Butler Service Protocol
// (spec.md §4.4, §6): a request/reply protocol with sessions,
// cancellation, state reporting and ACK flows, framed over a 16-byte
// control header.
package fbsp

import (
	"encoding/binary"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
)

// FOURCC identifies an FBSP control frame.
var FOURCC = [4]byte{'F', 'B', 'S', 'P'}

// ProtocolVersion is the only protocol revision this module speaks.
const ProtocolVersion = 1

const versionMask = 0x07

// HeaderSize is the fixed size of the FBSP control frame.
const HeaderSize = 16

// MsgType enumerates FBSP message types. Values are this module's own
// numbering - the spec fixes only the 5-bit field width and the wire
// semantics of type_data per type, not literal integers for non-ERROR
// types (see DESIGN.md).
type MsgType byte

const (
	MsgUnknown MsgType = iota
	MsgHello
	MsgWelcome
	MsgRequest
	MsgReply
	MsgData
	MsgCancel
	MsgState
	MsgNoop
	MsgClose
	MsgError
)

var msgTypeNames = [...]string{
	"UNKNOWN", "HELLO", "WELCOME", "REQUEST", "REPLY", "DATA", "CANCEL",
	"STATE", "NOOP", "CLOSE", "ERROR",
}

func (t MsgType) String() string {
	if int(t) < len(msgTypeNames) {
		return msgTypeNames[t]
	}
	return "INVALID"
}

// MsgFlag is the FBSP control-frame flag bitset (spec.md §6).
type MsgFlag byte

const (
	FlagNone     MsgFlag = 0
	FlagAckReq   MsgFlag = 1
	FlagAckReply MsgFlag = 2
	FlagMore     MsgFlag = 4
)

// ErrorCode enumerates FBSP wire error codes (spec.md §6, exact values).
type ErrorCode int

const (
	ErrInvalidMessage          ErrorCode = 1
	ErrProtocolViolation       ErrorCode = 2
	ErrBadRequest              ErrorCode = 3
	ErrNotImplemented          ErrorCode = 4
	ErrError                   ErrorCode = 5
	ErrInternalError           ErrorCode = 6
	ErrRequestTimeout          ErrorCode = 7
	ErrTooManyRequests         ErrorCode = 8
	ErrFailedDependency        ErrorCode = 9
	ErrForbidden               ErrorCode = 10
	ErrUnauthorized            ErrorCode = 11
	ErrNotFound                ErrorCode = 12
	ErrGone                    ErrorCode = 13
	ErrConflict                ErrorCode = 14
	ErrPayloadTooLarge         ErrorCode = 15
	ErrInsufficientStorage     ErrorCode = 16
	ErrRequestCancelled        ErrorCode = 17
	ErrServiceUnavailable      ErrorCode = 2000
	ErrVersionNotSupported     ErrorCode = 2001
)

// Header is the decoded 16-byte FBSP control frame.
type Header struct {
	Type     MsgType
	Version  byte
	Flags    MsgFlag
	TypeData uint16
	Token    uint64
}

// Encode serializes h to its 16-byte wire form.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], FOURCC[:])
	buf[4] = byte(h.Type)<<3 | (h.Version & versionMask)
	buf[5] = byte(h.Flags)
	binary.BigEndian.PutUint16(buf[6:8], h.TypeData)
	binary.BigEndian.PutUint64(buf[8:16], h.Token)
	return buf
}

// DecodeHeader parses the 16-byte FBSP control frame, the first frame of
// every FBSP message.
func DecodeHeader(frame []byte) (Header, error) {
	var h Header
	if len(frame) != HeaderSize {
		return h, errs.NewInvalidMessage("fbsp: header must be 16 bytes", nil)
	}
	if frame[0] != FOURCC[0] || frame[1] != FOURCC[1] || frame[2] != FOURCC[2] || frame[3] != FOURCC[3] {
		return h, errs.NewInvalidMessage("fbsp: bad FOURCC", nil)
	}
	h.Type = MsgType(frame[4] >> 3)
	h.Version = frame[4] & versionMask
	if h.Type == MsgUnknown || int(h.Type) >= len(msgTypeNames) {
		return h, errs.NewInvalidMessage("fbsp: unknown message type", nil)
	}
	if h.Version != ProtocolVersion {
		return h, errs.NewInvalidMessage("fbsp: version mismatch", nil)
	}
	h.Flags = MsgFlag(frame[5])
	if h.Flags & ^(FlagAckReq|FlagAckReply|FlagMore) != 0 {
		return h, errs.NewInvalidMessage("fbsp: reserved flag bits set", nil)
	}
	h.TypeData = binary.BigEndian.Uint16(frame[6:8])
	h.Token = binary.BigEndian.Uint64(frame[8:16])
	return h, nil
}

// PackAPI composes type_data for REQUEST/REPLY/STATE from an interface
// id and an API code.
func PackAPI(interfaceID, apiCode byte) uint16 {
	return uint16(interfaceID)<<8 | uint16(apiCode)
}

// UnpackAPI is the dual of PackAPI.
func UnpackAPI(typeData uint16) (interfaceID, apiCode byte) {
	return byte(typeData >> 8), byte(typeData)
}

// PackError composes type_data for ERROR from an error code and the
// message type the error relates to.
func PackError(code ErrorCode, relatesTo MsgType) uint16 {
	return uint16(code)<<5 | uint16(relatesTo)&0x1f
}

// UnpackError is the dual of PackError.
func UnpackError(typeData uint16) (code ErrorCode, relatesTo MsgType) {
	return ErrorCode(typeData >> 5), MsgType(typeData & 0x1f)
}

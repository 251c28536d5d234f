package fbdp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
)

// SendClose emits CLOSE with type_data=code, one error description per
// exception in cause's Unwrap chain, invokes onPipeClosed (exceptions
// swallowed) and discards the session - in that order (spec.md §4.5
// "CLOSE semantics").
func SendClose(ch *channel.Channel, session *channel.Session, code ErrorCode, cause error, onPipeClosed func(ch *channel.Channel, session *channel.Session, msg *Message, cause error)) error {
	msg := &Message{Header: Header{Type: MsgClose, Version: ProtocolVersion, TypeData: uint16(code)}}
	for c := cause; c != nil; c = errorsUnwrap(c) {
		annotation := ""
		if _, isStop := errs.AsStop(c); !isStop {
			annotation = "non-stop exception"
		}
		msg.Errors = append(msg.Errors, wire.ErrorDescription{Description: c.Error(), Code: int(code), Annotation: annotation})
	}
	err := ch.Send(msg, session, nil, func(sendErr error) {
		logging.Warnf("fbdp: failed to send CLOSE: %v", sendErr)
	})
	if onPipeClosed != nil {
		func() {
			defer func() { recover() }()
			onPipeClosed(ch, session, msg, cause)
		}()
	}
	ch.DiscardSession(session)
	return err
}

func errorsUnwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

// codeFor maps a handler error to the CLOSE code it should carry:
// StopError keeps its own code, anything else is INTERNAL_ERROR
// (spec.md §4.5 "Exception routing").
func codeFor(err error) ErrorCode {
	if stop, ok := errs.AsStop(err); ok {
		return ErrorCode(stop.Code)
	}
	return ErrInternalError
}

// resolveBatch applies the -1 "delegate to protocol-wide batch_size"
// convention (spec.md §4.5).
func resolveBatch(requested, protocolWide int) int {
	if requested == -1 {
		return protocolWide
	}
	return requested
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

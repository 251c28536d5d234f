package fbsp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Service is the FBSP service-side protocol half (spec.md §4.4
// "Service side"): it answers HELLO with WELCOME, dispatches REQUEST to
// registered API handlers, and honours CANCEL/NOOP/DATA/CLOSE.
type Service struct {
	protocol.Base

	peer       types.PeerDescriptor
	descriptor types.ServiceDescriptor

	apiHandlers map[uint16]protocol.HandlerFunc

	// OnAcceptClient may reject a HELLO by returning an error; the HELLO
	// is then answered with ERROR FORBIDDEN instead of WELCOME, and the
	// session is not marked greeted.
	OnAcceptClient func(ch *channel.Channel, peer types.PeerDescriptor) error
	// OnCancel must return a *errs.StopError carrying the code to close
	// with; a nil OnCancel makes CANCEL reply NOT_IMPLEMENTED.
	OnCancel func(ch *channel.Channel, session *channel.Session, msg *Message) error
	OnNoop   func(ch *channel.Channel, session *channel.Session, msg *Message)
	// OnData must ACK (via Ack) if msg.Header.Flags has FlagAckReq set.
	OnData          func(ch *channel.Channel, session *channel.Session, msg *Message) error
	OnAckReceived   func(ch *channel.Channel, session *channel.Session, msg *Message)
	OnSessionClosed func(ch *channel.Channel, session *channel.Session, msg *Message)
}

// NewService constructs a Service protocol bound to peer/descriptor, the
// identification it sends back in every WELCOME.
func NewService(peer types.PeerDescriptor, descriptor types.ServiceDescriptor) *Service {
	s := &Service{
		Base:        protocol.NewBase(),
		peer:        peer,
		descriptor:  descriptor,
		apiHandlers: make(map[uint16]protocol.HandlerFunc),
	}
	s.Base.Factory = parseMessage
	s.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("fbsp<service>: invalid message from %s: %v", routingID, cause)
	}
	s.Base.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		s.onException(ch, session, msg, cause)
	}

	s.On(MsgHello.String(), s.handleHello)
	s.On(MsgRequest.String(), s.handleRequest)
	s.On(MsgCancel.String(), s.handleCancel)
	s.On(MsgNoop.String(), s.handleNoop)
	s.On(MsgData.String(), s.handleData)
	s.On(MsgClose.String(), s.handleClose)
	s.On(MsgWelcome.String(), s.handleUnexpectedWelcome)
	return s
}

// RegisterAPI registers the handler for REQUEST messages addressed to
// (interfaceID, apiCode).
func (s *Service) RegisterAPI(interfaceID, apiCode byte, handler protocol.HandlerFunc) {
	s.apiHandlers[PackAPI(interfaceID, apiCode)] = handler
}

// AcceptNewSession overrides protocol.Base: only HELLO may create a
// session; anything else addressed to an unknown peer is rejected.
func (s *Service) AcceptNewSession(ch *channel.Channel, routingID types.RoutingID, msg channel.Message) bool {
	fm, ok := msg.(*Message)
	return ok && fm.Header.Type == MsgHello
}

func (s *Service) handleHello(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	data := dataOf(session)
	if data.Greeted {
		return s.SendError(ch, session, ErrProtocolViolation, MsgHello, msg.Header.Token, "already greeted")
	}
	if msg.Peer == nil {
		return s.SendError(ch, session, ErrInvalidMessage, MsgHello, msg.Header.Token, "missing peer dataframe")
	}
	peer := msg.Peer.ToDescriptor()
	if s.OnAcceptClient != nil {
		if err := s.OnAcceptClient(ch, peer); err != nil {
			return s.SendError(ch, session, ErrForbidden, MsgHello, msg.Header.Token, err.Error())
		}
	}
	data.Greeting = &peer
	data.PartnerUID = peer.UID
	data.Greeted = true

	reply := &Message{
		Header:  Header{Type: MsgWelcome, Version: ProtocolVersion, Token: msg.Header.Token},
		Service: wire.ServiceToDataframe(s.descriptor),
	}
	return sendOrLog(ch, session, reply)
}

func (s *Service) handleRequest(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	handler, ok := s.apiHandlers[msg.Header.TypeData]
	if !ok {
		return s.SendError(ch, session, ErrNotImplemented, MsgRequest, msg.Header.Token, "no handler for requested API")
	}
	return handler(ch, session, msg)
}

func (s *Service) handleCancel(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if s.OnCancel == nil {
		return s.SendError(ch, session, ErrNotImplemented, MsgCancel, msg.Header.Token, "cancel not supported")
	}
	return s.OnCancel(ch, session, msg)
}

func (s *Service) handleNoop(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReq != 0 {
		ack := &Message{Header: Header{Type: MsgNoop, Version: ProtocolVersion, Token: msg.Header.Token, Flags: FlagAckReply}}
		if err := sendOrLog(ch, session, ack); err != nil {
			return err
		}
	}
	if s.OnNoop != nil {
		s.OnNoop(ch, session, msg)
	}
	return nil
}

func (s *Service) handleData(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReply != 0 {
		if s.OnAckReceived != nil {
			s.OnAckReceived(ch, session, msg)
		}
		return nil
	}
	if s.OnData == nil {
		return s.SendError(ch, session, ErrNotImplemented, MsgData, msg.Header.Token, "data not supported")
	}
	return s.OnData(ch, session, msg)
}

func (s *Service) handleClose(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if s.OnSessionClosed != nil {
		func() {
			defer func() { recover() }()
			s.OnSessionClosed(ch, session, msg)
		}()
	}
	ch.DiscardSession(session)
	return nil
}

func (s *Service) handleUnexpectedWelcome(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	return s.SendError(ch, session, ErrProtocolViolation, MsgWelcome, msg.Header.Token, "client must not send WELCOME")
}

// Ack sends an ACK-REPLY for msg, for handlers that must acknowledge an
// ACK_REQ DATA message (spec.md §4.4 "DATA ... required to acknowledge
// if asked").
func Ack(ch *channel.Channel, session *channel.Session, msg *Message) error {
	ack := &Message{Header: Header{Type: msg.Header.Type, Version: ProtocolVersion, Token: msg.Header.Token, Flags: FlagAckReply}}
	return sendOrLog(ch, session, ack)
}

// SendError constructs and sends an ERROR with the given code and
// relates-to message type (spec.md §4.4 "send_error").
func (s *Service) SendError(ch *channel.Channel, session *channel.Session, code ErrorCode, relatesTo MsgType, token uint64, reason string) error {
	msg := &Message{
		Header: Header{Type: MsgError, Version: ProtocolVersion, Token: token, TypeData: PackError(code, relatesTo)},
		Errors: []wire.ErrorDescription{{Description: reason, Code: int(code)}},
	}
	return ch.Send(msg, session, nil, func(err error) {
		logging.Warnf("fbsp<service>: failed to send ERROR: %v", err)
	})
}

// SendClose sends CLOSE and invokes OnSessionClosed (spec.md §4.4
// "send_close").
func (s *Service) SendClose(ch *channel.Channel, session *channel.Session, token uint64) error {
	msg := &Message{Header: Header{Type: MsgClose, Version: ProtocolVersion, Token: token}}
	err := sendOrLog(ch, session, msg)
	if s.OnSessionClosed != nil {
		func() {
			defer func() { recover() }()
			s.OnSessionClosed(ch, session, msg)
		}()
	}
	return err
}

func (s *Service) onException(ch *channel.Channel, session *channel.Session, m channel.Message, cause error) {
	msg, _ := m.(*Message)
	var token uint64
	var relatesTo MsgType = MsgUnknown
	if msg != nil {
		token = msg.Header.Token
		relatesTo = msg.Header.Type
	}
	if stop, ok := errs.AsStop(cause); ok {
		_ = s.SendError(ch, session, ErrorCode(stop.Code), relatesTo, token, stop.Error())
		return
	}
	_ = s.SendError(ch, session, ErrInternalError, relatesTo, token, cause.Error())
}

func sendOrLog(ch *channel.Channel, session *channel.Session, msg *Message) error {
	return ch.Send(msg, session, nil, func(err error) {
		logging.Warnf("fbsp: send failed: %v", err)
	})
}

package fbdp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Server is the FBDP server half (spec.md §4.5): it accepts OPEN,
// decides a batch size through OnGetReady, and emits READY.
type Server struct {
	protocol.Base

	// Side tells whether this server produces or consumes DATA on the
	// negotiated pipe.
	Side types.Direction

	// BatchSize is used when OnGetReady returns -1.
	BatchSize int

	// OnOpen validates an incoming OPEN; returning an *errs.StopError
	// refuses the pipe with that code, any other error becomes
	// INTERNAL_ERROR.
	OnOpen func(ch *channel.Channel, session *channel.Session, msg *Message) error
	// OnGetReady decides the next batch size: 0 means "not ready" (the
	// caller must arrange a later ResendReady), -1 delegates to
	// BatchSize.
	OnGetReady func(ch *channel.Channel, session *channel.Session) int
	// OnData is invoked for each DATA frame received (consumer side).
	OnData func(ch *channel.Channel, session *channel.Session, payload []byte) error
	// OnPipeClosed is invoked once CLOSE has been decided, before the
	// session is discarded.
	OnPipeClosed func(ch *channel.Channel, session *channel.Session, msg *Message, cause error)
	// OnScheduleResend is invoked when OnGetReady returns a batch size of
	// 0, so the caller can arrange a later ResendReady (e.g. through a
	// microservice.Scheduler). If nil, the pipe relies on some other
	// trigger to call ResendReady and only logs.
	OnScheduleResend func(ch *channel.Channel, session *channel.Session)
}

// NewServer constructs a Server for the given side (producer/consumer).
func NewServer(side types.Direction, batchSize int) *Server {
	s := &Server{Base: protocol.NewBase(), Side: side, BatchSize: batchSize}
	s.Base.Factory = parseMessage
	s.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("fbdp<server>: invalid message from %s: %v", routingID, cause)
	}
	s.Base.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		_ = SendClose(ch, session, codeFor(cause), cause, s.OnPipeClosed)
	}

	s.On(MsgOpen.String(), s.handleOpen)
	s.On(MsgReady.String(), s.handleReady)
	s.On(MsgData.String(), s.handleData)
	s.On(MsgClose.String(), s.handleClose)
	s.On(MsgNoop.String(), s.handleNoop)
	return s
}

// AcceptNewSession overrides protocol.Base: only OPEN creates a session.
func (s *Server) AcceptNewSession(ch *channel.Channel, routingID types.RoutingID, msg channel.Message) bool {
	fm, ok := msg.(*Message)
	return ok && fm.Header.Type == MsgOpen
}

func (s *Server) handleOpen(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if s.OnOpen != nil {
		if err := s.OnOpen(ch, session, msg); err != nil {
			return err
		}
	}
	data := dataOf(session)
	data.DataPipe = msg.Open.DataPipe
	data.PipeSocket = PipeSocket(msg.Open.PipeSocket)
	data.DataFormat = msg.Open.DataFormat
	data.Params = msg.Open.Params
	data.Opened = true
	return s.sendReady(ch, session)
}

func (s *Server) sendReady(ch *channel.Channel, session *channel.Session) error {
	batch := 0
	if s.OnGetReady != nil {
		batch = resolveBatch(s.OnGetReady(ch, session), s.BatchSize)
	} else {
		batch = s.BatchSize
	}
	ready := &Message{Header: Header{Type: MsgReady, Version: ProtocolVersion, TypeData: uint16(batch)}}
	if err := ch.Send(ready, session, nil, func(err error) {
		logging.Warnf("fbdp<server>: failed to send READY: %v", err)
	}); err != nil {
		return err
	}
	data := dataOf(session)
	if batch == 0 {
		data.AwaitReady = true
		if s.OnScheduleResend != nil {
			s.OnScheduleResend(ch, session)
		} else {
			logging.Debugf("fbdp<server>: not ready, caller must schedule resend_ready")
		}
	} else {
		data.AwaitReady = false
	}
	return nil
}

// ResendReady re-runs batch negotiation for session, for use from a
// scheduled action after OnGetReady previously returned 0.
func (s *Server) ResendReady(ch *channel.Channel, session *channel.Session) error {
	return s.sendReady(ch, session)
}

func (s *Server) handleReady(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	data := dataOf(session)
	data.SetTransmit(int(msg.Header.TypeData))
	data.AwaitReady = false
	return nil
}

func (s *Server) handleData(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReply != 0 {
		return nil
	}
	data := dataOf(session)
	if data.Transmit == nil {
		return errs.NewStop(int(ErrProtocolViolation), "fbdp<server>: out of band DATA message")
	}
	data.ConsumeCredit()
	if s.OnData != nil {
		if err := s.OnData(ch, session, msg.Payload); err != nil {
			return err
		}
	}
	if msg.Header.Flags&FlagAckReq != 0 {
		ack := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion, TypeData: msg.Header.TypeData, Flags: FlagAckReply}}
		if err := ch.Send(ack, session, nil, nil); err != nil {
			return err
		}
	}
	if data.Transmit != nil && *data.Transmit == 0 {
		return s.sendReady(ch, session)
	}
	return nil
}

func (s *Server) handleClose(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if s.OnPipeClosed != nil {
		func() {
			defer func() { recover() }()
			s.OnPipeClosed(ch, session, msg, nil)
		}()
	}
	ch.DiscardSession(session)
	return nil
}

func (s *Server) handleNoop(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	return nil
}

// SendData emits one DATA frame for the producer side, consuming one
// unit of the session's transmit credit.
func (s *Server) SendData(ch *channel.Channel, session *channel.Session, payload []byte, ackReq bool) error {
	flags := FlagNone
	if ackReq {
		flags = FlagAckReq
	}
	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion, Flags: flags}, Payload: payload}
	if err := ch.Send(msg, session, nil, func(err error) {
		logging.Warnf("fbdp<server>: failed to send DATA: %v", err)
	}); err != nil {
		return err
	}
	data := dataOf(session)
	data.ConsumeCredit()
	if data.Transmit != nil && *data.Transmit == 0 {
		return s.sendReady(ch, session)
	}
	return nil
}

package fbdp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Client is the FBDP client half (spec.md §4.5): it builds the OPEN
// message (Open) for the caller to send after Connect, echoes READY with
// the accepted batch size, and then either produces or consumes DATA
// depending on Side.
type Client struct {
	protocol.Base

	DataPipe   string
	PipeSocket PipeSocket
	DataFormat string
	Params     map[string]string

	// OwnLimit caps the batch size this client ever accepts, regardless
	// of what the server proposes.
	OwnLimit int

	OnReady      func(ch *channel.Channel, session *channel.Session, accepted int)
	OnData       func(ch *channel.Channel, session *channel.Session, payload []byte) error
	OnPipeClosed func(ch *channel.Channel, session *channel.Session, msg *Message, cause error)
}

// NewClient constructs a Client that opens the named pipe.
func NewClient(dataPipe string, socket PipeSocket, dataFormat string, ownLimit int) *Client {
	c := &Client{Base: protocol.NewBase(), DataPipe: dataPipe, PipeSocket: socket, DataFormat: dataFormat, OwnLimit: ownLimit}
	c.Base.Factory = parseMessage
	c.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("fbdp<client>: invalid message from %s: %v", routingID, cause)
	}
	c.Base.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		_ = SendClose(ch, session, codeFor(cause), cause, c.OnPipeClosed)
	}

	c.On(MsgReady.String(), c.handleReady)
	c.On(MsgData.String(), c.handleData)
	c.On(MsgClose.String(), c.handleClose)
	c.On(MsgNoop.String(), c.handleNoop)
	return c
}

// ConnectWithSession overrides protocol.Base: a session is always
// created on connect, ready for the caller to send Open on.
func (c *Client) ConnectWithSession(ch *channel.Channel) bool {
	return true
}

// Open builds the OPEN message to send right after Connect.
func (c *Client) Open() *Message {
	return &Message{
		Header: Header{Type: MsgOpen, Version: ProtocolVersion},
		Open: &wire.OpenDataframe{
			DataPipe: c.DataPipe, PipeSocket: int(c.PipeSocket), DataFormat: c.DataFormat, Params: c.Params,
		},
	}
}

func (c *Client) handleReady(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	proposed := int(msg.Header.TypeData)
	accepted := proposed
	if c.OwnLimit > 0 {
		accepted = minInt(proposed, c.OwnLimit)
	}
	data := dataOf(session)
	data.SetTransmit(accepted)
	data.AwaitReady = false
	reply := &Message{Header: Header{Type: MsgReady, Version: ProtocolVersion, TypeData: uint16(accepted)}}
	if err := ch.Send(reply, session, nil, func(err error) {
		logging.Warnf("fbdp<client>: failed to echo READY: %v", err)
	}); err != nil {
		return err
	}
	if c.OnReady != nil {
		c.OnReady(ch, session, accepted)
	}
	return nil
}

func (c *Client) handleData(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReply != 0 {
		return nil
	}
	data := dataOf(session)
	if data.Transmit == nil {
		return errs.NewStop(int(ErrProtocolViolation), "fbdp<client>: out of band DATA message")
	}
	data.ConsumeCredit()
	if c.OnData != nil {
		if err := c.OnData(ch, session, msg.Payload); err != nil {
			return err
		}
	}
	if msg.Header.Flags&FlagAckReq != 0 {
		ack := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion, TypeData: msg.Header.TypeData, Flags: FlagAckReply}}
		if err := ch.Send(ack, session, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) handleClose(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if c.OnPipeClosed != nil {
		func() {
			defer func() { recover() }()
			c.OnPipeClosed(ch, session, msg, nil)
		}()
	}
	ch.DiscardSession(session)
	return nil
}

func (c *Client) handleNoop(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	return nil
}

// SendData emits one DATA frame for the producer side, consuming one
// unit of the session's transmit credit.
func (c *Client) SendData(ch *channel.Channel, session *channel.Session, payload []byte, ackReq bool) error {
	flags := FlagNone
	if ackReq {
		flags = FlagAckReq
	}
	msg := &Message{Header: Header{Type: MsgData, Version: ProtocolVersion, Flags: flags}, Payload: payload}
	if err := ch.Send(msg, session, nil, func(err error) {
		logging.Warnf("fbdp<client>: failed to send DATA: %v", err)
	}); err != nil {
		return err
	}
	data := dataOf(session)
	data.ConsumeCredit()
	return nil
}

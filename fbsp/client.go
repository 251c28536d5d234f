package fbsp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Client is the FBSP raw client protocol half (spec.md §4.4 "Client
// side"): it builds the HELLO message (Hello) for the caller to send
// after Connect, captures WELCOME, and leaves REQUEST/REPLY/DATA/CANCEL
// construction to the caller.
type Client struct {
	protocol.Base

	peer types.PeerDescriptor

	OnWelcome       func(ch *channel.Channel, session *channel.Session, service types.ServiceDescriptor)
	OnState         func(ch *channel.Channel, session *channel.Session, msg *Message)
	OnSessionClosed func(ch *channel.Channel, session *channel.Session, msg *Message)
}

// NewClient constructs a Client that greets with peer.
func NewClient(peer types.PeerDescriptor) *Client {
	c := &Client{Base: protocol.NewBase(), peer: peer}
	c.Base.Factory = parseMessage
	c.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("fbsp<client>: invalid message from %s: %v", routingID, cause)
	}

	c.On(MsgWelcome.String(), c.handleWelcome)
	c.On(MsgState.String(), c.handleState)
	c.On(MsgClose.String(), c.handleClose)
	c.On(MsgHello.String(), c.handleUnexpected)
	c.On(MsgCancel.String(), c.handleUnexpected)
	return c
}

// ConnectWithSession overrides protocol.Base: a session is always
// created on connect, ready for the caller to send Hello on.
func (c *Client) ConnectWithSession(ch *channel.Channel) bool {
	return true
}

// Hello builds the HELLO message to send right after Connect.
func (c *Client) Hello(token uint64) *Message {
	return &Message{
		Header: Header{Type: MsgHello, Version: ProtocolVersion, Token: token},
		Peer:   wire.PeerToDataframe(c.peer),
	}
}

func (c *Client) handleWelcome(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Service == nil {
		return nil
	}
	service := msg.Service.ToDescriptor()
	data := dataOf(session)
	data.Interfaces = NewInterfaceRegistry(service.APIInterfaces)
	if c.OnWelcome != nil {
		c.OnWelcome(ch, session, service)
	}
	return nil
}

func (c *Client) handleState(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReq != 0 {
		if err := Ack(ch, session, msg); err != nil {
			return err
		}
	}
	if c.OnState != nil {
		c.OnState(ch, session, msg)
	}
	return nil
}

func (c *Client) handleClose(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if c.OnSessionClosed != nil {
		func() {
			defer func() { recover() }()
			c.OnSessionClosed(ch, session, msg)
		}()
	}
	ch.DiscardSession(session)
	return nil
}

func (c *Client) handleUnexpected(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	logging.Warnf("fbsp<client>: unexpected %s from service", msg.Header.Type)
	return nil
}

// CreateRequestFor builds a REQUEST addressed to the named interface's
// apiCode, resolving the interface uid through the session's advertised
// InterfaceRegistry (spec.md §9 "Dynamic API code").
func CreateRequestFor(session *channel.Session, interfaceUID string, apiCode byte, token uint64, args [][]byte) (*Message, bool) {
	data := dataOf(session)
	idx, ok := data.Interfaces.IndexOf(interfaceUID)
	if !ok {
		return nil, false
	}
	return &Message{
		Header:     Header{Type: MsgRequest, Version: ProtocolVersion, Token: token, TypeData: PackAPI(idx, apiCode)},
		DataFrames: args,
	}, true
}

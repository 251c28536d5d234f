package fbsp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// EventClient is the FBSP event-driven client half (spec.md §4.4 "Event
// client"): REPLY/DATA/STATE/ERROR/NOOP/CLOSE are routed to per-API or
// generic hooks instead of being left for the caller to pull.
type EventClient struct {
	Client

	apiHandlers map[uint16]protocol.HandlerFunc

	OnReply func(ch *channel.Channel, session *channel.Session, msg *Message)
	OnData  func(ch *channel.Channel, session *channel.Session, msg *Message)
	OnError func(ch *channel.Channel, session *channel.Session, msg *Message, code ErrorCode, relatesTo MsgType)
	OnNoop  func(ch *channel.Channel, session *channel.Session, msg *Message)
}

// NewEventClient constructs an EventClient that greets with peer.
func NewEventClient(peer types.PeerDescriptor) *EventClient {
	c := &EventClient{Client: *NewClient(peer), apiHandlers: make(map[uint16]protocol.HandlerFunc)}
	// Rebind the Client handlers to the embedded copy, so the OnWelcome/
	// OnState/OnSessionClosed hooks set on c are the ones called.
	c.On(MsgWelcome.String(), c.handleWelcome)
	c.On(MsgState.String(), c.handleState)
	c.On(MsgClose.String(), c.handleClose)
	c.On(MsgReply.String(), c.handleReply)
	c.On(MsgData.String(), c.handleData)
	c.On(MsgError.String(), c.handleError)
	c.On(MsgNoop.String(), c.handleNoop)
	return c
}

// RegisterAPI registers handler for REPLY/DATA messages whose type_data
// addresses (interfaceID, apiCode). An ACK_REQ message must be ACKed by
// handler (via Ack); the dispatcher does not do this automatically since
// some agreements defer acknowledgement until processing completes.
func (c *EventClient) RegisterAPI(interfaceID, apiCode byte, handler protocol.HandlerFunc) {
	c.apiHandlers[PackAPI(interfaceID, apiCode)] = handler
}

func (c *EventClient) handleReply(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if handler, ok := c.apiHandlers[msg.Header.TypeData]; ok {
		return handler(ch, session, msg)
	}
	if c.OnReply != nil {
		c.OnReply(ch, session, msg)
	}
	return nil
}

func (c *EventClient) handleData(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReply != 0 {
		return nil
	}
	if handler, ok := c.apiHandlers[msg.Header.TypeData]; ok {
		return handler(ch, session, msg)
	}
	if c.OnData != nil {
		c.OnData(ch, session, msg)
	}
	return nil
}

func (c *EventClient) handleError(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	code, relatesTo := UnpackError(msg.Header.TypeData)
	if c.OnError != nil {
		c.OnError(ch, session, msg, code, relatesTo)
		return nil
	}
	reason := ""
	if len(msg.Errors) > 0 {
		reason = msg.Errors[0].Description
	}
	logging.Warnf("fbsp<event-client>: ERROR %d relates_to=%s: %s", code, relatesTo, reason)
	return nil
}

func (c *EventClient) handleNoop(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.Header.Flags&FlagAckReply != 0 {
		return nil
	}
	if msg.Header.Flags&FlagAckReq != 0 {
		if err := Ack(ch, session, msg); err != nil {
			return err
		}
	}
	if c.OnNoop != nil {
		c.OnNoop(ch, session, msg)
	}
	return nil
}

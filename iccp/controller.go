package iccp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// ControllerSide is ICCP's controller-side half (spec.md §4.6
// "Controller side"): it accepts READY exactly once per session and
// OK/ERROR/FINISHED only after READY.
type ControllerSide struct {
	protocol.Base

	OnReady    func(ch *channel.Channel, session *channel.Session, peer types.PeerDescriptor, endpoints types.EndpointsMap)
	OnOK       func(ch *channel.Channel, session *channel.Session)
	OnError    func(ch *channel.Channel, session *channel.Session, text string)
	OnFinished func(ch *channel.Channel, session *channel.Session, outcome types.Outcome, details []string)
	// OnStopController is invoked for any message rejected by the
	// validation rules above.
	OnStopController func(ch *channel.Channel, session *channel.Session, cause error)
}

type controllerSessionData struct {
	readied bool
}

// NewControllerSide constructs the controller-side ICCP protocol.
func NewControllerSide() *ControllerSide {
	c := &ControllerSide{Base: protocol.NewBase()}
	c.Base.Factory = parseMessage
	c.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("iccp<controller>: invalid message: %v", cause)
	}

	c.On(MsgReady.String(), c.handleReady)
	c.On(MsgOK.String(), c.handleOK)
	c.On(MsgError.String(), c.handleError)
	c.On(MsgFinished.String(), c.handleFinished)
	c.On(protocol.KeyAny, c.handleWrongMessage)
	return c
}

// ConnectWithSession overrides protocol.Base: the controller's PAIR
// channel always has an implicit session for the whole conversation.
func (c *ControllerSide) ConnectWithSession(ch *channel.Channel) bool {
	return true
}

func sessionState(session *channel.Session) *controllerSessionData {
	if session == nil {
		return &controllerSessionData{}
	}
	if session.Data == nil {
		session.Data = &controllerSessionData{}
	}
	d, ok := session.Data.(*controllerSessionData)
	if !ok {
		d = &controllerSessionData{}
		session.Data = d
	}
	return d
}

func (c *ControllerSide) handleReady(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	state := sessionState(session)
	if state.readied {
		err := errWrongMessage("duplicate READY")
		if c.OnStopController != nil {
			c.OnStopController(ch, session, err)
		}
		return nil
	}
	state.readied = true
	if c.OnReady != nil {
		var peer types.PeerDescriptor
		if msg.Peer != nil {
			peer = msg.Peer.ToDescriptor()
		}
		var endpoints types.EndpointsMap
		if msg.Endpoints != nil {
			endpoints = msg.Endpoints.Entries
		}
		c.OnReady(ch, session, peer, endpoints)
	}
	return nil
}

func (c *ControllerSide) handleOK(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	if !sessionState(session).readied {
		return c.rejectBeforeReady(ch, session)
	}
	if c.OnOK != nil {
		c.OnOK(ch, session)
	}
	return nil
}

func (c *ControllerSide) handleError(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	if !sessionState(session).readied {
		return c.rejectBeforeReady(ch, session)
	}
	msg := m.(*Message)
	if c.OnError != nil {
		c.OnError(ch, session, msg.ErrorText)
	}
	return nil
}

func (c *ControllerSide) handleFinished(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	if !sessionState(session).readied {
		return c.rejectBeforeReady(ch, session)
	}
	msg := m.(*Message)
	if c.OnFinished != nil {
		c.OnFinished(ch, session, msg.Outcome, msg.Details)
	}
	return nil
}

func (c *ControllerSide) handleWrongMessage(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if c.OnStopController != nil {
		c.OnStopController(ch, session, errWrongMessage(msg.Type.String()))
	}
	return nil
}

func (c *ControllerSide) rejectBeforeReady(ch *channel.Channel, session *channel.Session) error {
	if c.OnStopController != nil {
		c.OnStopController(ch, session, errWrongMessage("message before READY"))
	}
	return nil
}

// SendRequestConfigure builds a REQUEST(CONFIGURE) for controller use.
func SendRequestConfigure(config []byte) *Message {
	return &Message{Type: MsgRequest, RequestTag: RequestTagConfigure, Config: config}
}

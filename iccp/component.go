package iccp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Component is ICCP's component-side half (spec.md §4.6 "Component
// side"): it rejects peer-initiated sessions, connects with an implicit
// session, and accepts only REQUEST and STOP.
type Component struct {
	protocol.Base

	// OnConfigure answers ICCP REQUEST(CONFIGURE); the default
	// implementation returns a NOT_IMPLEMENTED-flavoured error, mirroring
	// the microservice runtime's default configuration hook (spec.md
	// §4.7 "Configuration-request hook").
	OnConfigure func(ch *channel.Channel, session *channel.Session, config []byte) error
	// OnStopComponent is invoked for STOP and for any message this
	// protocol rejects (spec.md §4.6).
	OnStopComponent func(ch *channel.Channel, session *channel.Session, cause error)
}

// NewComponent constructs the component-side ICCP protocol.
func NewComponent() *Component {
	c := &Component{Base: protocol.NewBase()}
	c.Base.Factory = parseMessage
	c.Base.OnInvalidMessage = func(ch *channel.Channel, routingID types.RoutingID, cause error) {
		logging.Warnf("iccp<component>: invalid message: %v", cause)
	}
	c.On(MsgRequest.String(), c.handleRequest)
	c.On(MsgStop.String(), c.handleStop)
	c.On(protocol.KeyAny, c.handleWrongMessage)
	return c
}

// AcceptNewSession overrides protocol.Base: the component never accepts
// a peer-initiated session, it only ever has the implicit session
// created by ConnectWithSession.
func (c *Component) AcceptNewSession(ch *channel.Channel, routingID types.RoutingID, msg channel.Message) bool {
	return false
}

// ConnectWithSession overrides protocol.Base: connecting always creates
// the implicit session used for the whole control conversation.
func (c *Component) ConnectWithSession(ch *channel.Channel) bool {
	return true
}

func (c *Component) handleRequest(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	if msg.RequestTag != RequestTagConfigure {
		return c.reject(ch, session, "iccp: unknown request tag "+msg.RequestTag)
	}
	var err error
	if c.OnConfigure != nil {
		err = c.OnConfigure(ch, session, msg.Config)
	} else {
		err = errNotImplemented("configuration request")
	}
	if err != nil {
		return sendAndLog(ch, session, NewError(err, ""))
	}
	return sendAndLog(ch, session, NewOK())
}

func (c *Component) handleStop(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	if c.OnStopComponent != nil {
		c.OnStopComponent(ch, session, nil)
	}
	return nil
}

func (c *Component) handleWrongMessage(ch *channel.Channel, session *channel.Session, m channel.Message) error {
	msg := m.(*Message)
	err := errWrongMessage(msg.Type.String())
	if c.OnStopComponent != nil {
		c.OnStopComponent(ch, session, err)
	}
	return nil
}

func (c *Component) reject(ch *channel.Channel, session *channel.Session, reason string) error {
	return sendAndLog(ch, session, NewError(errWrongMessage(reason), ""))
}

func sendAndLog(ch *channel.Channel, session *channel.Session, msg *Message) error {
	return ch.Send(msg, session, nil, func(err error) {
		logging.Warnf("iccp: send failed: %v", err)
	})
}

// Package protocol provides the reusable dispatch-table machinery
// described in spec.md §4.3: a message factory, a handler table keyed by
// Message.Keys(), and the invalid-message/exception hooks. Concrete
// protocols (fbsp, fbdp, iccp) embed Base and override AcceptNewSession
// or ConnectWithSession where the spec calls for non-default behaviour.
package protocol

import (
	"fmt"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// KeyAny is the wildcard dispatch key every Message.Keys() must end in.
const KeyAny = "*"

// HandlerFunc handles one dispatched message. An error return is routed
// to the protocol's exception hook and translated to a wire-level error
// by the concrete protocol (FBSP ERROR, FBDP CLOSE, ICCP ERROR).
type HandlerFunc func(ch *channel.Channel, session *channel.Session, msg channel.Message) error

// Base implements channel.Protocol's dispatch mechanics. It is not used
// standalone: a concrete protocol embeds it, sets Handlers/Factory/
// OnInvalidMessage/OnException, and may shadow AcceptNewSession or
// ConnectWithSession.
type Base struct {
	Handlers         map[string]HandlerFunc
	OnInvalidMessage func(ch *channel.Channel, routingID types.RoutingID, cause error)
	OnException      func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error)
	Factory          func(ch *channel.Channel, frames [][]byte) (channel.Message, error)
}

// NewBase constructs a Base with an initialized handler table.
func NewBase() Base {
	return Base{Handlers: make(map[string]HandlerFunc)}
}

// On registers handler for key, overwriting any previous registration.
func (b *Base) On(key string, handler HandlerFunc) {
	if b.Handlers == nil {
		b.Handlers = make(map[string]HandlerFunc)
	}
	b.Handlers[key] = handler
}

// ParseMessage delegates to Factory.
func (b *Base) ParseMessage(ch *channel.Channel, frames [][]byte) (channel.Message, error) {
	return b.Factory(ch, frames)
}

// HandleMessage iterates msg.Keys(), picks the first key with a
// registered handler, and calls it (spec.md §8 property 2: Dispatch).
// Panics inside the handler are recovered and routed through the same
// exception path as an error return, so a single misbehaving handler
// never brings a channel's poll loop down.
func (b *Base) HandleMessage(ch *channel.Channel, session *channel.Session, msg channel.Message) {
	var (
		handler HandlerFunc
		found   bool
	)
	for _, key := range msg.Keys() {
		if h, ok := b.Handlers[key]; ok {
			handler, found = h, true
			break
		}
	}
	if !found {
		return
	}

	err := b.invoke(handler, ch, session, msg)
	if err != nil {
		b.handleException(ch, session, msg, err)
	}
}

func (b *Base) invoke(handler HandlerFunc, ch *channel.Channel, session *channel.Session, msg channel.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ch, session, msg)
}

func (b *Base) handleException(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
	if b.OnException == nil {
		logging.Warnf("protocol: unhandled exception: %v", cause)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Warnf("protocol: on_exception itself panicked: %v", r)
		}
	}()
	b.OnException(ch, session, msg, cause)
}

// HandleInvalidMessage invokes OnInvalidMessage, if set.
func (b *Base) HandleInvalidMessage(ch *channel.Channel, routingID types.RoutingID, cause error) {
	if b.OnInvalidMessage != nil {
		b.OnInvalidMessage(ch, routingID, cause)
	}
}

// AcceptNewSession is the default: accept unconditionally.
func (b *Base) AcceptNewSession(ch *channel.Channel, routingID types.RoutingID, msg channel.Message) bool {
	return true
}

// ConnectWithSession is the default: true iff the channel's direction
// includes OUT.
func (b *Base) ConnectWithSession(ch *channel.Channel) bool {
	return ch.Direction().Includes(types.DirectionOut)
}

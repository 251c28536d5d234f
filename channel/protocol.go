package channel

import "github.com/FirebirdSQL/saturnin-sub000/types"

// Message is the abstract unit of a wire protocol (spec.md §3): it knows
// how to serialize itself to ZMQ frames, how to populate itself from
// frames, how to reset to its zero value for reuse, and which dispatch
// keys select its handler.
type Message interface {
	// ToFrames serializes the message to a sequence of byte frames,
	// not including the routing-id frame a routed Channel prepends.
	ToFrames(ch *Channel) ([][]byte, error)
	// FromFrames populates the message from frames. frames[0] has
	// already been identified as belonging to this message's protocol;
	// a decoding failure must be reported as an error, which the caller
	// wraps in *errs.InvalidMessageError.
	FromFrames(ch *Channel, frames [][]byte) error
	// Clear resets the message to its zero value, allowing reuse.
	Clear()
	// Keys returns dispatch lookup keys, most specific first, ending in
	// the protocol's wildcard sentinel.
	Keys() []string
}

// Protocol binds a Channel to message parsing and dispatch. Concrete
// protocols (fbsp, fbdp, iccp) implement this interface, typically by
// embedding protocol.Base for the dispatch-table machinery and
// overriding AcceptNewSession/ConnectWithSession where the spec calls
// for non-default behaviour.
type Protocol interface {
	// ParseMessage reads frames[0] to select a concrete Message type,
	// populates it, and returns it. A decode failure is returned as an
	// error; Channel.receive wraps it and routes it to
	// HandleInvalidMessage before returning types.INVALID.
	ParseMessage(ch *Channel, frames [][]byte) (Message, error)
	// HandleMessage dispatches msg to the handler selected by its Keys.
	// Any error the handler returns (or panic it raises) is the
	// protocol's responsibility to translate into a wire-level error
	// and report via its own exception hook; HandleMessage never
	// propagates an error itself.
	HandleMessage(ch *Channel, session *Session, msg Message)
	// HandleInvalidMessage is invoked when ParseMessage failed.
	// routingID is nil on non-routed channels.
	HandleInvalidMessage(ch *Channel, routingID types.RoutingID, cause error)
	// AcceptNewSession decides whether an inbound message from a peer
	// with no existing session may create one. The default (via
	// protocol.Base) accepts unconditionally.
	AcceptNewSession(ch *Channel, routingID types.RoutingID, msg Message) bool
	// ConnectWithSession decides whether Channel.connect should create
	// and attach a session for the new peer. The default is true iff
	// the channel's direction includes OUT.
	ConnectWithSession(ch *Channel) bool
}

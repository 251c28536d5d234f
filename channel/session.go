package channel

import "github.com/FirebirdSQL/saturnin-sub000/types"

// Session is per-peer conversation state attached to a Channel, keyed by
// routing id. Protocol-specific state (FBSP's greeting/partner uid,
// FBDP's pipe name/socket role/data format/params/transmit/await_ready)
// lives in Data, type-asserted by the owning protocol package.
//
// Sessions are owned by the Channel that created them and are discarded
// on close or disconnect; nothing outside the owning Channel should
// retain a Session past discardSession/DiscardSession.
type Session struct {
	RoutingID       types.RoutingID
	Endpoint        string
	OutgoingPending bool
	Data            interface{}
}

func newSession(routingID types.RoutingID) *Session {
	return &Session{RoutingID: append(types.RoutingID(nil), routingID...)}
}

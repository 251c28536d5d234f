package fbsp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// SessionData is the FBSP extension attached to channel.Session.Data.
type SessionData struct {
	// Greeting is the HELLO dataframe the client sent. Service side only;
	// the client side leaves it nil.
	Greeting *types.PeerDescriptor
	// PartnerUID is the client's advertised instance uid, captured from
	// HELLO. Service side only; the client side leaves it empty.
	PartnerUID string
	// Interfaces resolves a locally-known interface name to the numeric
	// id the service advertised, for building REQUEST type_data
	// (spec.md §9 "Dynamic API code"). Client side only.
	Interfaces *InterfaceRegistry
	// Greeted marks that HELLO has already been processed for this
	// session (service side), so a second HELLO is rejected.
	Greeted bool
}

// NewSessionData is the channel.Options.NewSession factory both FBSP
// protocol halves install.
func NewSessionData() interface{} {
	return &SessionData{}
}

func dataOf(s *channel.Session) *SessionData {
	if s == nil || s.Data == nil {
		return nil
	}
	d, _ := s.Data.(*SessionData)
	return d
}

// InterfaceRegistry maps interface uids to the numeric index a service
// advertised them under in its WELCOME ServiceDescriptor, so a client can
// build REQUEST type_data without hard-coding interface numbers.
type InterfaceRegistry struct {
	byUID   map[string]byte
	byIndex []string
}

// NewInterfaceRegistry builds a registry from the ordered interface uid
// list a WELCOME dataframe advertised.
func NewInterfaceRegistry(interfaces []string) *InterfaceRegistry {
	r := &InterfaceRegistry{byUID: make(map[string]byte, len(interfaces)), byIndex: interfaces}
	for i, uid := range interfaces {
		r.byUID[uid] = byte(i)
	}
	return r
}

// IndexOf returns the numeric interface id for uid.
func (r *InterfaceRegistry) IndexOf(uid string) (byte, bool) {
	if r == nil {
		return 0, false
	}
	idx, ok := r.byUID[uid]
	return idx, ok
}

// Package types holds the sentinels, shared enumerations and descriptors
// of the core data model (spec.md §3): socket modes, directions, pipe
// sockets, component states and outcomes, routing ids, and the peer/
// agent/service descriptors exchanged over ICCP and FBSP.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// RoutingID is the opaque binary identity of a peer on a routed socket,
// stable for the lifetime of a session.
type RoutingID []byte

func (r RoutingID) String() string {
	return fmt.Sprintf("%x", []byte(r))
}

// Equal reports whether two routing ids identify the same peer.
func (r RoutingID) Equal(other RoutingID) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// SocketMode is the bind/connect mode of a Channel.
type SocketMode int

const (
	ModeUnknown SocketMode = iota
	ModeBind
	ModeConnect
)

func (m SocketMode) String() string {
	switch m {
	case ModeBind:
		return "BIND"
	case ModeConnect:
		return "CONNECT"
	default:
		return "UNKNOWN"
	}
}

// Direction is the I/O capability of a Channel, a bitmask over IN/OUT.
type Direction int

const (
	DirectionNone Direction = 0
	DirectionIn   Direction = 1 << iota
	DirectionOut
)

const DirectionBoth = DirectionIn | DirectionOut

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionBoth:
		return "BOTH"
	default:
		return "NONE"
	}
}

// Includes reports whether d contains every bit set in other, i.e.
// other ⊆ d. Used to enforce the channel invariant wait_for ⊆ direction.
func (d Direction) Includes(other Direction) bool {
	return d&other == other
}

// PipeSocket is the FBDP OPEN dataframe's declared socket role.
type PipeSocket int

const (
	PipeSocketUnknown PipeSocket = iota
	PipeSocketInput
	PipeSocketOutput
)

func (p PipeSocket) String() string {
	switch p {
	case PipeSocketInput:
		return "INPUT"
	case PipeSocketOutput:
		return "OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// State is a component lifecycle state (spec.md §3 "Lifecycle summary").
type State int

const (
	StateCreated State = iota
	StateReady
	StateRunning
	StateStopped
	StateFinished
	StateAborted
)

var stateNames = [...]string{"CREATED", "READY", "RUNNING", "STOPPED", "FINISHED", "ABORTED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Outcome is the terminal status of a component.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeOK
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseOutcome is the dual of Outcome.String, used when decoding an ICCP
// FINISHED message's outcome frame.
func ParseOutcome(s string) Outcome {
	switch s {
	case "OK":
		return OutcomeOK
	case "ERROR":
		return OutcomeError
	default:
		return OutcomeUnknown
	}
}

// Sentinel is the type of the package-level INVALID and TIMEOUT markers
// returned by Channel.receive in place of a decoded message.
type Sentinel struct{ name string }

func (s *Sentinel) String() string { return s.name }

var (
	// INVALID is returned by Channel.receive when the received frames
	// failed to decode into a valid protocol message.
	INVALID = &Sentinel{"INVALID"}
	// TIMEOUT is returned by Channel.receive when a receive timeout
	// elapsed with no message available.
	TIMEOUT = &Sentinel{"TIMEOUT"}
)

// PeerDescriptor identifies a process-level peer: a component or
// controller instance.
type PeerDescriptor struct {
	UID        string
	PID        int
	Host       string
	Supplement map[string]string
}

// NewPeerUID generates a fresh random peer UID, for a bundle instance or
// controller that does not have one assigned by its caller.
func NewPeerUID() string { return uuid.NewString() }

// AgentDescriptor identifies a kind of component implementation.
type AgentDescriptor struct {
	UID            string
	Name           string
	Version        string
	VendorUID      string
	Classification string
	PlatformUID    string
	PlatformVer    string
}

// ServiceDescriptor describes a microservice agent's published API.
type ServiceDescriptor struct {
	Agent            AgentDescriptor
	APIInterfaces    []string
	Description      string
	Facilities       []string
	FactoryLocator   string
	ConfigFactoryURI string
}

// EndpointsMap maps a channel name to the ordered list of ZMQ addresses
// actually bound for it, with wildcard ports resolved. Populated after
// MicroService binds its endpoints, and carried over ICCP READY.
type EndpointsMap map[string][]string

// Clone returns a deep copy, since EndpointsMap is mutated incrementally
// as channels are bound.
func (m EndpointsMap) Clone() EndpointsMap {
	out := make(EndpointsMap, len(m))
	for k, v := range m {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

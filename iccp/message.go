// Package iccp implements the Internal Component Control Protocol
// (spec.md §4.6, §6): the startup/configuration/stop/termination control
// plane a controller exchanges with its component over an inproc PAIR
// channel.
package iccp

import (
	"encoding/binary"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// MsgType enumerates ICCP message types (spec.md §6, exact values).
type MsgType uint16

const (
	MsgUnknown  MsgType = 0
	MsgReady    MsgType = 1
	MsgRequest  MsgType = 2
	MsgOK       MsgType = 3
	MsgError    MsgType = 4
	MsgStop     MsgType = 5
	MsgFinished MsgType = 6
)

var msgTypeNames = map[MsgType]string{
	MsgReady: "READY", MsgRequest: "REQUEST", MsgOK: "OK",
	MsgError: "ERROR", MsgStop: "STOP", MsgFinished: "FINISHED",
}

func (t MsgType) String() string {
	if n, ok := msgTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// RequestTag is REQUEST's frame-1 tag. CONFIGURE is the only one this
// module defines.
const RequestTagConfigure = "CONF"

// Message is the concrete channel.Message for ICCP.
type Message struct {
	Type MsgType

	Peer      *wire.PeerDataframe     // READY frame 1
	Endpoints *wire.EndpointsDataframe // READY frame 2

	RequestTag string // REQUEST frame 1
	Config     []byte // REQUEST frame 2, an opaque configuration blob

	ErrorText string // ERROR frame 1

	Outcome types.Outcome // FINISHED frame 1
	Details []string      // FINISHED frames 2..
}

func (m *Message) Clear() { *m = Message{} }

func (m *Message) Keys() []string { return []string{m.Type.String(), protocol.KeyAny} }

func (m *Message) ToFrames(ch *channel.Channel) ([][]byte, error) {
	head := make([]byte, 2)
	binary.BigEndian.PutUint16(head, uint16(m.Type))
	frames := [][]byte{head}
	switch m.Type {
	case MsgReady:
		peer := m.Peer
		if peer == nil {
			peer = &wire.PeerDataframe{}
		}
		endpoints := m.Endpoints
		if endpoints == nil {
			endpoints = &wire.EndpointsDataframe{}
		}
		frames = append(frames, peer.Marshal(), endpoints.Marshal())
	case MsgRequest:
		frames = append(frames, []byte(m.RequestTag), m.Config)
	case MsgError:
		frames = append(frames, []byte(m.ErrorText))
	case MsgFinished:
		frames = append(frames, []byte(m.Outcome.String()))
		for _, d := range m.Details {
			frames = append(frames, []byte(d))
		}
	case MsgOK, MsgStop:
		// no further frames
	}
	return frames, nil
}

func (m *Message) FromFrames(ch *channel.Channel, frames [][]byte) error {
	if len(frames) == 0 || len(frames[0]) != 2 {
		return errs.NewInvalidMessage("iccp: missing or malformed type frame", nil)
	}
	m.Type = MsgType(binary.BigEndian.Uint16(frames[0]))
	if _, ok := msgTypeNames[m.Type]; !ok {
		return errs.NewInvalidMessage("iccp: unknown message type", nil)
	}
	rest := frames[1:]
	switch m.Type {
	case MsgReady:
		if len(rest) != 2 {
			return errs.NewInvalidMessage("iccp: READY needs peer+endpoints frames", nil)
		}
		m.Peer = &wire.PeerDataframe{}
		if err := m.Peer.Unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("iccp: bad peer dataframe", err)
		}
		m.Endpoints = &wire.EndpointsDataframe{}
		if err := m.Endpoints.Unmarshal(rest[1]); err != nil {
			return errs.NewInvalidMessage("iccp: bad endpoints dataframe", err)
		}
	case MsgRequest:
		if len(rest) != 2 {
			return errs.NewInvalidMessage("iccp: REQUEST needs tag+config frames", nil)
		}
		m.RequestTag = string(rest[0])
		m.Config = rest[1]
	case MsgError:
		if len(rest) != 1 {
			return errs.NewInvalidMessage("iccp: ERROR needs exactly one frame", nil)
		}
		m.ErrorText = string(rest[0])
	case MsgFinished:
		if len(rest) < 1 {
			return errs.NewInvalidMessage("iccp: FINISHED needs an outcome frame", nil)
		}
		m.Outcome = types.ParseOutcome(string(rest[0]))
		for _, f := range rest[1:] {
			m.Details = append(m.Details, string(f))
		}
	case MsgOK, MsgStop:
		if len(rest) != 0 {
			return errs.NewInvalidMessage("iccp: OK/STOP must carry no payload", nil)
		}
	}
	return nil
}

func parseMessage(ch *channel.Channel, frames [][]byte) (channel.Message, error) {
	msg := &Message{}
	if err := msg.FromFrames(ch, frames); err != nil {
		return nil, err
	}
	return msg, nil
}

// NewReady builds a READY message announcing peer and its bound
// endpoints.
func NewReady(peer types.PeerDescriptor, endpoints types.EndpointsMap) *Message {
	return &Message{Type: MsgReady, Peer: wire.PeerToDataframe(peer), Endpoints: &wire.EndpointsDataframe{Entries: endpoints}}
}

// NewOK builds an OK message.
func NewOK() *Message { return &Message{Type: MsgOK} }

// NewError builds an ERROR message from cause, optionally with a
// traceback-style annotation appended to the text.
func NewError(cause error, traceback string) *Message {
	text := cause.Error()
	if traceback != "" {
		text += "\n" + traceback
	}
	return &Message{Type: MsgError, ErrorText: text}
}

// NewStop builds a STOP message.
func NewStop() *Message { return &Message{Type: MsgStop} }

// NewFinished builds a FINISHED message.
func NewFinished(outcome types.Outcome, details ...string) *Message {
	return &Message{Type: MsgFinished, Outcome: outcome, Details: details}
}

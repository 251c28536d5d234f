package fbsp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
)

// Message is the concrete channel.Message for FBSP: a decoded header
// plus whichever payload fields its Type uses. An ACK-REPLY never
// carries a body regardless of Type (spec.md §4.4).
type Message struct {
	Header Header

	Peer    *wire.PeerDataframe    // HELLO
	Service *wire.ServiceDataframe // WELCOME
	Cancel  *CancelRequest         // CANCEL
	State   *StateInfo             // STATE
	Errors  []wire.ErrorDescription // ERROR

	// DataFrames holds the raw payload frames for DATA, and the
	// method-specific argument frames for REQUEST/REPLY.
	DataFrames [][]byte
}

// CancelRequest is CANCEL's Protobuf payload: the token of the request
// being cancelled and an optional human-readable reason.
type CancelRequest struct {
	TargetToken uint64
	Reason      string
}

func (c *CancelRequest) marshal() []byte {
	w := wire.NewWriter()
	w.Varint(1, c.TargetToken).String(2, c.Reason)
	return w.Bytes()
}

func (c *CancelRequest) unmarshal(b []byte) error {
	fields, err := wire.ParseFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.Num {
		case 1:
			c.TargetToken = f.Varint
		case 2:
			c.Reason = f.String()
		}
	}
	return nil
}

// StateInfo is STATE's leading Protobuf payload frame: a state name plus
// free-form details. Additional API-specific frames may follow on the
// wire and are preserved in DataFrames.
type StateInfo struct {
	State   string
	Details map[string]string
}

func (s *StateInfo) marshal() []byte {
	w := wire.NewWriter()
	w.String(1, s.State)
	for k, v := range s.Details {
		e := wire.NewWriter()
		e.String(1, k).String(2, v)
		w.Message(2, e.Bytes())
	}
	return w.Bytes()
}

func (s *StateInfo) unmarshal(b []byte) error {
	fields, err := wire.ParseFields(b)
	if err != nil {
		return err
	}
	s.Details = nil
	for _, f := range fields {
		switch f.Num {
		case 1:
			s.State = f.String()
		case 2:
			inner, err := wire.ParseFields(f.Value)
			if err != nil {
				return err
			}
			var k, v string
			for _, e := range inner {
				switch e.Num {
				case 1:
					k = e.String()
				case 2:
					v = e.String()
				}
			}
			if s.Details == nil {
				s.Details = make(map[string]string)
			}
			s.Details[k] = v
		}
	}
	return nil
}

// Clear resets m to its zero value so it can be reused by the factory.
func (m *Message) Clear() {
	*m = Message{}
}

// Keys returns the dispatch lookup keys for m: the message type name
// first, then the protocol wildcard.
func (m *Message) Keys() []string {
	return []string{m.Header.Type.String(), protocol.KeyAny}
}

// ToFrames serializes m to its wire frames.
func (m *Message) ToFrames(ch *channel.Channel) ([][]byte, error) {
	frames := [][]byte{m.Header.Encode()}
	if m.Header.Flags&FlagAckReply != 0 {
		return frames, nil
	}
	switch m.Header.Type {
	case MsgHello:
		if m.Peer != nil {
			frames = append(frames, m.Peer.Marshal())
		}
	case MsgWelcome:
		if m.Service != nil {
			frames = append(frames, m.Service.Marshal())
		}
	case MsgCancel:
		if m.Cancel != nil {
			frames = append(frames, m.Cancel.marshal())
		}
	case MsgState:
		if m.State != nil {
			frames = append(frames, m.State.marshal())
		}
		frames = append(frames, m.DataFrames...)
	case MsgData, MsgRequest, MsgReply:
		frames = append(frames, m.DataFrames...)
	case MsgError:
		for _, e := range m.Errors {
			frames = append(frames, e.Marshal())
		}
	case MsgNoop, MsgClose:
		// no payload
	}
	return frames, nil
}

// FromFrames populates m from frames, frames[0] being the already-parsed
// header's source frame is re-parsed here for a self-contained decode.
func (m *Message) FromFrames(ch *channel.Channel, frames [][]byte) error {
	if len(frames) == 0 {
		return errs.NewInvalidMessage("fbsp: empty message", nil)
	}
	h, err := DecodeHeader(frames[0])
	if err != nil {
		return err
	}
	m.Header = h
	rest := frames[1:]

	if h.Flags&FlagAckReply != 0 {
		return nil
	}

	switch h.Type {
	case MsgHello:
		if len(rest) != 1 {
			return errs.NewInvalidMessage("fbsp: HELLO needs one dataframe", nil)
		}
		m.Peer = &wire.PeerDataframe{}
		if err := m.Peer.Unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("fbsp: bad HELLO dataframe", err)
		}
	case MsgWelcome:
		if len(rest) != 1 {
			return errs.NewInvalidMessage("fbsp: WELCOME needs one dataframe", nil)
		}
		m.Service = &wire.ServiceDataframe{}
		if err := m.Service.Unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("fbsp: bad WELCOME dataframe", err)
		}
	case MsgCancel:
		if len(rest) != 1 {
			return errs.NewInvalidMessage("fbsp: CANCEL needs one dataframe", nil)
		}
		m.Cancel = &CancelRequest{}
		if err := m.Cancel.unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("fbsp: bad CANCEL dataframe", err)
		}
	case MsgState:
		if len(rest) < 1 {
			return errs.NewInvalidMessage("fbsp: STATE needs a state-info dataframe", nil)
		}
		m.State = &StateInfo{}
		if err := m.State.unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("fbsp: bad STATE dataframe", err)
		}
		m.DataFrames = rest[1:]
	case MsgData, MsgRequest, MsgReply:
		m.DataFrames = rest
	case MsgError:
		for _, f := range rest {
			var e wire.ErrorDescription
			if err := e.Unmarshal(f); err != nil {
				return errs.NewInvalidMessage("fbsp: bad error dataframe", err)
			}
			m.Errors = append(m.Errors, e)
		}
	case MsgNoop, MsgClose:
		if len(rest) != 0 {
			return errs.NewInvalidMessage("fbsp: NOOP/CLOSE must carry no payload", nil)
		}
	}
	return nil
}

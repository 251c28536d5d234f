package fbdp

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/wire"
	"github.com/FirebirdSQL/saturnin-sub000/protocol"
)

// Message is the concrete channel.Message for FBDP.
type Message struct {
	Header Header

	Open *wire.OpenDataframe // OPEN

	// Payload is DATA's single optional payload frame.
	Payload []byte

	Errors []wire.ErrorDescription // CLOSE
}

// Clear resets m to its zero value so it can be reused by the factory.
func (m *Message) Clear() { *m = Message{} }

// Keys returns the dispatch lookup keys for m.
func (m *Message) Keys() []string {
	return []string{m.Header.Type.String(), protocol.KeyAny}
}

// ToFrames serializes m to its wire frames.
func (m *Message) ToFrames(ch *channel.Channel) ([][]byte, error) {
	frames := [][]byte{m.Header.Encode()}
	if m.Header.Flags&FlagAckReply != 0 && m.Header.Type == MsgData {
		return frames, nil
	}
	switch m.Header.Type {
	case MsgOpen:
		if m.Open != nil {
			frames = append(frames, m.Open.Marshal())
		}
	case MsgData:
		if m.Payload != nil {
			frames = append(frames, m.Payload)
		}
	case MsgClose:
		for _, e := range m.Errors {
			frames = append(frames, e.Marshal())
		}
	case MsgReady, MsgNoop:
		// no payload
	}
	return frames, nil
}

// FromFrames populates m from frames, validating per spec.md §4.5
// "validate".
func (m *Message) FromFrames(ch *channel.Channel, frames [][]byte) error {
	if len(frames) == 0 {
		return errs.NewInvalidMessage("fbdp: empty message", nil)
	}
	h, err := DecodeHeader(frames[0])
	if err != nil {
		return err
	}
	m.Header = h
	rest := frames[1:]

	if h.Flags&FlagAckReply != 0 && h.Type == MsgData {
		if len(rest) != 0 {
			return errs.NewInvalidMessage("fbdp: ACK_REPLY must carry no payload", nil)
		}
		return nil
	}

	switch h.Type {
	case MsgOpen:
		if len(rest) != 1 {
			return errs.NewInvalidMessage("fbdp: OPEN needs exactly one dataframe", nil)
		}
		o := &wire.OpenDataframe{}
		if err := o.Unmarshal(rest[0]); err != nil {
			return errs.NewInvalidMessage("fbdp: bad OPEN dataframe", err)
		}
		if o.DataPipe == "" {
			return errs.NewInvalidMessage("fbdp: OPEN.data_pipe must be non-empty", nil)
		}
		if PipeSocket(o.PipeSocket) != PipeSocketInput && PipeSocket(o.PipeSocket) != PipeSocketOutput {
			return errs.NewInvalidMessage("fbdp: OPEN.pipe_socket invalid", nil)
		}
		if o.DataFormat == "" {
			return errs.NewInvalidMessage("fbdp: OPEN.data_format must be non-empty", nil)
		}
		m.Open = o
	case MsgReady, MsgNoop:
		if len(rest) != 0 {
			return errs.NewInvalidMessage("fbdp: READY/NOOP must carry no payload", nil)
		}
	case MsgData:
		if len(rest) > 1 {
			return errs.NewInvalidMessage("fbdp: DATA carries at most one payload frame", nil)
		}
		if len(rest) == 1 {
			m.Payload = rest[0]
		}
	case MsgClose:
		for _, f := range rest {
			var e wire.ErrorDescription
			if err := e.Unmarshal(f); err != nil {
				return errs.NewInvalidMessage("fbdp: bad CLOSE dataframe", err)
			}
			if e.Description == "" {
				return errs.NewInvalidMessage("fbdp: CLOSE error description must be non-empty", nil)
			}
			m.Errors = append(m.Errors, e)
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

package fbdp

import "github.com/FirebirdSQL/saturnin-sub000/channel"

// SessionData is the FBDP extension attached to channel.Session.Data: the
// pipe's negotiated OPEN parameters plus the current batch credit.
type SessionData struct {
	DataPipe   string
	PipeSocket PipeSocket
	DataFormat string
	Params     map[string]string

	// Transmit is the remaining credit in the current batch: the number
	// of DATA frames the producer may still send before a new batch must
	// be negotiated (spec.md §4.5 "transmit"). nil means no batch has
	// been negotiated yet (READY has not yet been exchanged) - distinct
	// from zero credit, which means a negotiated batch is exhausted.
	Transmit *int

	// AwaitReady marks that a READY re-negotiation is outstanding: the
	// server set it when its READY proposed a batch of 0. Sending a
	// non-zero READY or receiving a READY (either side) clears it.
	AwaitReady bool

	// Opened marks that OPEN has completed on this session.
	Opened bool
}

// HasCredit reports whether a batch has been negotiated and still has
// remaining transmit credit.
func (d *SessionData) HasCredit() bool { return d.Transmit != nil && *d.Transmit > 0 }

// SetTransmit negotiates a new batch of n frames of credit.
func (d *SessionData) SetTransmit(n int) { d.Transmit = &n }

// ConsumeCredit decrements the negotiated batch by one, if any is
// outstanding.
func (d *SessionData) ConsumeCredit() {
	if d.Transmit != nil && *d.Transmit > 0 {
		*d.Transmit--
	}
}

// NewSessionData is the channel.Options.NewSession factory the fbdp
// protocols install.
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

// Package pipe provides the reusable FBDP microservice bases (spec.md
// §4.9/§10): provider, consumer and filter components, each wiring a
// server and/or client FBDP role onto a microservice.Component so a
// concrete component only has to supply the data-moving logic.
package pipe

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/fbdp"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/microservice"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// resendReadyDelayMs is how long a provider/consumer waits before
// retrying batch negotiation after OnGetReady returned 0.
const resendReadyDelayMs = 50

// Base wires a channel manager's channel set around one FBDP role,
// leaving RegisterChannels/Endpoints/AcquireResources/StartActivities to
// the embedding component.
type Base struct {
	ChannelName string
	Address     string

	// Wake is a one-slot channel that notifyWake signals with a
	// non-blocking send; it is never closed. Nothing in this package
	// calls notifyWake, so Provider and Consumer do not signal it.
	Wake chan struct{}
}

// NewBase constructs a Base for the channel named name, served or
// connected at address.
func NewBase(name, address string) Base {
	return Base{ChannelName: name, Address: address, Wake: make(chan struct{}, 1)}
}

// notifyWake pings Wake without blocking if nobody is listening yet.
func (b *Base) notifyWake() {
	select {
	case b.Wake <- struct{}{}:
	default:
	}
}

// Provider is an FBDP server that only produces DATA: it binds
// ChannelName, accepts OPEN, and calls Produce from PumpOne, which the
// embedding component drives; one call sends at most one DATA frame.
type Provider struct {
	Base
	Server *fbdp.Server

	// Scheduler, if set, is used to retry batch negotiation after
	// OnGetReady returns 0 instead of relying on an external trigger.
	Scheduler *microservice.Scheduler

	// Produce supplies the next payload to send, or (nil, false) when
	// there is nothing ready yet.
	Produce func(ch *channel.Channel, session *channel.Session) ([]byte, bool)
}

// NewProvider constructs a Provider with batchSize as its protocol-wide
// default batch size.
func NewProvider(name, address string, batchSize int) *Provider {
	p := &Provider{Base: NewBase(name, address)}
	p.Server = fbdp.NewServer(types.DirectionOut, batchSize)
	p.Server.OnGetReady = func(ch *channel.Channel, session *channel.Session) int {
		return -1
	}
	p.Server.OnScheduleResend = func(ch *channel.Channel, session *channel.Session) {
		if p.Scheduler == nil {
			return
		}
		p.Scheduler.Schedule(func() {
			if err := p.Server.ResendReady(ch, session); err != nil {
				logging.Warnf("pipe<provider>: resend ready failed: %v", err)
			}
		}, resendReadyDelayMs)
	}
	return p
}

// PumpOne tries to send one DATA frame if the session has credit and
// Produce has something ready. Callers drive this from the component's
// scheduled actions or from Base.Wake being signalled.
func (p *Provider) PumpOne(ch *channel.Channel, session *channel.Session) (bool, error) {
	if p.Produce == nil || session == nil {
		return false, nil
	}
	if d, ok := session.Data.(*fbdp.SessionData); !ok || !d.HasCredit() {
		return false, nil
	}
	payload, ok := p.Produce(ch, session)
	if !ok {
		return false, nil
	}
	if err := p.Server.SendData(ch, session, payload, false); err != nil {
		return false, err
	}
	return true, nil
}

// Consumer is an FBDP server that only consumes DATA.
type Consumer struct {
	Base
	Server *fbdp.Server

	// Scheduler, if set, is used to retry batch negotiation after
	// OnGetReady returns 0 instead of relying on an external trigger.
	Scheduler *microservice.Scheduler

	// Consume is invoked for every DATA payload received.
	Consume func(ch *channel.Channel, session *channel.Session, payload []byte) error
}

// NewConsumer constructs a Consumer with batchSize as its protocol-wide
// default batch size.
func NewConsumer(name, address string, batchSize int) *Consumer {
	c := &Consumer{Base: NewBase(name, address)}
	c.Server = fbdp.NewServer(types.DirectionIn, batchSize)
	c.Server.OnGetReady = func(ch *channel.Channel, session *channel.Session) int {
		return -1
	}
	c.Server.OnData = func(ch *channel.Channel, session *channel.Session, payload []byte) error {
		if c.Consume == nil {
			return nil
		}
		return c.Consume(ch, session, payload)
	}
	c.Server.OnScheduleResend = func(ch *channel.Channel, session *channel.Session) {
		if c.Scheduler == nil {
			return
		}
		c.Scheduler.Schedule(func() {
			if err := c.Server.ResendReady(ch, session); err != nil {
				logging.Warnf("pipe<consumer>: resend ready failed: %v", err)
			}
		}, resendReadyDelayMs)
	}
	return c
}

// Filter consumes from one upstream pipe and produces to one downstream
// pipe, typically as an FBDP client on both sides (spec.md §4.9/§10
// "filter"). Its Wake channel is signalled whenever the downstream side
// regains transmit credit, so the upstream consumer loop can resume
// pulling input after being throttled.
type Filter struct {
	Upstream     *fbdp.Client
	Downstream   *fbdp.Client
	DownstreamCh *channel.Channel
	Wake         chan struct{}

	downstreamSession *channel.Session

	// Transform maps one input payload to zero or more output payloads.
	Transform func(payload []byte) ([][]byte, error)
}

// NewFilter constructs a Filter connecting upstreamAddr as a consumer
// and downstreamAddr as a producer. downstreamCh is the already-created
// Downstream channel, needed so transformed output can be sent as soon
// as it is produced instead of staged for the owning component to
// forward by hand.
func NewFilter(upstreamPipe, downstreamPipe string, downstreamCh *channel.Channel, ownLimit int) *Filter {
	f := &Filter{Wake: make(chan struct{}, 1), DownstreamCh: downstreamCh}
	f.Upstream = fbdp.NewClient(upstreamPipe, fbdp.PipeSocketInput, "application/octet-stream", ownLimit)
	f.Downstream = fbdp.NewClient(downstreamPipe, fbdp.PipeSocketOutput, "application/octet-stream", ownLimit)

	f.Upstream.OnData = func(ch *channel.Channel, session *channel.Session, payload []byte) error {
		if f.Transform == nil || f.downstreamSession == nil {
			return nil
		}
		outputs, err := f.Transform(payload)
		if err != nil {
			return err
		}
		for _, out := range outputs {
			if err := f.Downstream.SendData(f.DownstreamCh, f.downstreamSession, out, false); err != nil {
				return err
			}
		}
		return nil
	}
	f.Downstream.OnReady = func(ch *channel.Channel, session *channel.Session, accepted int) {
		f.downstreamSession = session
		select {
		case f.Wake <- struct{}{}:
		default:
		}
	}
	return f
}

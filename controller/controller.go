// Package controller implements the Direct and Thread controllers
// (spec.md §4.8): they own a component's control-plane conversation,
// captured as READY/ERROR/FINISHED over ICCP.
package controller

import (
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/iccp"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/microservice"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// readyWaitTimeout bounds how long a controller waits for its
// component's first READY/ERROR (spec.md §4.8 "Waits up to 1s").
const readyWaitTimeout = time.Second

// Factory builds the Component a controller will run, given its
// validated configuration.
type Factory func(config []byte) (microservice.Component, error)

// base holds the control-plane machinery shared by Direct and Thread.
type base struct {
	peer    types.PeerDescriptor
	manager *channel.Manager
	control *channel.Channel
	proto   *iccp.ControllerSide

	controlAddress string

	readyCh chan struct{}
	errCh   chan error

	componentPeer      types.PeerDescriptor
	componentEndpoints types.EndpointsMap

	outcome types.Outcome
	details []string

	finishedCh chan struct{}
}

func newBase(ctx *zmq.Context, peer types.PeerDescriptor, metricsSet *metrics.Set, controlAddress string) (*base, error) {
	b := &base{
		peer:           peer,
		manager:        channel.NewManager(ctx, metricsSet),
		controlAddress: controlAddress,
		readyCh:        make(chan struct{}, 1),
		errCh:          make(chan error, 1),
		finishedCh:     make(chan struct{}, 1),
	}
	b.proto = iccp.NewControllerSide()
	b.proto.OnReady = func(ch *channel.Channel, session *channel.Session, p types.PeerDescriptor, endpoints types.EndpointsMap) {
		b.componentPeer, b.componentEndpoints = p, endpoints
		select {
		case b.readyCh <- struct{}{}:
		default:
		}
	}
	b.proto.OnError = func(ch *channel.Channel, session *channel.Session, text string) {
		select {
		case b.errCh <- errs.NewService("component", errs.NewInvalidMessage(text, nil)):
		default:
		}
	}
	b.proto.OnFinished = func(ch *channel.Channel, session *channel.Session, outcome types.Outcome, details []string) {
		b.outcome, b.details = outcome, details
		select {
		case b.finishedCh <- struct{}{}:
		default:
		}
	}
	b.proto.OnStopController = func(ch *channel.Channel, session *channel.Session, cause error) {
		logging.Warnf("controller: %v", cause)
	}

	ctrl, err := b.manager.CreateChannel(channel.KindPair, "control", b.proto, channel.Options{WaitFor: types.DirectionBoth})
	if err != nil {
		return nil, err
	}
	b.control = ctrl
	if err := b.manager.WarmUp(); err != nil {
		return nil, err
	}
	if _, err := b.control.Bind(controlAddress); err != nil {
		return nil, err
	}
	return b, nil
}

// waitReady blocks on the control channel until READY or ERROR arrives,
// or timeout elapses.
func (b *base) waitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errs.NewTimeout("wait for component READY")
		}
		_, _, err := b.control.Receive(int(remaining / time.Millisecond))
		if err != nil {
			return err
		}
		select {
		case <-b.readyCh:
			return nil
		default:
		}
		select {
		case err := <-b.errCh:
			return err
		default:
		}
	}
}

func (b *base) sendStop() error {
	session, ok := b.control.Session(nil)
	if !ok {
		return errs.NewChannelError("control", "no control session")
	}
	return b.control.Send(iccp.NewStop(), session, nil, nil)
}

func (b *base) shutdown() {
	b.manager.Shutdown(true)
}

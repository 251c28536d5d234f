package controller

import (
	"fmt"
	"os"
	"os/signal"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/microservice"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Direct runs a component in-process, on the calling (main) goroutine
// (spec.md §4.8 "Direct controller").
type Direct struct {
	*base
	service *microservice.Service
}

// NewDirect creates the component via factory, calls WarmUp against a
// fresh inproc control endpoint, and waits for READY.
func NewDirect(ctx *zmq.Context, peer types.PeerDescriptor, metricsSet *metrics.Set, factory Factory, config []byte) (*Direct, error) {
	controlAddress := fmt.Sprintf("inproc://iccp-control-%s", peer.UID)
	b, err := newBase(ctx, peer, metricsSet, controlAddress)
	if err != nil {
		return nil, err
	}

	component, err := factory(config)
	if err != nil {
		b.shutdown()
		return nil, errs.NewService("build component", err)
	}

	svc := microservice.New(ctx, peer, metricsSet, component)
	if err := svc.WarmUp(controlAddress); err != nil {
		b.shutdown()
		return nil, errs.NewService("warm up component", err)
	}

	if err := b.waitReady(readyWaitTimeout); err != nil {
		b.shutdown()
		return nil, err
	}

	return &Direct{base: b, service: svc}, nil
}

// Run installs a SIGINT handler that requests a graceful stop, then
// blocks on the component's event loop.
func (d *Direct) Run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			_ = d.sendStop()
		case <-done:
		}
	}()

	d.service.Run()
	close(done)
	signal.Stop(sigCh)

	d.control.Receive(200)
	select {
	case <-d.finishedCh:
	default:
		logging.Warnf("controller<direct>: no FINISHED received after run")
	}
	d.shutdown()
}

// Outcome returns the component's terminal outcome and detail lines.
func (d *Direct) Outcome() (types.Outcome, []string) { return d.outcome, d.details }

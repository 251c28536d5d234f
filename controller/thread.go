package controller

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/microservice"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Thread runs a component in its own worker goroutine, the Go analogue
// of spec.md §4.8's worker-thread controller: no signal handling, and
// start/stop are driven by explicit timeouts instead of the process's
// interrupt.
type Thread struct {
	*base
	service *microservice.Service

	doneCh    chan struct{}
	cancelCh  chan struct{}
	terminate bool
}

// NewThread builds the component and spawns it on a worker goroutine,
// without waiting for it to become ready; call Start to do that.
func NewThread(ctx *zmq.Context, peer types.PeerDescriptor, metricsSet *metrics.Set, factory Factory, config []byte) (*Thread, error) {
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

	t := &Thread{base: b, doneCh: make(chan struct{}), cancelCh: make(chan struct{})}
	t.service = microservice.New(ctx, peer, metricsSet, component)

	go t.runWorker(controlAddress)
	return t, nil
}

func (t *Thread) runWorker(controlAddress string) {
	defer close(t.doneCh)
	if err := t.service.WarmUp(controlAddress); err != nil {
		select {
		case t.errCh <- err:
		default:
		}
		return
	}
	select {
	case <-t.cancelCh:
		t.service.RequestStop()
	default:
	}
	t.service.Run()
}

// Start waits up to timeout for the worker to report READY, ERROR, or
// die outright.
func (t *Thread) Start(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errs.NewTimeout("controller start")
		}
		waitTimeout := 20 * time.Millisecond
		if remaining < waitTimeout {
			waitTimeout = remaining
		}
		t.control.Receive(int(waitTimeout / time.Millisecond))

		select {
		case <-t.readyCh:
			return nil
		default:
		}
		select {
		case err := <-t.errCh:
			return err
		default:
		}
		select {
		case <-t.doneCh:
			return errs.NewService("controller start", fmt.Errorf("worker exited before becoming ready"))
		default:
		}
	}
}

// Stop sends STOP, waits for FINISHED or ERROR up to timeout, then
// joins the worker; if it is still alive after the remainder of the
// timeout, it reports a timeout error (spec.md §4.8 "Thread
// controller").
func (t *Thread) Stop(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if err := t.sendStop(); err != nil {
		return err
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errs.NewTimeout("controller stop")
		}
		waitTimeout := 20 * time.Millisecond
		if remaining < waitTimeout {
			waitTimeout = remaining
		}
		t.control.Receive(int(waitTimeout / time.Millisecond))

		select {
		case <-t.finishedCh:
			return t.join(time.Until(deadline))
		default:
		}
		select {
		case err := <-t.errCh:
			return err
		default:
		}
		select {
		case <-t.doneCh:
			return nil
		default:
		}
	}
}

// join waits for the worker goroutine to exit.
func (t *Thread) join(timeout time.Duration) error {
	select {
	case <-t.doneCh:
		return nil
	case <-time.After(timeout):
		return errs.NewTimeout("controller join")
	}
}

// Terminate is only to be used after a failed Stop: it asks the worker
// to unwind via cooperative cancellation. Go has no safe asynchronous
// thread-kill primitive, so this is the best-effort equivalent the spec
// calls for; it reports an error if the worker is still alive once the
// grace period elapses.
func (t *Thread) Terminate(grace time.Duration) error {
	t.terminate = true
	select {
	case t.cancelCh <- struct{}{}:
	default:
	}
	t.service.RequestStop()
	select {
	case <-t.doneCh:
		return nil
	case <-time.After(grace):
		logging.Warnf("controller<thread>: worker did not exit within grace period")
		return errs.NewTimeout("controller terminate")
	}
}

// Outcome returns the component's terminal outcome and detail lines.
func (t *Thread) Outcome() (types.Outcome, []string) { return t.outcome, t.details }

// Endpoints returns the addresses the component bound, captured from its
// READY message.
func (t *Thread) Endpoints() types.EndpointsMap { return t.componentEndpoints }

// Join blocks until the worker goroutine has exited, or timeout
// elapses if positive.
func (t *Thread) Join(timeout time.Duration) error {
	if timeout <= 0 {
		<-t.doneCh
		return nil
	}
	return t.join(timeout)
}

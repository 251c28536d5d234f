// Package microservice implements the component runtime (spec.md §4.7):
// warm-up, the cooperative event loop, and the monotonic scheduler that
// drives every Firebird Butler microservice.
package microservice

import (
	"sync/atomic"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/iccp"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

const controlChannelName = "iccp_control"

// defaultWaitTimeout is the fallback passed to Manager.Wait when the
// scheduler has nothing pending (spec.md §4.7 "1s if none").
const defaultWaitTimeout = time.Second

// Service drives one Component through its whole lifecycle.
type Service struct {
	Manager   *channel.Manager
	Scheduler *Scheduler

	peer      types.PeerDescriptor
	component Component

	control   *channel.Channel
	iccpProto *iccp.Component

	state   types.State
	outcome types.Outcome
	details []string

	// stop is set from RequestStop, which Thread.Terminate calls from a
	// goroutine other than the one running Run's loop.
	stop int32
}

// New constructs a Service around component, wired to ctx and peer.
func New(ctx *zmq.Context, peer types.PeerDescriptor, metricsSet *metrics.Set, component Component) *Service {
	return &Service{
		Manager:   channel.NewManager(ctx, metricsSet),
		Scheduler: NewScheduler(nil),
		peer:      peer,
		component: component,
		state:     types.StateCreated,
	}
}

// State returns the component's current lifecycle state.
func (s *Service) State() types.State { return s.state }

// Outcome returns the terminal outcome, valid once State is FINISHED or
// ABORTED.
func (s *Service) Outcome() types.Outcome { return s.outcome }

// RequestStop sets the loop's stop flag; the running event loop exits at
// the start of its next iteration. Safe to call from another goroutine
// than the one running Run.
func (s *Service) RequestStop() { atomic.StoreInt32(&s.stop, 1) }

// WarmUp performs spec.md §4.7's five warm-up steps. controlAddress may
// be empty, in which case no ICCP control channel is created.
func (s *Service) WarmUp(controlAddress string) error {
	if controlAddress != "" {
		s.iccpProto = iccp.NewComponent()
		s.iccpProto.OnStopComponent = func(ch *channel.Channel, session *channel.Session, cause error) {
			s.RequestStop()
		}
		if configurer, ok := s.component.(Configurer); ok {
			s.iccpProto.OnConfigure = func(ch *channel.Channel, session *channel.Session, config []byte) error {
				return configurer.ConfigurationRequest(config)
			}
		}
		ctrl, err := s.Manager.CreateChannel(channel.KindPair, controlChannelName, s.iccpProto, channel.Options{WaitFor: types.DirectionBoth})
		if err != nil {
			return errs.NewService("create control channel", err)
		}
		s.control = ctrl
		if err := s.Manager.WarmUp(); err != nil {
			return errs.NewService("warm up manager", err)
		}
		if _, err := s.control.Connect(controlAddress, nil); err != nil {
			return errs.NewService("connect control channel", err)
		}
		if !s.control.Direction().Includes(types.DirectionOut) {
			return errs.NewService("warm up", errs.NewChannelError(controlChannelName, "control channel cannot send"))
		}
	} else if err := s.Manager.WarmUp(); err != nil {
		return errs.NewService("warm up manager", err)
	}

	if err := s.component.RegisterChannels(s.Manager); err != nil {
		return s.abortWarmUp(err)
	}
	if err := s.Manager.WarmUp(); err != nil {
		return s.abortWarmUp(err)
	}

	endpoints := make(types.EndpointsMap)
	for name, addrs := range s.component.Endpoints() {
		ch, ok := s.Manager.Channel(name)
		if !ok {
			return s.abortWarmUp(errs.NewChannelError(name, "channel not registered"))
		}
		for _, addr := range addrs {
			if _, err := ch.Bind(addr); err != nil {
				return s.abortWarmUp(errs.NewChannelError(name, err.Error()))
			}
		}
		endpoints[name] = ch.Endpoints()
	}

	if err := s.component.AcquireResources(); err != nil {
		return s.abortWarmUp(err)
	}
	if err := s.component.StartActivities(); err != nil {
		s.component.ReleaseResources()
		return s.abortWarmUp(err)
	}

	s.state = types.StateReady
	if s.control != nil {
		if controlSession, ok := s.control.Session(nil); ok {
			_ = s.control.Send(iccp.NewReady(s.peer, endpoints), controlSession, nil, func(err error) {
				logging.Warnf("microservice: failed to send READY: %v", err)
			})
		}
	}
	return nil
}

func (s *Service) abortWarmUp(cause error) error {
	if s.control != nil {
		if controlSession, ok := s.control.Session(nil); ok {
			_ = s.control.Send(iccp.NewError(cause, ""), controlSession, nil, nil)
		}
	}
	s.Manager.Shutdown(true)
	return cause
}

// Run executes the cooperative event loop until stop is requested or an
// unrecoverable error occurs (spec.md §4.7 "The event loop").
func (s *Service) Run() {
	s.state = types.StateRunning
	defer s.finish()

	for atomic.LoadInt32(&s.stop) == 0 {
		timeout, ok := s.Scheduler.GetTimeout()
		if !ok {
			timeout = int(defaultWaitTimeout / time.Millisecond)
		}
		ready, err := s.Manager.Wait(timeout)
		if err != nil {
			logging.Errorf("microservice: wait failed: %v", err)
			s.outcome = types.OutcomeError
			s.details = append(s.details, err.Error())
			return
		}

		if s.control != nil {
			if dir, ok := ready[s.control]; ok && dir.Includes(types.DirectionIn) {
				s.control.Receive(0)
				delete(ready, s.control)
				if atomic.LoadInt32(&s.stop) != 0 {
					continue
				}
			}
		}

		for ch, dir := range ready {
			if dir.Includes(types.DirectionOut) {
				s.onOutputReady(ch)
			}
		}
		for ch, dir := range ready {
			if dir.Includes(types.DirectionIn) {
				ch.Receive(0)
			}
		}

		s.Scheduler.RunScheduled()
	}
}

// onOutputReady is a hook point for producer components; the default
// microservice runtime has no generic action to take here since FBDP
// producers push data from their own scheduled/triggered activities,
// not from poll readiness alone.
func (s *Service) onOutputReady(ch *channel.Channel) {}

func (s *Service) finish() {
	s.state = types.StateStopped
	s.component.StopActivities()
	s.component.ReleaseResources()
	if s.outcome == types.OutcomeUnknown {
		s.outcome = types.OutcomeOK
	}
	if s.control != nil {
		if controlSession, ok := s.control.Session(nil); ok {
			_ = s.control.Send(iccp.NewFinished(s.outcome, s.details...), controlSession, nil, func(err error) {
				logging.Warnf("microservice: failed to send FINISHED: %v", err)
			})
		}
	}
	s.Manager.Shutdown(false)
	s.state = types.StateFinished
}

// Abort is called on an uncaught exception escaping Run's caller;
// it marks ABORTED, attempts a best-effort ERROR notification, and
// forcibly shuts the manager down.
func (s *Service) Abort(cause error) {
	s.outcome = types.OutcomeError
	if s.control != nil {
		if controlSession, ok := s.control.Session(nil); ok {
			_ = s.control.Send(iccp.NewError(cause, ""), controlSession, nil, nil)
		}
	}
	s.Manager.Shutdown(true)
	s.state = types.StateAborted
}

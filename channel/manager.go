package channel

import (
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Manager multiplexes a set of uniquely-named Channels over a single
// ZeroMQ context and poll loop (spec.md §4.1).
type Manager struct {
	mu sync.Mutex

	ctx      *zmq.Context
	channels map[string]*Channel
	order    []string // preserves create_channel order for deterministic shutdown
	poller   *zmq.Poller
	pollIdx  []string // channel name per poller slot, in registration order

	hasPollout bool
	metrics    *metrics.Set
}

// NewManager creates a Manager against an explicit ZeroMQ context
// reference, rather than a process-wide singleton (spec.md §9 design
// note on context ownership). metrics may be nil to disable
// instrumentation.
func NewManager(ctx *zmq.Context, metricsSet *metrics.Set) *Manager {
	return &Manager{
		ctx:      ctx,
		channels: make(map[string]*Channel),
		metrics:  metricsSet,
	}
}

// CreateChannel creates a new, socket-less Channel. name must be unique
// within the manager.
func (m *Manager) CreateChannel(kind SocketKind, name string, protocol Protocol, opts Options) (*Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[name]; exists {
		return nil, errs.NewChannelError(name, "channel name already in use")
	}
	if !kind.direction().Includes(opts.WaitFor) {
		return nil, errs.NewChannelError(name, "wait_for must be a subset of direction")
	}

	ch := newChannel(name, kind, protocol, opts)
	ch.manager = m
	ch.metrics = m.metrics
	m.channels[name] = ch
	m.order = append(m.order, name)
	return ch, nil
}

// Channel looks up a previously created channel by name.
func (m *Manager) Channel(name string) (*Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// WarmUp allocates the ZeroMQ socket for every channel that doesn't have
// one yet, applies its configured options, and lets the channel kind
// apply its own socket-specific configuration (spec.md §4.1 warm_up).
func (m *Manager) WarmUp() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		ch := m.channels[name]
		if ch.hasSocket() {
			continue
		}
		socket, err := m.ctx.NewSocket(ch.kind.zmqType())
		if err != nil {
			return err
		}

		if len(ch.routingID) > 0 {
			if err := socket.SetIdentity(string(ch.routingID)); err != nil {
				socket.Close()
				return err
			}
		}
		if err := socket.SetImmediate(true); err != nil {
			socket.Close()
			return err
		}
		if ch.timeouts.Send > 0 {
			if err := socket.SetSndtimeo(ch.timeouts.Send); err != nil {
				socket.Close()
				return err
			}
		}
		if ch.timeouts.Receive > 0 {
			if err := socket.SetRcvtimeo(ch.timeouts.Receive); err != nil {
				socket.Close()
				return err
			}
		}
		if err := socket.SetLinger(ch.timeouts.Linger); err != nil {
			socket.Close()
			return err
		}
		for _, apply := range sockOptApplicators {
			if v, ok := ch.sockOpts[apply.name]; ok {
				if err := apply.fn(socket, v); err != nil {
					socket.Close()
					return err
				}
			}
		}

		switch ch.kind {
		case KindRouter:
			if err := socket.SetRouterMandatory(1); err != nil {
				socket.Close()
				return err
			}
		case KindXPub:
			if err := socket.SetXpubVerbose(true); err != nil {
				socket.Close()
				return err
			}
		}

		ch.mu.Lock()
		ch.socket = socket
		ch.mu.Unlock()
		logging.Debugf("manager: warmed up channel %q (%s)", name, ch.kind)
	}
	return nil
}

// updatePoller recomputes the has_pollout cache and, if a poller has
// already been built, rebuilds its registration set so the next Wait
// reflects ch's new wait_for. Installation is deferred to the first
// Wait call when no poller exists yet.
func (m *Manager) updatePoller(ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hasPollout = false
	for _, name := range m.order {
		if m.channels[name].waitFor.Includes(types.DirectionOut) {
			m.hasPollout = true
			break
		}
	}
	if m.poller != nil {
		m.rebuildPollerLocked()
	}
}

func (m *Manager) rebuildPollerLocked() {
	poller := zmq.NewPoller()
	idx := make([]string, 0, len(m.order))
	for _, name := range m.order {
		ch := m.channels[name]
		if !ch.hasSocket() || ch.waitFor == types.DirectionNone {
			continue
		}
		var events zmq.State
		if ch.waitFor.Includes(types.DirectionIn) {
			events |= zmq.POLLIN
		}
		if ch.waitFor.Includes(types.DirectionOut) {
			events |= zmq.POLLOUT
		}
		poller.Add(ch.socket, events)
		idx = append(idx, name)
	}
	m.poller = poller
	m.pollIdx = idx
}

// HasPollout reports whether any channel currently waits for OUT events.
func (m *Manager) HasPollout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasPollout
}

// Wait polls every channel's socket and returns the set of channels with
// observed activity, mapped to the direction(s) observed. A negative
// timeoutMs blocks indefinitely; timeoutMs of 0 polls without blocking.
// Returns an empty map on timeout. With no channels to poll it returns
// an empty map at once, after sleeping timeoutMs if that is positive.
func (m *Manager) Wait(timeoutMs int) (map[*Channel]types.Direction, error) {
	m.mu.Lock()
	if m.poller == nil {
		m.rebuildPollerLocked()
	}
	poller := m.poller
	idx := m.pollIdx
	channels := make([]*Channel, len(idx))
	for i, name := range idx {
		channels[i] = m.channels[name]
	}
	m.mu.Unlock()

	if len(idx) == 0 {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return map[*Channel]types.Direction{}, nil
	}

	polled, err := poller.Poll(time.Duration(timeoutMs) * time.Millisecond)
	if err != nil {
		return nil, err
	}

	result := make(map[*Channel]types.Direction, len(polled))
	for _, p := range polled {
		for i, ch := range channels {
			_ = i
			if ch.socket == p.Socket {
				var dir types.Direction
				if p.Events&zmq.POLLIN != 0 {
					dir |= types.DirectionIn
				}
				if p.Events&zmq.POLLOUT != 0 {
					dir |= types.DirectionOut
				}
				result[ch] = dir
				break
			}
		}
	}
	return result, nil
}

// Shutdown tears every channel down: unregister from the poller,
// unbind/disconnect every endpoint (errors swallowed), clear sessions,
// then close (or, with forced and zero linger, drop) the socket. It is
// deterministic and idempotent.
func (m *Manager) Shutdown(forced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.poller = nil
	m.pollIdx = nil

	for i := len(m.order) - 1; i >= 0; i-- {
		ch := m.channels[m.order[i]]
		ch.mu.Lock()
		if ch.socket == nil {
			ch.mu.Unlock()
			continue
		}
		for _, e := range ch.endpoints {
			if ch.mode == types.ModeBind {
				if err := ch.socket.Unbind(e); err != nil {
					logging.Debugf("manager: shutdown unbind %q %s: %v", ch.name, e, err)
				}
			} else {
				if err := ch.socket.Disconnect(e); err != nil {
					logging.Debugf("manager: shutdown disconnect %q %s: %v", ch.name, e, err)
				}
			}
		}
		ch.endpoints = nil
		ch.mode = types.ModeUnknown
		ch.sessions = make(map[string]*Session)

		if forced && ch.timeouts.Linger == 0 {
			if err := ch.socket.Close(); err != nil {
				logging.Debugf("manager: forced close %q: %v", ch.name, err)
			}
		} else {
			if err := ch.socket.Close(); err != nil {
				logging.Debugf("manager: close %q: %v", ch.name, err)
			}
		}
		ch.socket = nil
		ch.mu.Unlock()
	}
	logging.Debug("manager: shutdown complete")
}

type sockOptApplicator struct {
	name string
	fn   func(*zmq.Socket, interface{}) error
}

// sockOptApplicators maps the well-known extra socket option names a
// caller may pass via Options.SockOpts to the zmq4 setter they configure.
var sockOptApplicators = []sockOptApplicator{
	{"sndhwm", func(s *zmq.Socket, v interface{}) error { return s.SetSndhwm(v.(int)) }},
	{"rcvhwm", func(s *zmq.Socket, v interface{}) error { return s.SetRcvhwm(v.(int)) }},
	{"maxmsgsize", func(s *zmq.Socket, v interface{}) error { return s.SetMaxmsgsize(v.(int64)) }},
	{"tcp_keepalive", func(s *zmq.Socket, v interface{}) error { return s.SetTcpKeepalive(v.(int)) }},
}

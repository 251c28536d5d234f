// Package channel implements the channel manager and channel layer of
// spec.md §4.1–§4.2: a ZeroMQ socket plus session bookkeeping, unified
// polling across channels, and protocol message send/receive.
package channel

import (
	"fmt"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// SocketKind names a ZeroMQ socket type together with the direction and
// routing behaviour the spec fixes for it (spec.md §4.2, last paragraph).
type SocketKind int

const (
	KindDealer SocketKind = iota
	KindRouter
	KindPair
	KindPush
	KindPull
	KindPub
	KindSub
	KindXPub
	KindXSub
)

func (k SocketKind) String() string {
	switch k {
	case KindDealer:
		return "DEALER"
	case KindRouter:
		return "ROUTER"
	case KindPair:
		return "PAIR"
	case KindPush:
		return "PUSH"
	case KindPull:
		return "PULL"
	case KindPub:
		return "PUB"
	case KindSub:
		return "SUB"
	case KindXPub:
		return "XPUB"
	case KindXSub:
		return "XSUB"
	default:
		return "UNKNOWN"
	}
}

func (k SocketKind) zmqType() zmq.Type {
	switch k {
	case KindDealer:
		return zmq.DEALER
	case KindRouter:
		return zmq.ROUTER
	case KindPair:
		return zmq.PAIR
	case KindPush:
		return zmq.PUSH
	case KindPull:
		return zmq.PULL
	case KindPub:
		return zmq.PUB
	case KindSub:
		return zmq.SUB
	case KindXPub:
		return zmq.XPUB
	case KindXSub:
		return zmq.XSUB
	default:
		panic(fmt.Sprintf("channel: unknown socket kind %d", k))
	}
}

func (k SocketKind) direction() types.Direction {
	switch k {
	case KindPush, KindPub:
		return types.DirectionOut
	case KindPull, KindSub, KindXSub:
		return types.DirectionIn
	default:
		return types.DirectionBoth
	}
}

func (k SocketKind) routed() bool {
	return k == KindRouter
}

// Timeouts bundles the send/receive/linger triple a Channel applies to
// its socket during warm-up.
type Timeouts struct {
	Send    time.Duration
	Receive time.Duration
	Linger  time.Duration
}

// Options configures a Channel at creation time, before warm-up has
// allocated its socket.
type Options struct {
	RoutingID   types.RoutingID
	WaitFor     types.Direction
	Timeouts    Timeouts
	SockOpts    map[string]interface{}
	NewSession  func() interface{} // protocol session-data factory
	MetricsName string
}

// Channel owns one ZeroMQ socket plus its bound/connected endpoints and
// its sessions (spec.md §3 "Channel", §4.2).
type Channel struct {
	mu sync.Mutex

	name      string
	kind      SocketKind
	protocol  Protocol
	manager   *Manager // non-owning back-reference
	mode      types.SocketMode
	direction types.Direction
	waitFor   types.Direction
	endpoints []string
	sessions  map[string]*Session // keyed by RoutingID.String(); "" for non-routed channels' implicit session
	routingID types.RoutingID

	timeouts   Timeouts
	sockOpts   map[string]interface{}
	newSession func() interface{}

	socket *zmq.Socket

	metrics *metrics.Set
}

func newChannel(name string, kind SocketKind, protocol Protocol, opts Options) *Channel {
	return &Channel{
		name:       name,
		kind:       kind,
		protocol:   protocol,
		mode:       types.ModeUnknown,
		direction:  kind.direction(),
		waitFor:    opts.WaitFor,
		sessions:   make(map[string]*Session),
		routingID:  opts.RoutingID,
		timeouts:   opts.Timeouts,
		sockOpts:   opts.SockOpts,
		newSession: opts.NewSession,
	}
}

// Name returns the channel's name, unique within its manager.
func (c *Channel) Name() string { return c.name }

// Kind returns the channel's socket kind.
func (c *Channel) Kind() SocketKind { return c.kind }

// Direction returns the channel's I/O capability.
func (c *Channel) Direction() types.Direction { return c.direction }

// WaitFor returns the currently-polled subset of Direction.
func (c *Channel) WaitFor() types.Direction { return c.waitFor }

// Mode returns the channel's current bind/connect mode.
func (c *Channel) Mode() types.SocketMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Routed reports whether this channel prepends/strips a routing-id frame.
func (c *Channel) Routed() bool { return c.kind.routed() }

// Endpoints returns a copy of the channel's bound/connected addresses.
func (c *Channel) Endpoints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// SetWaitFor updates the polled direction subset and asks the owning
// manager to refresh its poller registration (spec.md §4.1
// update_poller).
func (c *Channel) SetWaitFor(dir types.Direction) error {
	if !c.direction.Includes(dir) {
		return errs.NewChannelError(c.name, "wait_for must be a subset of direction")
	}
	c.mu.Lock()
	c.waitFor = dir
	c.mu.Unlock()
	if c.manager != nil {
		c.manager.updatePoller(c)
	}
	return nil
}

func (c *Channel) hasSocket() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket != nil
}

// Bind binds addr and returns the resolved address (wildcard ports
// resolved from the socket's last endpoint), per spec.md §4.2 bind.
func (c *Channel) Bind(addr string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != types.ModeUnknown && c.mode != types.ModeBind {
		return "", errs.NewChannelError(c.name, "cannot bind: channel is in "+c.mode.String()+" mode")
	}
	if c.kind == KindPair && len(c.endpoints) >= 1 {
		return "", errs.NewChannelError(c.name, "PAIR channel already has an endpoint")
	}
	for _, e := range c.endpoints {
		if e == addr {
			return "", errs.NewChannelError(c.name, "duplicate endpoint: "+addr)
		}
	}

	if c.socket == nil {
		return "", errs.NewChannelError(c.name, "bind called before warm-up")
	}
	if err := c.socket.Bind(addr); err != nil {
		return "", err
	}
	resolved, err := c.socket.GetLastEndpoint()
	if err != nil || resolved == "" {
		resolved = addr
	}
	c.endpoints = append(c.endpoints, resolved)
	c.mode = types.ModeBind
	logging.Debugf("channel %q: bound %s", c.name, resolved)
	return resolved, nil
}

// Unbind unbinds addr, or every endpoint when addr is empty.
func (c *Channel) Unbind(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr == "" {
		for _, e := range c.endpoints {
			if err := c.socket.Unbind(e); err != nil {
				logging.Warnf("channel %q: unbind %s failed: %v", c.name, e, err)
			}
		}
		c.endpoints = nil
		c.mode = types.ModeUnknown
		return nil
	}

	idx := -1
	for i, e := range c.endpoints {
		if e == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.NewChannelError(c.name, "unknown endpoint: "+addr)
	}
	if err := c.socket.Unbind(addr); err != nil {
		return err
	}
	c.endpoints = append(c.endpoints[:idx], c.endpoints[idx+1:]...)
	if len(c.endpoints) == 0 {
		c.mode = types.ModeUnknown
	}
	return nil
}

// Connect connects to addr and, if the protocol agrees
// (ConnectWithSession), creates and returns a Session for the new peer.
func (c *Channel) Connect(addr string, routingID types.RoutingID) (*Session, error) {
	c.mu.Lock()
	if c.mode != types.ModeUnknown && c.mode != types.ModeConnect {
		c.mu.Unlock()
		return nil, errs.NewChannelError(c.name, "cannot connect: channel is in "+c.mode.String()+" mode")
	}
	if c.kind == KindPair && len(c.endpoints) >= 1 {
		c.mu.Unlock()
		return nil, errs.NewChannelError(c.name, "PAIR channel already has an endpoint")
	}
	if c.kind.routed() && len(routingID) == 0 {
		c.mu.Unlock()
		return nil, errs.NewChannelError(c.name, "routed channel requires a routing id to connect")
	}
	if c.socket == nil {
		c.mu.Unlock()
		return nil, errs.NewChannelError(c.name, "connect called before warm-up")
	}
	if err := c.socket.Connect(addr); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.endpoints = append(c.endpoints, addr)
	c.mode = types.ModeConnect
	c.mu.Unlock()

	logging.Debugf("channel %q: connected %s", c.name, addr)

	if c.protocol != nil && c.protocol.ConnectWithSession(c) {
		return c.CreateSession(routingID), nil
	}
	return nil, nil
}

// Disconnect disconnects addr, or every endpoint when addr is empty.
// Unlike Unbind, sessions are not discarded.
func (c *Channel) Disconnect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr == "" {
		for _, e := range c.endpoints {
			if err := c.socket.Disconnect(e); err != nil {
				logging.Warnf("channel %q: disconnect %s failed: %v", c.name, e, err)
			}
		}
		c.endpoints = nil
		c.mode = types.ModeUnknown
		return nil
	}
	idx := -1
	for i, e := range c.endpoints {
		if e == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errs.NewChannelError(c.name, "unknown endpoint: "+addr)
	}
	if err := c.socket.Disconnect(addr); err != nil {
		return err
	}
	c.endpoints = append(c.endpoints[:idx], c.endpoints[idx+1:]...)
	if len(c.endpoints) == 0 {
		c.mode = types.ModeUnknown
	}
	return nil
}

// CreateSession creates and registers a new Session for routingID.
func (c *Channel) CreateSession(routingID types.RoutingID) *Session {
	s := newSession(routingID)
	if c.newSession != nil {
		s.Data = c.newSession()
	}
	c.mu.Lock()
	c.sessions[s.RoutingID.String()] = s
	n := len(c.sessions)
	c.mu.Unlock()
	c.metrics.SessionsSet(c.name, n)
	return s
}

// DiscardSession removes s from the channel's session table and
// disconnects any endpoint associated with it.
func (c *Channel) DiscardSession(s *Session) {
	c.mu.Lock()
	delete(c.sessions, s.RoutingID.String())
	n := len(c.sessions)
	endpoint := s.Endpoint
	c.mu.Unlock()
	c.metrics.SessionsSet(c.name, n)

	if endpoint != "" {
		if err := c.Disconnect(endpoint); err != nil {
			logging.Debugf("channel %q: disconnect on session discard: %v", c.name, err)
		}
	}
}

// Session looks up a session by routing id.
func (c *Channel) Session(routingID types.RoutingID) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[routingID.String()]
	return s, ok
}

// SessionCount returns the number of open sessions.
func (c *Channel) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Subscribe adds a topic filter. Only valid for SUB/XSUB channels.
func (c *Channel) Subscribe(topic []byte) error {
	if c.kind != KindSub && c.kind != KindXSub {
		return errs.NewChannelError(c.name, "subscribe only valid on SUB/XSUB channels")
	}
	return c.socket.SetSubscribe(string(topic))
}

// Unsubscribe removes a topic filter. Only valid for SUB/XSUB channels.
func (c *Channel) Unsubscribe(topic []byte) error {
	if c.kind != KindSub && c.kind != KindXSub {
		return errs.NewChannelError(c.name, "unsubscribe only valid on SUB/XSUB channels")
	}
	return c.socket.SetUnsubscribe(string(topic))
}

// Send serializes msg via the protocol, prepends the session's routing
// id on routed channels, and writes it to the socket. It returns nil on
// success. On EAGAIN it calls onSendLater (if set) and returns nil. On
// any other send failure it calls onSendFailed (if set) and returns the
// zeroMQ error. Serialization errors and a missing socket are returned
// without calling either hook.
func (c *Channel) Send(msg Message, session *Session, onSendLater, onSendFailed func(error)) error {
	frames, err := msg.ToFrames(c)
	if err != nil {
		return err
	}
	if c.kind.routed() && session != nil {
		frames = append([][]byte{session.RoutingID}, frames...)
	}

	c.mu.Lock()
	socket := c.socket
	c.mu.Unlock()
	if socket == nil {
		return errs.NewChannelError(c.name, "send called before warm-up")
	}

	_, err = socket.SendMessage(toSendParts(frames)...)
	if err != nil {
		if isEAGAIN(err) {
			if onSendLater != nil {
				onSendLater(err)
			}
			return nil
		}
		c.metrics.SendErrorInc(c.name)
		if onSendFailed != nil {
			onSendFailed(err)
		}
		return err
	}
	c.metrics.SentInc(c.name)
	return nil
}

func toSendParts(frames [][]byte) []interface{} {
	parts := make([]interface{}, len(frames))
	for i, f := range frames {
		parts[i] = f
	}
	return parts
}

// Receive polls for input (when timeoutMs >= 0) and returns the decoded
// message, types.TIMEOUT, or types.INVALID (spec.md §4.2 receive).
// A timeoutMs of -1 performs a blocking, non-polled recv.
func (c *Channel) Receive(timeoutMs int) (interface{}, *Session, error) {
	c.mu.Lock()
	socket := c.socket
	c.mu.Unlock()
	if socket == nil {
		return nil, nil, errs.NewChannelError(c.name, "receive called before warm-up")
	}

	if timeoutMs >= 0 {
		poller := zmq.NewPoller()
		poller.Add(socket, zmq.POLLIN)
		polled, err := poller.Poll(time.Duration(timeoutMs) * time.Millisecond)
		if err != nil {
			return nil, nil, err
		}
		if len(polled) == 0 {
			return types.TIMEOUT, nil, nil
		}
	}

	raw, err := socket.RecvMessageBytes(0)
	if err != nil {
		return nil, nil, err
	}
	c.metrics.ReceivedInc(c.name)

	var routingID types.RoutingID
	frames := raw
	if c.kind.routed() {
		if len(raw) == 0 {
			return types.INVALID, nil, nil
		}
		routingID = types.RoutingID(raw[0])
		frames = raw[1:]
	}

	msg, perr := c.protocol.ParseMessage(c, frames)
	if perr != nil {
		c.protocol.HandleInvalidMessage(c, routingID, errs.NewInvalidMessage("decode failed", perr))
		return types.INVALID, nil, nil
	}

	session, existed := (*Session)(nil), false
	if c.kind.routed() {
		session, existed = c.Session(routingID)
		if !existed {
			if !c.protocol.AcceptNewSession(c, routingID, msg) {
				c.protocol.HandleInvalidMessage(c, routingID, errs.NewInvalidMessage("session rejected", nil))
				return types.INVALID, nil, nil
			}
			session = c.CreateSession(routingID)
		}
	} else {
		session, existed = c.Session(nil)
		if !existed {
			session = c.CreateSession(nil)
		}
	}

	c.protocol.HandleMessage(c, session, msg)
	return msg, session, nil
}

func isEAGAIN(err error) bool {
	if err == nil {
		return false
	}
	errno, ok := err.(zmq.Errno)
	return ok && errno == zmq.Errno(11) // EAGAIN
}

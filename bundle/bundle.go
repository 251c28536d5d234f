// Package bundle implements the Bundle controller (spec.md §4.9): an
// ordered list of Thread controllers built from a configuration section,
// with bound endpoint addresses propagated into later components'
// configuration through namespace interpolation.
package bundle

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
	"golang.org/x/sync/errgroup"

	"github.com/FirebirdSQL/saturnin-sub000/controller"
	"github.com/FirebirdSQL/saturnin-sub000/internal/config"
	"github.com/FirebirdSQL/saturnin-sub000/internal/errs"
	"github.com/FirebirdSQL/saturnin-sub000/internal/logging"
	"github.com/FirebirdSQL/saturnin-sub000/internal/metrics"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

// Registry resolves an agent UID to the controller.Factory that builds
// its Component. The node-wide service registry/console is out of
// scope; callers supply their own in-process mapping.
type Registry interface {
	Resolve(agentUID string) (controller.Factory, error)
}

// StaticRegistry is the simplest Registry: a fixed map of agent UID to
// factory, enough for a bundle defined entirely by local code.
type StaticRegistry map[string]controller.Factory

func (r StaticRegistry) Resolve(agentUID string) (controller.Factory, error) {
	f, ok := r[agentUID]
	if !ok {
		return nil, errs.NewService("resolve agent", fmt.Errorf("unknown agent uid %q", agentUID))
	}
	return f, nil
}

// Instance is one declared bundle member: a peer UID, the agent it
// instantiates, and its configuration subtree.
type Instance struct {
	Name     string // "<name>" in the "<name>.<channel>" endpoint keys
	AgentUID string
	PeerUID  string
	Config   *config.Tree
}

type runningInstance struct {
	Instance
	thread *controller.Thread
}

// Bundle drives Instances in declaration order.
type Bundle struct {
	ctx      *zmq.Context
	metrics  *metrics.Set
	registry Registry
	tree     *config.Tree

	running []runningInstance
}

// New constructs a Bundle resolving agents through registry, with tree
// as the shared namespace (local_address/node_address/net_address) that
// bound endpoints are published into.
func New(ctx *zmq.Context, metricsSet *metrics.Set, registry Registry, tree *config.Tree) *Bundle {
	return &Bundle{ctx: ctx, metrics: metricsSet, registry: registry, tree: tree}
}

// Start starts every instance in declaration order. Before each
// instance builds, its config is resolved against the bundle's
// namespace tree, so a "${node_address:a.service}" reference picks up
// an earlier instance's bound endpoint (spec.md §4.9 step 2). After
// each successful start, its own bound endpoints are written into that
// tree under "<namespace>.<name>.<channel>". On any failure, it stops
// every previously started instance in reverse order and returns the
// original error (spec.md §4.9 steps 1-3).
func (b *Bundle) Start(instances []Instance, startTimeout time.Duration) error {
	for _, inst := range instances {
		factory, err := b.registry.Resolve(inst.AgentUID)
		if err != nil {
			b.rollback(startTimeout)
			return err
		}

		if inst.PeerUID == "" {
			inst.PeerUID = types.NewPeerUID()
		}
		peer := types.PeerDescriptor{UID: inst.PeerUID}
		var configBytes []byte
		if inst.Config != nil {
			inst.Config.ResolveAgainst(b.tree)
			marshalled, err := inst.Config.Marshal()
			if err != nil {
				b.rollback(startTimeout)
				return errs.NewService("marshal config for "+inst.Name, err)
			}
			configBytes = marshalled
		}

		t, err := controller.NewThread(b.ctx, peer, b.metrics, factory, configBytes)
		if err != nil {
			b.rollback(startTimeout)
			return errs.NewService("start "+inst.Name, err)
		}
		if err := t.Start(startTimeout); err != nil {
			b.rollback(startTimeout)
			return errs.NewService("start "+inst.Name, err)
		}

		b.running = append(b.running, runningInstance{Instance: inst, thread: t})
		b.publishEndpoints(inst.Name, t)
	}
	return nil
}

func (b *Bundle) publishEndpoints(name string, t *controller.Thread) {
	for channelName, addrs := range t.Endpoints() {
		for _, addr := range addrs {
			namespace := config.AddressNamespace(addr)
			key := namespace + "." + name + "." + channelName
			if err := b.tree.Set(key, addr); err != nil {
				logging.Warnf("bundle: failed to publish endpoint %s: %v", key, err)
			}
		}
	}
}

// rollback stops every started instance in reverse order; a failure to
// stop one warns and terminates that worker but continues with the
// rest (spec.md §4.9 step 4).
func (b *Bundle) rollback(timeout time.Duration) {
	b.stopAll(timeout)
}

// Stop stops all running instances in reverse order.
func (b *Bundle) Stop(timeout time.Duration) {
	b.stopAll(timeout)
}

func (b *Bundle) stopAll(timeout time.Duration) {
	for i := len(b.running) - 1; i >= 0; i-- {
		inst := b.running[i]
		if err := inst.thread.Stop(timeout); err != nil {
			logging.Warnf("bundle: stop %s failed, terminating: %v", inst.Name, err)
			if err := inst.thread.Terminate(timeout); err != nil {
				logging.Errorf("bundle: terminate %s failed: %v", inst.Name, err)
			}
		}
	}
	b.running = nil
}

// Join joins every running instance's worker goroutine, using
// errgroup so a single slow join does not block discovering the others'
// completion.
func (b *Bundle) Join(timeout time.Duration) error {
	g := new(errgroup.Group)
	for _, inst := range b.running {
		inst := inst
		g.Go(func() error {
			return inst.thread.Join(timeout)
		})
	}
	return g.Wait()
}

package main

import (
	"github.com/FirebirdSQL/saturnin-sub000/bundle"
	"github.com/FirebirdSQL/saturnin-sub000/internal/config"
)

// loadBundleSpec reads the "bundle" configuration section into ordered
// Instance declarations. Agent uids resolve through registry, a
// StaticRegistry populated by whatever concrete component packages this
// binary is linked against - saturnd itself ships no components, since
// the node-wide service registry/console is out of scope (spec.md §1).
func loadBundleSpec(tree *config.Tree) (bundle.Registry, []bundle.Instance, error) {
	registry := bundle.StaticRegistry{}

	names := tree.MapKeys("bundle")
	instances := make([]bundle.Instance, 0, len(names))
	for _, name := range names {
		sub := tree.Sub("bundle." + name)
		instances = append(instances, bundle.Instance{
			Name:     name,
			AgentUID: sub.String("agent"),
			PeerUID:  name,
			Config:   sub,
		})
	}
	return registry, instances, nil
}

package microservice

import (
	"github.com/FirebirdSQL/saturnin-sub000/channel"
)

// Component is what a concrete microservice plugs into the runtime
// (spec.md §4.7): it registers its channels up front, names the
// addresses it wants bound, and gets acquire/release/start/stop
// lifecycle hooks.
type Component interface {
	// RegisterChannels creates all channels the component needs on
	// manager, via manager.CreateChannel. Called once, before binding.
	RegisterChannels(manager *channel.Manager) error
	// Endpoints returns, per channel name, the addresses that channel
	// should bind (wildcards such as "tcp://*:*" are allowed and are
	// resolved back into the returned endpoints map after binding).
	Endpoints() map[string][]string
	// AcquireResources is called once, after all channels are bound.
	AcquireResources() error
	// ReleaseResources undoes AcquireResources; called during shutdown
	// and, on a failed warm-up, right after a failed StartActivities.
	ReleaseResources()
	// StartActivities starts whatever the component does once running.
	StartActivities() error
	// StopActivities is the dual of StartActivities.
	StopActivities()
}

// Configurer is an optional Component extension answering ICCP
// REQUEST(CONFIGURE). A Component that does not implement it gets the
// default "not implemented" behaviour (spec.md §4.7 "Configuration-
// request hook").
type Configurer interface {
	ConfigurationRequest(config []byte) error
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionIncludes(t *testing.T) {
	assert.True(t, DirectionBoth.Includes(DirectionIn))
	assert.True(t, DirectionBoth.Includes(DirectionOut))
	assert.True(t, DirectionBoth.Includes(DirectionBoth))
	assert.False(t, DirectionIn.Includes(DirectionOut))
	assert.False(t, DirectionNone.Includes(DirectionIn))
}

func TestRoutingIDEqual(t *testing.T) {
	a := RoutingID{1, 2, 3}
	b := RoutingID{1, 2, 3}
	c := RoutingID{1, 2, 4}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(RoutingID{1, 2}))
}

func TestOutcomeStringRoundTrip(t *testing.T) {
	for _, o := range []Outcome{OutcomeOK, OutcomeError, OutcomeUnknown} {
		assert.Equal(t, o, ParseOutcome(o.String()))
	}
	assert.Equal(t, OutcomeUnknown, ParseOutcome("GARBAGE"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestNewPeerUIDGeneratesDistinctValues(t *testing.T) {
	a := NewPeerUID()
	b := NewPeerUID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestEndpointsMapCloneIsDeep(t *testing.T) {
	orig := EndpointsMap{"svc": {"tcp://a", "tcp://b"}}
	clone := orig.Clone()
	clone["svc"][0] = "mutated"
	assert.Equal(t, "tcp://a", orig["svc"][0])
	assert.Equal(t, "mutated", clone["svc"][0])
}

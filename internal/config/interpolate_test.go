package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateResolvesReference(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.Set("local_address.control", "inproc://bundle-1-control"))

	got := Interpolate("${local_address:control}", tree)
	assert.Equal(t, "inproc://bundle-1-control", got)
}

func TestInterpolateLeavesUnresolvedReferenceUntouched(t *testing.T) {
	tree := NewEmpty()
	got := Interpolate("${net_address:missing}", tree)
	assert.Equal(t, "${net_address:missing}", got)
}

func TestInterpolateMultipleReferencesInOneString(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.Set("node_address.a", "ipc:///tmp/a"))
	require.NoError(t, tree.Set("node_address.b", "ipc:///tmp/b"))

	got := Interpolate("${node_address:a} ${node_address:b}", tree)
	assert.Equal(t, "ipc:///tmp/a ipc:///tmp/b", got)
}

func TestResolveAgainstRewritesMatchingLeaves(t *testing.T) {
	source := NewEmpty()
	require.NoError(t, source.Set("node_address.a.control", "ipc:///tmp/a-control"))

	target := NewEmpty()
	require.NoError(t, target.Set("connect_to", "${node_address:a.control}"))
	require.NoError(t, target.Set("name", "b"))

	target.ResolveAgainst(source)

	assert.Equal(t, "ipc:///tmp/a-control", target.String("connect_to"))
	assert.Equal(t, "b", target.String("name"))
}

func TestResolveAgainstLeavesUnresolvableReferenceUntouched(t *testing.T) {
	source := NewEmpty()
	target := NewEmpty()
	require.NoError(t, target.Set("connect_to", "${node_address:missing}"))

	target.ResolveAgainst(source)

	assert.Equal(t, "${node_address:missing}", target.String("connect_to"))
}

func TestAddressNamespace(t *testing.T) {
	assert.Equal(t, "local_address", AddressNamespace("inproc://x"))
	assert.Equal(t, "node_address", AddressNamespace("ipc:///tmp/x"))
	assert.Equal(t, "net_address", AddressNamespace("tcp://127.0.0.1:5000"))
}

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/types"
)

func TestPeerDataframeRoundTrip(t *testing.T) {
	p := &PeerDataframe{UID: "peer-1", PID: 4242, Host: "node-a", Supplement: map[string]string{"rack": "12"}}
	b := p.Marshal()

	got := &PeerDataframe{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, p, got)
}

func TestPeerDataframeDescriptorConversion(t *testing.T) {
	desc := types.PeerDescriptor{UID: "u", PID: 1, Host: "h", Supplement: map[string]string{"a": "b"}}
	df := PeerToDataframe(desc)
	assert.Equal(t, desc, df.ToDescriptor())
}

func TestAgentDataframeRoundTrip(t *testing.T) {
	a := &AgentDataframe{
		UID: "agent-1", Name: "saturnin", Version: "1.0", VendorUID: "firebird",
		Classification: "pipe/filter", PlatformUID: "go", PlatformVer: "1.21",
	}
	got := &AgentDataframe{}
	require.NoError(t, got.Unmarshal(a.Marshal()))
	assert.Equal(t, a, got)
}

func TestServiceDataframeRoundTrip(t *testing.T) {
	s := &ServiceDataframe{
		Agent:            AgentDataframe{UID: "a1", Name: "svc"},
		APIInterfaces:    []string{"iface-a", "iface-b"},
		Description:      "a service",
		Facilities:       []string{"fac-1"},
		FactoryLocator:   "locator",
		ConfigFactoryURI: "uri",
	}
	got := &ServiceDataframe{}
	require.NoError(t, got.Unmarshal(s.Marshal()))
	assert.Equal(t, s, got)
}

func TestEndpointsDataframeRoundTrip(t *testing.T) {
	e := &EndpointsDataframe{Entries: types.EndpointsMap{
		"svc":     {"tcp://127.0.0.1:5000"},
		"control": {"inproc://control-1"},
	}}
	got := &EndpointsDataframe{}
	require.NoError(t, got.Unmarshal(e.Marshal()))
	assert.Equal(t, e.Entries, got.Entries)
}

func TestOpenDataframeRoundTrip(t *testing.T) {
	o := &OpenDataframe{
		DataPipe: "input", PipeSocket: int(types.PipeSocketInput), DataFormat: "application/octet-stream",
		Params: map[string]string{"batch_size": "10"},
	}
	got := &OpenDataframe{}
	require.NoError(t, got.Unmarshal(o.Marshal()))
	assert.Equal(t, o, got)
}

func TestErrorDescriptionRoundTrip(t *testing.T) {
	e := &ErrorDescription{Description: "not found", Code: 12, Annotation: "trace..."}
	got := &ErrorDescription{}
	require.NoError(t, got.Unmarshal(e.Marshal()))
	assert.Equal(t, e, got)
}

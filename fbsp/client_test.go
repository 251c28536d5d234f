package fbsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/types"
)

func sessionWithInterfaces(names ...string) *channel.Session {
	return &channel.Session{Data: &SessionData{Interfaces: NewInterfaceRegistry(names)}}
}

func TestInterfaceRegistryIndexOf(t *testing.T) {
	r := NewInterfaceRegistry([]string{"iface-a", "iface-b", "iface-c"})
	idx, ok := r.IndexOf("iface-b")
	require.True(t, ok)
	assert.Equal(t, byte(1), idx)

	_, ok = r.IndexOf("unknown")
	assert.False(t, ok)
}

func TestCreateRequestForResolvesInterfaceIndex(t *testing.T) {
	session := sessionWithInterfaces("auth", "storage")
	msg, ok := CreateRequestFor(session, "storage", 5, 99, [][]byte{[]byte("arg")})
	require.True(t, ok)
	assert.Equal(t, MsgRequest, msg.Header.Type)
	assert.Equal(t, uint64(99), msg.Header.Token)

	iface, code := UnpackAPI(msg.Header.TypeData)
	assert.Equal(t, byte(1), iface)
	assert.Equal(t, byte(5), code)
}

func TestCreateRequestForUnknownInterfaceFails(t *testing.T) {
	session := sessionWithInterfaces("auth")
	_, ok := CreateRequestFor(session, "missing", 1, 1, nil)
	assert.False(t, ok)
}

func TestClientHelloCarriesPeerDataframe(t *testing.T) {
	c := NewClient(types.PeerDescriptor{UID: "client-1", PID: 1, Host: "h"})
	msg := c.Hello(42)
	assert.Equal(t, MsgHello, msg.Header.Type)
	assert.Equal(t, uint64(42), msg.Header.Token)
	require.NotNil(t, msg.Peer)
}

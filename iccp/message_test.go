package iccp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/types"
)

func TestReadyRoundTrip(t *testing.T) {
	peer := types.PeerDescriptor{UID: "comp-1", PID: 123, Host: "h"}
	endpoints := types.EndpointsMap{"svc": {"tcp://127.0.0.1:6000"}}
	m := NewReady(peer, endpoints)

	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, MsgReady, got.Type)
	assert.Equal(t, peer, got.Peer.ToDescriptor())
	assert.Equal(t, endpoints, got.Endpoints.Entries)
}

func TestRequestConfigureRoundTrip(t *testing.T) {
	m := &Message{Type: MsgRequest, RequestTag: RequestTagConfigure, Config: []byte("log.level: debug")}
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, RequestTagConfigure, got.RequestTag)
	assert.Equal(t, []byte("log.level: debug"), got.Config)
}

func TestOKStopRoundTrip(t *testing.T) {
	for _, m := range []*Message{NewOK(), NewStop()} {
		frames, err := m.ToFrames(nil)
		require.NoError(t, err)
		assert.Len(t, frames, 1)

		got := &Message{}
		require.NoError(t, got.FromFrames(nil, frames))
		assert.Equal(t, m.Type, got.Type)
	}
}

func TestErrorRoundTrip(t *testing.T) {
	m := NewError(assertError("connection refused"), "")
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, "connection refused", got.ErrorText)
}

func TestFinishedRoundTripWithDetails(t *testing.T) {
	m := NewFinished(types.OutcomeError, "socket timed out", "retry limit exceeded")
	frames, err := m.ToFrames(nil)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	got := &Message{}
	require.NoError(t, got.FromFrames(nil, frames))
	assert.Equal(t, types.OutcomeError, got.Outcome)
	assert.Equal(t, []string{"socket timed out", "retry limit exceeded"}, got.Details)
}

func TestFromFramesRejectsMalformedTypeFrame(t *testing.T) {
	got := &Message{}
	err := got.FromFrames(nil, [][]byte{{0x00}})
	assert.Error(t, err)
}

func TestFromFramesRejectsUnknownType(t *testing.T) {
	got := &Message{}
	err := got.FromFrames(nil, [][]byte{{0xff, 0xff}})
	assert.Error(t, err)
}

type stubError string

func (e stubError) Error() string { return string(e) }

func assertError(msg string) error { return stubError(msg) }

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/types"
)

func TestSocketKindDirection(t *testing.T) {
	assert.Equal(t, types.DirectionOut, KindPush.direction())
	assert.Equal(t, types.DirectionIn, KindPull.direction())
	assert.Equal(t, types.DirectionBoth, KindDealer.direction())
	assert.Equal(t, types.DirectionBoth, KindRouter.direction())
}

func TestSocketKindRouted(t *testing.T) {
	assert.True(t, KindRouter.routed())
	assert.False(t, KindDealer.routed())
	assert.False(t, KindPair.routed())
}

func TestSocketKindString(t *testing.T) {
	assert.Equal(t, "ROUTER", KindRouter.String())
	assert.Equal(t, "UNKNOWN", SocketKind(99).String())
}

func TestCreateChannelRejectsDuplicateName(t *testing.T) {
	m := NewManager(nil, nil)
	_, err := m.CreateChannel(KindPair, "control", nil, Options{})
	require.NoError(t, err)

	_, err = m.CreateChannel(KindPair, "control", nil, Options{})
	assert.Error(t, err)
}

func TestCreateChannelRejectsWaitForOutsideDirection(t *testing.T) {
	m := NewManager(nil, nil)
	_, err := m.CreateChannel(KindPush, "out", nil, Options{WaitFor: types.DirectionIn})
	assert.Error(t, err)
}

func TestChannelAccessors(t *testing.T) {
	m := NewManager(nil, nil)
	ch, err := m.CreateChannel(KindRouter, "svc", nil, Options{WaitFor: types.DirectionBoth})
	require.NoError(t, err)

	assert.Equal(t, "svc", ch.Name())
	assert.Equal(t, KindRouter, ch.Kind())
	assert.Equal(t, types.DirectionBoth, ch.Direction())
	assert.True(t, ch.Routed())
	assert.Equal(t, types.ModeUnknown, ch.Mode())
}

func TestSetWaitForRejectsSupersetOfDirection(t *testing.T) {
	m := NewManager(nil, nil)
	ch, err := m.CreateChannel(KindPush, "out", nil, Options{WaitFor: types.DirectionOut})
	require.NoError(t, err)

	err = ch.SetWaitFor(types.DirectionBoth)
	assert.Error(t, err)
}

func TestBindBeforeWarmUpFails(t *testing.T) {
	m := NewManager(nil, nil)
	ch, err := m.CreateChannel(KindRouter, "svc", nil, Options{WaitFor: types.DirectionBoth})
	require.NoError(t, err)

	_, err = ch.Bind("tcp://127.0.0.1:0")
	assert.Error(t, err)
}

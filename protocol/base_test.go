package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
)

type fakeMessage struct{ keys []string }

func (m *fakeMessage) ToFrames(ch *channel.Channel) ([][]byte, error) { return nil, nil }
func (m *fakeMessage) FromFrames(ch *channel.Channel, frames [][]byte) error { return nil }
func (m *fakeMessage) Clear()            {}
func (m *fakeMessage) Keys() []string    { return m.keys }

func TestHandleMessageDispatchesFirstMatchingKey(t *testing.T) {
	b := NewBase()
	var called string
	b.On("SPECIFIC", func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		called = "specific"
		return nil
	})
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		called = "wildcard"
		return nil
	})

	b.HandleMessage(nil, nil, &fakeMessage{keys: []string{"SPECIFIC", KeyAny}})
	assert.Equal(t, "specific", called)
}

func TestHandleMessageFallsBackToWildcard(t *testing.T) {
	b := NewBase()
	var called string
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		called = "wildcard"
		return nil
	})

	b.HandleMessage(nil, nil, &fakeMessage{keys: []string{"UNREGISTERED", KeyAny}})
	assert.Equal(t, "wildcard", called)
}

func TestHandleMessageNoHandlerIsANoop(t *testing.T) {
	b := NewBase()
	assert.NotPanics(t, func() {
		b.HandleMessage(nil, nil, &fakeMessage{keys: []string{"NOTHING"}})
	})
}

func TestHandleMessageRoutesErrorsToOnException(t *testing.T) {
	b := NewBase()
	wantErr := errors.New("handler failed")
	var gotCause error
	b.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		gotCause = cause
	}
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		return wantErr
	})

	b.HandleMessage(nil, nil, &fakeMessage{keys: []string{KeyAny}})
	require.Error(t, gotCause)
	assert.Equal(t, wantErr, gotCause)
}

func TestHandleMessageRecoversHandlerPanic(t *testing.T) {
	b := NewBase()
	var gotCause error
	b.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		gotCause = cause
	}
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		b.HandleMessage(nil, nil, &fakeMessage{keys: []string{KeyAny}})
	})
	require.Error(t, gotCause)
	assert.Contains(t, gotCause.Error(), "boom")
}

func TestHandleMessageWithNoExceptionHookDoesNotPanic(t *testing.T) {
	b := NewBase()
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		return errors.New("unhandled")
	})
	assert.NotPanics(t, func() {
		b.HandleMessage(nil, nil, &fakeMessage{keys: []string{KeyAny}})
	})
}

func TestOnExceptionPanicIsRecovered(t *testing.T) {
	b := NewBase()
	b.OnException = func(ch *channel.Channel, session *channel.Session, msg channel.Message, cause error) {
		panic("exception handler itself misbehaves")
	}
	b.On(KeyAny, func(ch *channel.Channel, session *channel.Session, msg channel.Message) error {
		return errors.New("boom")
	})

	assert.NotPanics(t, func() {
		b.HandleMessage(nil, nil, &fakeMessage{keys: []string{KeyAny}})
	})
}

package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FirebirdSQL/saturnin-sub000/channel"
	"github.com/FirebirdSQL/saturnin-sub000/fbdp"
	"github.com/FirebirdSQL/saturnin-sub000/microservice"
)

// These exercise the OnScheduleResend hook directly rather than through
// Server.ResendReady, since the latter sends a READY frame first and a
// zero-value *channel.Channel has no bound socket to send on.

func TestProviderSchedulesResendWhenNotReady(t *testing.T) {
	p := NewProvider("out", "inproc://p", 5)
	p.Scheduler = microservice.NewScheduler(nil)
	require.NotNil(t, p.Server.OnScheduleResend)

	ch := &channel.Channel{}
	session := &channel.Session{Data: &fbdp.SessionData{}}
	p.Server.OnScheduleResend(ch, session)

	assert.Equal(t, 1, p.Scheduler.Len())
}

func TestConsumerSchedulesResendWhenNotReady(t *testing.T) {
	c := NewConsumer("in", "inproc://c", 5)
	c.Scheduler = microservice.NewScheduler(nil)
	require.NotNil(t, c.Server.OnScheduleResend)

	ch := &channel.Channel{}
	session := &channel.Session{Data: &fbdp.SessionData{}}
	c.Server.OnScheduleResend(ch, session)

	assert.Equal(t, 1, c.Scheduler.Len())
}

func TestProviderWithoutSchedulerDoesNotPanic(t *testing.T) {
	p := NewProvider("out", "inproc://p", 5)
	require.Nil(t, p.Scheduler)

	ch := &channel.Channel{}
	session := &channel.Session{Data: &fbdp.SessionData{}}
	assert.NotPanics(t, func() {
		p.Server.OnScheduleResend(ch, session)
	})
}

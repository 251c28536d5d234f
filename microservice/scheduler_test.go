package microservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerOrdersByDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	s := NewScheduler(clock)

	var order []string
	s.Schedule(func() { order = append(order, "c") }, 300)
	s.Schedule(func() { order = append(order, "a") }, 100)
	s.Schedule(func() { order = append(order, "b") }, 200)

	require.Equal(t, 3, s.Len())

	now = now.Add(150 * time.Millisecond)
	s.RunScheduled()
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, 2, s.Len())

	now = now.Add(200 * time.Millisecond)
	s.RunScheduled()
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestSchedulerGetTimeout(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	s := NewScheduler(clock)

	ms, ok := s.GetTimeout()
	assert.False(t, ok)
	assert.Equal(t, 0, ms)

	s.Schedule(func() {}, 500)
	ms, ok = s.GetTimeout()
	assert.True(t, ok)
	assert.Equal(t, 500, ms)

	now = now.Add(600 * time.Millisecond)
	ms, ok = s.GetTimeout()
	assert.True(t, ok)
	assert.Equal(t, 0, ms)
}

func TestSchedulerRunScheduledIgnoresFutureItems(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	s := NewScheduler(clock)

	ran := false
	s.Schedule(func() { ran = true }, 1000)
	s.RunScheduled()
	assert.False(t, ran)
	assert.Equal(t, 1, s.Len())
}

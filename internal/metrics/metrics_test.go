package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilSetMethodsAreNoops(t *testing.T) {
	var s *Set
	assert.NotPanics(t, func() {
		s.SentInc("control")
		s.ReceivedInc("control")
		s.SendErrorInc("control")
		s.SessionsSet("control", 2)
		s.ObserveBatch("pipe", 10)
		s.SchedulerDepthSet(5)
	})
}

func TestNewSetRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSet(reg, "saturnd")

	s.SentInc("control")
	s.SentInc("control")
	s.ReceivedInc("control")

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var sent *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "saturnd_channel_messages_sent_total" {
			sent = mf
		}
	}
	require.NotNil(t, sent)
	require.Len(t, sent.Metric, 1)
	assert.Equal(t, float64(2), sent.Metric[0].GetCounter().GetValue())
}

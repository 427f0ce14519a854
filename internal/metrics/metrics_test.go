package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram_duration"})
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(h)

	var m dto.Metric
	require.NoError(t, h.Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestTimerObserveDurationVec(t *testing.T) {
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram_duration_vec"}, []string{"op"})
	timer := NewTimer()
	timer.ObserveDurationVec(v, "create")

	var m dto.Metric
	require.NoError(t, v.WithLabelValues("create").(prometheus.Histogram).Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestHandlerNotNil(t *testing.T) {
	assert.NotNil(t, Handler())
}

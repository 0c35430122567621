package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("documents:bulk").End(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, m.Track("documents:bulk").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("documents:bulk", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("documents:bulk", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("documents:bulk")))
}

func TestAddUnits(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddUnits("imports:rows", 5, 2)
	m.AddUnits("imports:rows", 0, 1)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.units.WithLabelValues("imports:rows", "succeeded")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.units.WithLabelValues("imports:rows", "failed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddUnits("x", 1, 1)
	assert.NoError(t, m.Track("x").End(nil))
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_IsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestObserve(t *testing.T) {
	m := New()
	before := testutil.ToFloat64(m.RunsTotal.WithLabelValues("metrics-test", "completed"))
	m.ObserveRun("metrics-test", "completed", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("metrics-test", "completed")))

	m.AddCapabilityCalls("metrics-test", 3)
	m.AddCapabilityCalls("metrics-test", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CapabilityCalls.WithLabelValues("metrics-test")))

	m.SetQueueDepth(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("p", "completed", time.Second)
		m.ObserveField("p", "present", "")
		m.AddCapabilityCalls("p", 1)
		m.ObserveMissingHeader("p", "c")
		m.SetQueueDepth(1)
		m.ObserveJob("done")
		m.ObserveHTTP("GET", "/", "200")
	})
}

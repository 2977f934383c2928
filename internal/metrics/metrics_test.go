package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	// --- Act ---
	m.ObservePass(20 * time.Millisecond)
	m.IncOrder("Harvest", "dispatched")
	m.IncOrder("Harvest", "dispatched")
	m.IncOrder("Replenish", "aborted")
	m.IncRequest("harvest")
	m.IncDispatchError("suppress")
	m.SetOutstanding(3)
	m.SetCapacity(64, 10)
	m.SetOverruns(2)
	m.SetTargets(map[string]int{"Harvest": 2, "Ignore": 5})

	// --- Assert ---
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.orders.WithLabelValues("Harvest", "dispatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orders.WithLabelValues("Replenish", "aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("harvest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchErrors.WithLabelValues("suppress")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.outstanding))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.capacity.WithLabelValues("unused")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.overruns))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.targets.WithLabelValues("Ignore")))
}

func TestMustNew_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()

	first := MustNew(reg)
	second := MustNew(reg)
	first.IncRequest("suppress")

	require.NotNil(t, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.requests.WithLabelValues("suppress")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePass(time.Second)
		m.IncOrder("Harvest", "dispatched")
		m.SetTargets(map[string]int{"Harvest": 1})
	})
}

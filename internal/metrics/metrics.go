// Package metrics exposes Prometheus collectors that report scheduler activity.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "familiar"
	subsystem = "scheduler"
)

// Metrics groups the scheduler's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	passes         prometheus.Counter
	passDuration   prometheus.Histogram
	overruns       prometheus.Gauge
	orders         *prometheus.CounterVec
	requests       *prometheus.CounterVec
	dispatchErrors *prometheus.CounterVec
	outstanding    prometheus.Gauge
	capacity       *prometheus.GaugeVec
	targets        *prometheus.GaugeVec
}

// MustNew constructs Metrics registered with reg, reusing collectors that are
// already registered under the same name. Any other registration error panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		passes: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes_total",
			Help:      "Number of scheduling passes run.",
		})),
		passDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pass_duration_seconds",
			Help:      "Wall time spent in one scheduling pass.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .2, .5, 1},
		})),
		overruns: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "consecutive_overruns",
			Help:      "Number of consecutive passes that overran the drift margin.",
		})),
		orders: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_total",
			Help:      "Orders by class and outcome (dispatched, aborted).",
		}, []string{"class", "result"})),
		requests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Worker requests issued by operation kind.",
		}, []string{"kind"})),
		dispatchErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_errors_total",
			Help:      "Worker requests the transport failed to hand off.",
		}, []string{"kind"})),
		outstanding: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outstanding_orders",
			Help:      "Orders whose effects have not all landed.",
		})),
		capacity: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "capacity_units",
			Help:      "Capacity units seen at the start of the pass (total) and left after dispatch (unused).",
		}, []string{"state"})),
		targets: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "targets",
			Help:      "Targets by the class assigned in the last pass.",
		}, []string{"class"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObservePass records one pass and its duration.
func (m *Metrics) ObservePass(d time.Duration) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.passDuration.Observe(d.Seconds())
}

// SetOverruns records the current consecutive overrun count.
func (m *Metrics) SetOverruns(n int) {
	if m == nil {
		return
	}
	m.overruns.Set(float64(n))
}

// IncOrder counts an order of class with result "dispatched" or "aborted".
func (m *Metrics) IncOrder(class, result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(class, result).Inc()
}

// IncRequest counts one issued request.
func (m *Metrics) IncRequest(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

// IncDispatchError counts one request the transport rejected.
func (m *Metrics) IncDispatchError(kind string) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(kind).Inc()
}

// SetOutstanding records the number of live outstanding orders.
func (m *Metrics) SetOutstanding(n int) {
	if m == nil {
		return
	}
	m.outstanding.Set(float64(n))
}

// SetCapacity records the pool size at the start of the pass and what was left.
func (m *Metrics) SetCapacity(total, unused int) {
	if m == nil {
		return
	}
	m.capacity.WithLabelValues("total").Set(float64(total))
	m.capacity.WithLabelValues("unused").Set(float64(unused))
}

// SetTargets replaces the per-class target counts.
func (m *Metrics) SetTargets(byClass map[string]int) {
	if m == nil {
		return
	}
	m.targets.Reset()
	for class, n := range byClass {
		m.targets.WithLabelValues(class).Set(float64(n))
	}
}

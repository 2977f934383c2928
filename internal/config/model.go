package config

import (
	"errors"
	"fmt"
	"time"
)

// Transport kinds.
const (
	TransportSocketIO = "socketio"
	TransportLocal    = "local"
	TransportDry      = "dry"
	// TransportSim closes the loop against a simulated fleet seeded from the
	// inventory snapshot.
	TransportSim = "sim"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration.
type Model struct {
	Scheduler Scheduler
	Formulas  Formulas
	Inventory Inventory
	Transport Transport
	Server    Server
}

// Scheduler holds the cycle loop, classifier and planner settings.
type Scheduler struct {
	Cycle       time.Duration
	IdleBackoff time.Duration
	DriftMargin float64
	DriftLimit  int

	RiskEpsilon float64
	HighFill    float64
	MaxDuration time.Duration

	SuppressBatchCap int
	ReplenishStep    float64
	ExtractCap       float64

	// Reserve holds units back on the named hosts.
	Reserve map[string]int
}

// Formulas holds the per-unit effect and duration tuning.
type Formulas struct {
	RiskDecrement     float64
	HarvestRisk       float64
	ReplenishRisk     float64
	ExtractFraction   float64
	BaseDuration      time.Duration
	RiskDurationScale float64
}

// Inventory locates the snapshot written by the inventory collaborator.
type Inventory struct {
	Path string
	// ResetSignal is a file whose creation or modification invalidates the
	// cached discovery. Empty disables the watcher.
	ResetSignal string
}

// Transport selects and configures how requests reach remote executors.
type Transport struct {
	Kind               string
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Server configures the health, status and metrics HTTP server.
type Server struct {
	// Port is the listening port; 0 disables the server.
	Port int
}

// Default returns a model populated with the reference settings.
func Default() *Model {
	return &Model{
		Scheduler: Scheduler{
			Cycle:            200 * time.Millisecond,
			IdleBackoff:      time.Minute,
			DriftMargin:      3,
			DriftLimit:       5,
			RiskEpsilon:      0.05,
			HighFill:         0.95,
			MaxDuration:      10 * time.Minute,
			SuppressBatchCap: 10,
			ReplenishStep:    0.01,
			ExtractCap:       0.9,
		},
		Formulas: Formulas{
			RiskDecrement:     0.05,
			HarvestRisk:       0.002,
			ReplenishRisk:     0.004,
			ExtractFraction:   0.01,
			BaseDuration:      30 * time.Second,
			RiskDurationScale: 100,
		},
		Transport: Transport{
			Kind:           TransportDry,
			Event:          "order",
			ConnectTimeout: 15 * time.Second,
		},
	}
}

// Validate reports every invalid setting at once.
func (m *Model) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := m.Scheduler
	check(s.Cycle > 0, "scheduler.cycle must be positive, got %s", s.Cycle)
	check(s.IdleBackoff >= s.Cycle, "scheduler.idle_backoff (%s) must not be shorter than the cycle (%s)", s.IdleBackoff, s.Cycle)
	check(s.DriftMargin > 0, "scheduler.drift_margin must be positive, got %g", s.DriftMargin)
	check(s.DriftLimit > 0, "scheduler.drift_limit must be positive, got %d", s.DriftLimit)
	check(s.RiskEpsilon >= 0, "scheduler.risk_epsilon must not be negative, got %g", s.RiskEpsilon)
	check(s.HighFill > 0 && s.HighFill <= 1, "scheduler.high_fill must be in (0, 1], got %g", s.HighFill)
	check(s.MaxDuration > 0, "scheduler.max_duration must be positive, got %s", s.MaxDuration)
	check(s.SuppressBatchCap > 0, "scheduler.suppress_batch_cap must be positive, got %d", s.SuppressBatchCap)
	check(s.ReplenishStep > 0 && s.ReplenishStep <= 1, "scheduler.replenish_step must be in (0, 1], got %g", s.ReplenishStep)
	check(s.ExtractCap > 0 && s.ExtractCap < 1, "scheduler.extract_cap must be in (0, 1), got %g", s.ExtractCap)
	for host, units := range s.Reserve {
		check(units >= 0, "scheduler.reserve[%q] must not be negative, got %d", host, units)
	}

	f := m.Formulas
	check(f.RiskDecrement > 0, "formulas.risk_decrement must be positive, got %g", f.RiskDecrement)
	check(f.HarvestRisk >= 0, "formulas.harvest_risk must not be negative, got %g", f.HarvestRisk)
	check(f.ReplenishRisk >= 0, "formulas.replenish_risk must not be negative, got %g", f.ReplenishRisk)
	check(f.ExtractFraction > 0 && f.ExtractFraction < 1, "formulas.extract_fraction must be in (0, 1), got %g", f.ExtractFraction)
	check(f.BaseDuration > 0, "formulas.base_duration must be positive, got %s", f.BaseDuration)
	check(f.RiskDurationScale > 0, "formulas.risk_duration_scale must be positive, got %g", f.RiskDurationScale)

	check(m.Inventory.Path != "", "inventory.path is required")

	t := m.Transport
	switch t.Kind {
	case TransportSocketIO:
		check(t.URL != "", "transport %q requires a url", t.Kind)
		check(t.Event != "", "transport %q requires an event", t.Kind)
		check(t.ConnectTimeout > 0, "transport.connect_timeout must be positive, got %s", t.ConnectTimeout)
	case TransportLocal, TransportDry, TransportSim:
	default:
		errs = append(errs, fmt.Errorf("unknown transport kind %q", t.Kind))
	}

	check(m.Server.Port >= 0 && m.Server.Port <= 65535, "server.port must be in [0, 65535], got %d", m.Server.Port)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

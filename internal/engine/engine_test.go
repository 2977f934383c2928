package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/familiar/internal/classifier"
	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/dispatcher"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/planner"
	"github.com/specialistvlad/familiar/internal/report"
	"github.com/specialistvlad/familiar/internal/sim"
	"github.com/specialistvlad/familiar/internal/transport"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// slowInventory is an empty inventory whose scans take a scripted amount of
// manual time.
type slowInventory struct {
	clk    *clock.Manual
	scans  int
	delay  func(scan int) time.Duration
	cancel func()
	stopAt int
}

func (s *slowInventory) Snapshot(ctx context.Context) (inventory.Snapshot, error) {
	s.scans++
	if s.stopAt > 0 && s.scans >= s.stopAt {
		s.cancel()
		return inventory.Snapshot{}, ctx.Err()
	}
	s.clk.Advance(s.delay(s.scans))
	return inventory.Snapshot{At: s.clk.Now()}, nil
}

func newEngine(clk clock.Clock, inv Inventory, tr transport.Transport, pub report.Publisher) *Engine {
	f := formulas.New(formulas.DefaultParams())
	cfg := DefaultConfig()
	return New(cfg, Components{
		Inventory:  inv,
		Clock:      clk,
		Classifier: classifier.New(classifier.DefaultConfig(), f),
		Planner:    planner.New(planner.DefaultConfig(), f),
		Dispatcher: dispatcher.New(cfg.Cycle, f, clk, tr, nil),
		Publisher:  pub,
	})
}

func TestRun_DriftIsFatal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(start)
	inv := &slowInventory{clk: clk, delay: func(int) time.Duration { return 700 * time.Millisecond }}
	e := newEngine(clk, inv, &transport.Recorder{}, nil)

	// --- Act ---
	err := e.Run(context.Background())

	// --- Assert ---
	require.ErrorIs(t, err, ErrDrift)
	assert.Equal(t, 5, inv.scans)
}

func TestRun_SlowPassWithinMarginIsNotOverrun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(start)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inv := &slowInventory{
		clk:    clk,
		cancel: cancel,
		stopAt: 12,
		delay:  func(int) time.Duration { return 500 * time.Millisecond },
	}
	e := newEngine(clk, inv, &transport.Recorder{}, nil)

	// --- Act ---
	err := e.Run(ctx)

	// --- Assert ---
	require.NoError(t, err, "passes of two and a half cycles stay inside the margin")
	assert.Equal(t, 12, inv.scans)
	assert.Zero(t, e.overruns)
}

func TestRun_NormalPassResetsDrift(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(start)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inv := &slowInventory{
		clk:    clk,
		cancel: cancel,
		stopAt: 30,
		delay: func(scan int) time.Duration {
			if scan%5 == 0 {
				return 0
			}
			return 700 * time.Millisecond
		},
	}
	e := newEngine(clk, inv, &transport.Recorder{}, nil)

	// --- Act ---
	err := e.Run(ctx)

	// --- Assert ---
	require.NoError(t, err, "four overruns in a row never trip the failsafe")
	assert.Equal(t, 30, inv.scans)
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(start)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &slowInventory{clk: clk, delay: func(int) time.Duration { return 0 }}
	e := newEngine(clk, inv, &transport.Recorder{}, nil)

	require.NoError(t, e.Run(ctx))
}

type failingInventory struct{ calls int }

func (f *failingInventory) Snapshot(context.Context) (inventory.Snapshot, error) {
	f.calls++
	return inventory.Snapshot{}, errors.New("collector unavailable")
}

func TestPass_ScanError(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(start)
	e := newEngine(clk, &failingInventory{}, &transport.Recorder{}, nil)

	status, err := e.Pass(context.Background())

	require.Error(t, err)
	assert.EqualValues(t, 1, status.Pass)
}

func TestPass_IdleSleepsBackoff(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(start)
	inv := &slowInventory{clk: clk, delay: func(int) time.Duration { return 0 }}
	e := newEngine(clk, inv, &transport.Recorder{}, nil)

	status, err := e.Pass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, time.Minute, status.Sleep)
	assert.Empty(t, status.Targets)
}

func newWorld(clk clock.Clock) *sim.World {
	return sim.NewWorld(clk, formulas.New(formulas.DefaultParams()),
		[]model.CapacityUnit{{Host: "home", Units: 64}, {Host: "pserv-0", Units: 32}, {Host: "pserv-1", Units: 32}},
		[]model.Target{
			{ID: "foodnstuff", ResourceCapacity: 1000, ResourceAvailable: 900, RiskLevel: 1.5, RiskFloor: 1, GrowthFactor: 50},
			{ID: "n00dles", ResourceCapacity: 500, ResourceAvailable: 500, RiskLevel: 1, RiskFloor: 1, GrowthFactor: 20},
			{ID: "sigma", ResourceCapacity: 100, ResourceAvailable: 100, RiskLevel: 1, RiskFloor: 1, GrowthFactor: 20, BaseDuration: time.Hour},
		},
	)
}

func TestPass_AgainstSimulatedWorld(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(start)
	world := newWorld(clk)
	latest := &report.Latest{}
	e := newEngine(clk, inventory.NewCatalog(world), world, latest)
	ctx := context.Background()

	// --- Act ---
	var statuses []report.Status
	for range 40 {
		status, err := e.Pass(ctx)
		require.NoError(t, err)
		statuses = append(statuses, status)
		require.NoError(t, clk.Sleep(ctx, status.Sleep))
	}

	// --- Assert ---
	first := statuses[0]
	assert.Equal(t, "Suppress ✔", first.Targets["foodnstuff"].Label())
	assert.Equal(t, model.ClassHarvest, first.Targets["n00dles"].Class)
	assert.True(t, first.Targets["n00dles"].Funded)
	assert.Equal(t, "Ignore", first.Targets["sigma"].Label(), "operations slower than the bound are ignored")
	assert.Equal(t, 128, first.Capacity)

	for _, s := range statuses {
		assert.Zero(t, s.FailedRequests, "pass %d over-committed a host", s.Pass)
		assert.LessOrEqual(t, s.Sleep, time.Minute)
		for id, ts := range s.Targets {
			assert.GreaterOrEqual(t, ts.Effective.Risk, 1.0, "pass %d target %s", s.Pass, id)
			assert.GreaterOrEqual(t, ts.Effective.Resource, 0.0, "pass %d target %s", s.Pass, id)
		}
	}
	assert.Positive(t, world.Extracted())
	landed := world.Landed()
	assert.Positive(t, landed[model.Harvest])
	assert.Positive(t, landed[model.Suppress])

	got, ok := latest.Get()
	require.True(t, ok)
	assert.EqualValues(t, 40, got.Pass)
}

func TestPass_OutstandingOrderSupersedesMeasurement(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(start)
	world := newWorld(clk)
	e := newEngine(clk, inventory.NewCatalog(world), world, nil)
	ctx := context.Background()

	// --- Act ---
	first, err := e.Pass(ctx)
	require.NoError(t, err)
	clk.Advance(time.Second)
	second, err := e.Pass(ctx)
	require.NoError(t, err)

	// --- Assert ---
	order := first.Targets["foodnstuff"].Outstanding
	require.NotNil(t, order)
	assert.Equal(t, model.ClassIgnore, second.Targets["foodnstuff"].Class, "order still in flight")
	assert.Equal(t, order.Estimate, second.Targets["foodnstuff"].Effective)
	assert.Zero(t, second.Dispatched)
	assert.Len(t, e.Outstanding(), first.Dispatched)
}

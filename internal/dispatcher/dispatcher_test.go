package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/familiar/internal/capacity"
	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/protocol"
	"github.com/specialistvlad/familiar/internal/transport"
)

const cycle = 200 * time.Millisecond

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// target has a zero risk, so its stages take 30s, 96s and 120s.
var target = model.Target{ID: "t", ResourceCapacity: 100, ResourceAvailable: 90, GrowthFactor: 50}

func newDispatcher(tr transport.Transport) *Dispatcher {
	d := New(cycle, formulas.New(formulas.DefaultParams()), clock.NewManual(start), tr, nil)
	d.newID = func() string { return "order-1" }
	return d
}

func TestAnchor(t *testing.T) {
	t.Parallel()
	d := newDispatcher(&transport.Recorder{})

	tests := []struct {
		name     string
		now      time.Time
		previous *model.OutstandingOrder
		want     time.Time
	}{
		{"boundary is pushed strictly forward", start, nil, start.Add(120*time.Second + cycle)},
		{"mid-cycle rounds up", start.Add(50 * time.Millisecond), nil, start.Add(120*time.Second + cycle)},
		{"distant previous deadline is ignored", start, &model.OutstandingOrder{Deadline: start.Add(time.Second)}, start.Add(120*time.Second + cycle)},
		{
			"overlapping previous deadline pushes by whole cycles",
			start,
			&model.OutstandingOrder{Deadline: start.Add(120*time.Second + cycle)},
			start.Add(120*time.Second + 3*cycle),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Anchor(target, tt.now, tt.previous)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			if tt.previous != nil {
				assert.True(t, tt.previous.Deadline.Before(got.Add(-cycle)))
			}
		})
	}
}

func TestFireDelay_LandsInSlotOrder(t *testing.T) {
	t.Parallel()
	d := newDispatcher(&transport.Recorder{})
	f := formulas.New(formulas.DefaultParams())
	anchor := d.Anchor(target, start, nil)

	var landings []time.Time
	for _, s := range model.Stages {
		delay := d.FireDelay(target, s, anchor, start)
		require.Positive(t, delay, "stage %s", s)
		landing := start.Add(delay + f.StageDuration(target, s))
		want := anchor.Add(time.Duration(s.Offset() * float64(cycle)))
		assert.True(t, want.Equal(landing), "stage %s lands at %s, want %s", s, landing, want)
		landings = append(landings, landing)
	}
	for i := 1; i < len(landings); i++ {
		assert.True(t, landings[i-1].Before(landings[i]))
	}
	assert.True(t, landings[len(landings)-1].Before(anchor.Add(cycle)), "every stage lands before the deadline")
}

func harvestPlan() *model.Plan {
	return &model.Plan{
		Target: target,
		Class:  model.ClassHarvest,
		Units: map[model.Stage]int{
			model.StageReplenish:      8,
			model.StageHarvest:        4,
			model.StageSuppressFirst:  1,
			model.StageSuppressSecond: 2,
		},
		Estimate: model.State{Resource: 90, Risk: 0},
		Power:    4,
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &transport.Recorder{}
	d := newDispatcher(rec)
	pool := capacity.New([]model.CapacityUnit{{Host: "a", Units: 10}, {Host: "b", Units: 6}})

	// --- Act ---
	out, err := d.Dispatch(context.Background(), pool, harvestPlan(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, out.Err())
	assert.Equal(t, 1, pool.Total())

	anchor := start.Add(120*time.Second + cycle)
	assert.Equal(t, "order-1", out.Order.ID)
	assert.Equal(t, "t", out.Order.TargetID)
	assert.Equal(t, model.State{Resource: 90, Risk: 0}, out.Order.Estimate)
	assert.True(t, anchor.Equal(out.Order.Anchor), "anchor %s", out.Order.Anchor)
	assert.True(t, anchor.Add(cycle).Equal(out.Order.Deadline), "deadline %s", out.Order.Deadline)

	reqs := rec.Requests()
	require.Len(t, reqs, out.Issued)
	landingRank := map[model.OperationKind]int{model.Replenish: 0, model.Harvest: 1, model.Suppress: 2}
	units := map[model.OperationKind]int{}
	for i, r := range reqs {
		units[r.Message.OperationKind] += r.Units
		assert.Equal(t, "t", r.Message.TargetID)
		if i > 0 {
			assert.LessOrEqual(t, landingRank[reqs[i-1].Message.OperationKind], landingRank[r.Message.OperationKind], "requests go out in landing order")
		}
	}
	assert.Equal(t, model.Replenish, reqs[0].Message.OperationKind)
	assert.Greater(t, reqs[0].Message.FireDelay, reqs[len(reqs)-1].Message.FireDelay, "suppress fires first but lands last")
	assert.Equal(t, map[model.OperationKind]int{model.Replenish: 8, model.Harvest: 4, model.Suppress: 3}, units)

	var replenish []protocol.Request
	for _, r := range reqs {
		if r.Message.OperationKind == model.Replenish {
			replenish = append(replenish, r)
		}
	}
	require.Len(t, replenish, 1, "replenish units stay on one host")
	assert.Equal(t, "a", replenish[0].Host)
}

func TestDispatch_AbortsAndReleases(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &transport.Recorder{}
	d := newDispatcher(rec)
	pool := capacity.New([]model.CapacityUnit{{Host: "a", Units: 5}, {Host: "b", Units: 5}})
	before := pool.Units()
	plan := &model.Plan{
		Target: target,
		Class:  model.ClassHarvest,
		Units:  map[model.Stage]int{model.StageHarvest: 6, model.StageSuppressSecond: 6},
	}

	// --- Act ---
	_, err := d.Dispatch(context.Background(), pool, plan, nil)

	// --- Assert ---
	require.ErrorIs(t, err, capacity.ErrInsufficientCapacity)
	assert.Equal(t, before, pool.Units())
	assert.Empty(t, rec.Requests())
}

func TestDispatch_CoalescedReplenishAborts(t *testing.T) {
	t.Parallel()
	rec := &transport.Recorder{}
	d := newDispatcher(rec)
	pool := capacity.New([]model.CapacityUnit{{Host: "a", Units: 5}, {Host: "b", Units: 5}})
	plan := &model.Plan{Target: target, Class: model.ClassReplenish, Units: map[model.Stage]int{model.StageReplenish: 8}}

	_, err := d.Dispatch(context.Background(), pool, plan, nil)

	require.ErrorIs(t, err, capacity.ErrInsufficientCapacity)
	assert.Equal(t, 10, pool.Total())
}

func TestDispatch_TransportFailureContinues(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	boom := errors.New("gateway down")
	rec := &transport.Recorder{Err: func(req protocol.Request) error {
		if req.Message.OperationKind == model.Suppress {
			return boom
		}
		return nil
	}}
	d := newDispatcher(rec)
	pool := capacity.New([]model.CapacityUnit{{Host: "a", Units: 10}, {Host: "b", Units: 6}})

	// --- Act ---
	out, err := d.Dispatch(context.Background(), pool, harvestPlan(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.NotEmpty(t, out.Failed)
	assert.Equal(t, len(rec.Requests()), out.Issued)
	for _, r := range rec.Requests() {
		assert.NotEqual(t, model.Suppress, r.Message.OperationKind)
	}

	joined := out.Err()
	require.ErrorIs(t, joined, boom)
	var derr *DispatchError
	require.ErrorAs(t, joined, &derr)
	assert.Equal(t, model.Suppress, derr.Request.Message.OperationKind)
	assert.Equal(t, 1, pool.Total(), "failed stages still consume their capacity")
}

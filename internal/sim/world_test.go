package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/protocol"
)

func newWorld(clk clock.Clock) *World {
	return NewWorld(clk, formulas.New(formulas.DefaultParams()),
		[]model.CapacityUnit{{Host: "home", Units: 8}},
		[]model.Target{{ID: "t", ResourceCapacity: 100, ResourceAvailable: 50, RiskLevel: 2, RiskFloor: 1, GrowthFactor: 50}},
	)
}

func TestWorld_IssueHoldsCapacityUntilLanding(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clk := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	w := newWorld(clk)
	cat := inventory.NewCatalog(w)
	ctx := context.Background()
	req := protocol.Request{Host: "home", Units: 5, Message: protocol.Message{
		OperationKind: model.Suppress,
		TargetID:      "t",
		FireDelay:     time.Second,
	}}

	// --- Act ---
	require.NoError(t, w.Issue(ctx, req))
	during, err := cat.Snapshot(ctx)
	require.NoError(t, err)
	overflow := w.Issue(ctx, req)
	clk.Advance(time.Hour)
	after, err := cat.Snapshot(ctx)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, []model.CapacityUnit{{Host: "home", Units: 3}}, during.Capacity)
	assert.InDelta(t, 2.0, during.Targets[0].RiskLevel, 1e-9, "not landed yet")
	assert.ErrorIs(t, overflow, ErrNoRoom)
	assert.Equal(t, []model.CapacityUnit{{Host: "home", Units: 8}}, after.Capacity)
	assert.InDelta(t, 1.75, after.Targets[0].RiskLevel, 1e-9)
	assert.Equal(t, map[model.OperationKind]int{model.Suppress: 5}, w.Landed())
	assert.Zero(t, w.Pending())
}

func TestWorld_HarvestCountsExtraction(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	w := newWorld(clk)
	req := protocol.Request{Host: "home", Units: 4, Message: protocol.Message{OperationKind: model.Harvest, TargetID: "t"}}

	require.NoError(t, w.Issue(context.Background(), req))
	clk.Advance(time.Hour)
	target, ok := w.Target("t")

	require.True(t, ok)
	assert.InDelta(t, 48.0, target.ResourceAvailable, 1e-9)
	assert.InDelta(t, 2.0, w.Extracted(), 1e-9)
}

func TestWorld_RejectsUnknown(t *testing.T) {
	t.Parallel()
	w := newWorld(clock.Real{})

	err := w.Issue(context.Background(), protocol.Request{Host: "nowhere", Units: 1, Message: protocol.Message{OperationKind: model.Harvest, TargetID: "t"}})

	assert.ErrorIs(t, err, ErrUnknown)
}

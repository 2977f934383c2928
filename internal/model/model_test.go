// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget_Clamp(t *testing.T) {
	target := Target{ResourceCapacity: 100, RiskFloor: 5}

	tests := []struct {
		name string
		in   State
		want State
	}{
		{"within bounds", State{Resource: 40, Risk: 7}, State{Resource: 40, Risk: 7}},
		{"resource above capacity", State{Resource: 140, Risk: 7}, State{Resource: 100, Risk: 7}},
		{"negative resource", State{Resource: -3, Risk: 7}, State{Resource: 0, Risk: 7}},
		{"risk below floor", State{Resource: 40, Risk: 1}, State{Resource: 40, Risk: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, target.Clamp(tt.in))
		})
	}
}

func TestStage_LandingOrder(t *testing.T) {
	for i := 1; i < len(Stages); i++ {
		assert.Less(t, Stages[i-1].Offset(), Stages[i].Offset(), "%s must land before %s", Stages[i-1], Stages[i])
	}
	assert.Less(t, StageSuppressSecond.Offset(), 1.0)
	assert.Equal(t, Suppress, StageSuppressFirst.Kind())
	assert.Equal(t, Suppress, StageSuppressSecond.Kind())
	assert.Equal(t, Replenish, StageReplenish.Kind())
	assert.Equal(t, Harvest, StageHarvest.Kind())
}

func TestPlan_CostAndLabel(t *testing.T) {
	p := &Plan{Class: ClassHarvest, Power: 3, Units: map[Stage]int{StageHarvest: 3, StageSuppressFirst: 1, StageReplenish: 9, StageSuppressSecond: 1}}
	assert.Equal(t, 14, p.Cost())
	assert.Equal(t, "Harvest 3 ✔", p.Label())

	var none *Plan
	assert.Zero(t, none.Cost())
}

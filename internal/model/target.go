// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"math"
	"time"
)

// State is the mutable part of a target: how much resource it currently holds
// and how high its risk level is.
type State struct {
	Resource float64 `json:"resource" yaml:"resource"`
	Risk     float64 `json:"risk" yaml:"risk"`
}

// Target is one schedulable entity as reported by the inventory snapshot.
type Target struct {
	ID                string        `json:"id" yaml:"id"`
	ResourceCapacity  float64       `json:"resourceCapacity" yaml:"resourceCapacity"`
	ResourceAvailable float64       `json:"resourceAvailable" yaml:"resourceAvailable"`
	RiskLevel         float64       `json:"riskLevel" yaml:"riskLevel"`
	RiskFloor         float64       `json:"riskFloor" yaml:"riskFloor"`
	GrowthFactor      float64       `json:"growthFactor" yaml:"growthFactor"`
	BaseDuration      time.Duration `json:"baseDuration,omitempty" yaml:"baseDuration,omitempty"`
}

// State returns the target's current (resource, risk) pair.
func (t Target) State() State {
	return State{Resource: t.ResourceAvailable, Risk: t.RiskLevel}
}

// WithState returns a copy of t carrying s, clamped to t's bounds.
func (t Target) WithState(s State) Target {
	s = t.Clamp(s)
	t.ResourceAvailable = s.Resource
	t.RiskLevel = s.Risk
	return t
}

// Clamp bounds s to 0 <= Resource <= ResourceCapacity and Risk >= RiskFloor.
func (t Target) Clamp(s State) State {
	s.Resource = math.Min(t.ResourceCapacity, math.Max(0, s.Resource))
	s.Risk = math.Max(t.RiskFloor, s.Risk)
	return s
}

// RiskAbove is the distance of the current risk level from its floor.
func (t Target) RiskAbove() float64 {
	return t.RiskLevel - t.RiskFloor
}

// FillRatio is ResourceAvailable / ResourceCapacity, or 0 for an empty target.
func (t Target) FillRatio() float64 {
	if t.ResourceCapacity <= 0 {
		return 0
	}
	return t.ResourceAvailable / t.ResourceCapacity
}

// Package formulas holds the closed-form models of how operations affect a
// target and how long they take. The planner sizes batches with them and the
// simulator applies them, so both agree on the arithmetic.
package formulas

import (
	"math"
	"time"

	"github.com/specialistvlad/familiar/internal/model"
)

// Growth curve constants. The multiplier achieved by n replenish units is
// exp(3*n*growth / (growthBase + growthRiskWeight*max(0, risk-growthRiskOffset))).
const (
	growthBase       = 85864.19836707058
	growthRiskWeight = 10000.00234309814
	growthRiskOffset = 9 / 1.05
)

// Relative lengths of the three operations; Suppress is always the longest.
const (
	harvestScale   = 1.0
	replenishScale = 3.2
	suppressScale  = 4.0
)

// unitTolerance absorbs float noise before rounding unit counts up, so that
// 0.15/0.05 is 3 units and not 4.
const unitTolerance = 1e-9

// Params configures the formulas.
type Params struct {
	// RiskDecrement is how much one Suppress unit lowers risk.
	RiskDecrement float64
	// HarvestRisk is how much one Harvest unit raises risk.
	HarvestRisk float64
	// ReplenishRisk is how much one Replenish unit raises risk.
	ReplenishRisk float64
	// ExtractFraction is the fraction of the available resource one Harvest unit takes.
	ExtractFraction float64
	// BaseDuration is the Harvest duration of a target at zero risk, used when
	// the target does not report its own.
	BaseDuration time.Duration
	// RiskDurationScale stretches durations linearly with risk: at risk equal to
	// the scale every operation takes twice as long.
	RiskDurationScale float64
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		RiskDecrement:     0.05,
		HarvestRisk:       0.002,
		ReplenishRisk:     0.004,
		ExtractFraction:   0.01,
		BaseDuration:      30 * time.Second,
		RiskDurationScale: 100,
	}
}

// Formulas evaluates Params against targets.
type Formulas struct {
	p Params
}

// New returns formulas for p.
func New(p Params) *Formulas {
	return &Formulas{p: p}
}

// Params returns the configured parameters.
func (f *Formulas) Params() Params { return f.p }

// Duration is how long an operation of kind takes against t at t's current risk.
func (f *Formulas) Duration(t model.Target, kind model.OperationKind) time.Duration {
	base := t.BaseDuration
	if base <= 0 {
		base = f.p.BaseDuration
	}
	scaled := float64(base)
	if f.p.RiskDurationScale > 0 {
		scaled *= 1 + math.Max(0, t.RiskLevel)/f.p.RiskDurationScale
	}
	switch kind {
	case model.Harvest:
		scaled *= harvestScale
	case model.Replenish:
		scaled *= replenishScale
	default:
		scaled *= suppressScale
	}
	return time.Duration(scaled)
}

// StageDuration is Duration for the stage's operation kind.
func (f *Formulas) StageDuration(t model.Target, s model.Stage) time.Duration {
	return f.Duration(t, s.Kind())
}

// RoundTrip is the longest stage duration of a batch against t.
func (f *Formulas) RoundTrip(t model.Target) time.Duration {
	return f.Duration(t, model.Suppress)
}

func growthDenominator(t model.Target) float64 {
	return growthBase + growthRiskWeight*math.Max(0, t.RiskLevel-growthRiskOffset)
}

// GrowthMultiplier is the factor by which units replenish units multiply t's resource.
func (f *Formulas) GrowthMultiplier(t model.Target, units int) float64 {
	if units <= 0 || t.GrowthFactor <= 0 {
		return 1
	}
	return math.Exp(3 * float64(units) * t.GrowthFactor / growthDenominator(t))
}

// ReplenishUnits is the exact (fractional) number of replenish units needed to
// multiply t's resource by mult. It is the inverse of GrowthMultiplier.
func (f *Formulas) ReplenishUnits(t model.Target, mult float64) float64 {
	if mult <= 1 {
		return 0
	}
	if t.GrowthFactor <= 0 {
		return math.Inf(1)
	}
	return math.Log(mult) * growthDenominator(t) / (3 * t.GrowthFactor)
}

// SuppressUnits is the fractional number of suppress units that offsets riskDelta.
func (f *Formulas) SuppressUnits(riskDelta float64) float64 {
	if riskDelta <= 0 || f.p.RiskDecrement <= 0 {
		return 0
	}
	return riskDelta / f.p.RiskDecrement
}

// ExtractFraction is the fraction of t's resource that one harvest unit takes.
func (f *Formulas) ExtractFraction(model.Target) float64 {
	return f.p.ExtractFraction
}

// ApplyHarvest projects the state after units harvest units land on s.
func (f *Formulas) ApplyHarvest(t model.Target, s model.State, units int) model.State {
	frac := math.Min(1, float64(units)*f.ExtractFraction(t))
	s.Resource *= 1 - frac
	s.Risk += float64(units) * f.p.HarvestRisk
	return t.Clamp(s)
}

// ApplyReplenish projects the state after units replenish units land on s.
// An empty target grows from a baseline of one resource unit.
func (f *Formulas) ApplyReplenish(t model.Target, s model.State, units int) model.State {
	grown := t.WithState(s)
	s.Resource = math.Max(1, s.Resource) * f.GrowthMultiplier(grown, units)
	s.Risk += float64(units) * f.p.ReplenishRisk
	return t.Clamp(s)
}

// ApplySuppress projects the state after units suppress units land on s.
func (f *Formulas) ApplySuppress(t model.Target, s model.State, units int) model.State {
	s.Risk -= float64(units) * f.p.RiskDecrement
	return t.Clamp(s)
}

// CeilUnits rounds a fractional unit count up, ignoring float noise.
func CeilUnits(x float64) int {
	if x <= 0 {
		return 0
	}
	return int(math.Ceil(x - unitTolerance))
}

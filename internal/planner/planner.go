// Package planner sizes batches: for each classified target it decides how
// many capacity units of every stage the target's batch needs, without ever
// exceeding the capacity budget it is given.
package planner

import (
	"math"

	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/model"
)

// Config tunes plan sizing.
type Config struct {
	// SuppressBatchCap bounds the size of a suppress-only batch.
	SuppressBatchCap int
	// ReplenishStep is how much of a target's capacity one replenish batch
	// tries to restore.
	ReplenishStep float64
	// ExtractCap is the largest fraction of a target's resource a single
	// harvest batch may take.
	ExtractCap float64
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		SuppressBatchCap: 10,
		ReplenishStep:    0.01,
		ExtractCap:       0.9,
	}
}

// Planner builds plans.
type Planner struct {
	cfg Config
	f   *formulas.Formulas
}

// New returns a planner using f.
func New(cfg Config, f *formulas.Formulas) *Planner {
	return &Planner{cfg: cfg, f: f}
}

// Suppress plans a suppress-only batch that walks t's risk back towards its
// floor, capped by the batch cap and budget. It returns nil when nothing can
// be done.
func (p *Planner) Suppress(t model.Target, budget int) *model.Plan {
	needed := formulas.CeilUnits(p.f.SuppressUnits(t.RiskAbove()))
	n := min(p.cfg.SuppressBatchCap, budget, needed)
	if n <= 0 {
		return nil
	}
	return &model.Plan{
		Target:   t,
		Class:    model.ClassSuppress,
		Units:    map[model.Stage]int{model.StageSuppressSecond: n},
		Estimate: p.f.ApplySuppress(t, t.State(), n),
	}
}

// Replenish plans a batch that grows t's resource by one replenish step,
// together with the suppress units that offset the growth's risk. largest is
// the biggest block a single host can provide; replenish units must fit in it.
func (p *Planner) Replenish(t model.Target, budget, largest int) *model.Plan {
	if budget <= 0 || largest <= 0 {
		return nil
	}
	goal := math.Min(t.ResourceCapacity, t.ResourceAvailable+p.cfg.ReplenishStep*t.ResourceCapacity)
	mult := goal / math.Max(1, t.ResourceAvailable)

	grow := math.Min(p.f.ReplenishUnits(t, mult), float64(largest))
	suppress := p.f.SuppressUnits(grow * p.f.Params().ReplenishRisk)
	if total := grow + suppress; total > float64(budget) {
		scale := float64(budget) / total
		grow *= scale
		suppress *= scale
	}

	growUnits := max(1, int(math.Floor(grow)))
	suppressUnits := formulas.CeilUnits(suppress)
	for growUnits+suppressUnits > budget && suppressUnits > 0 {
		suppressUnits--
	}
	if growUnits+suppressUnits > budget {
		return nil
	}

	estimate := p.f.ApplyReplenish(t, t.State(), growUnits)
	estimate = p.f.ApplySuppress(t, estimate, suppressUnits)
	units := map[model.Stage]int{model.StageReplenish: growUnits}
	if suppressUnits > 0 {
		units[model.StageSuppressSecond] = suppressUnits
	}
	return &model.Plan{
		Target:   t,
		Class:    model.ClassReplenish,
		Units:    units,
		Estimate: estimate,
	}
}

// Harvest searches for the harvest power that fits budget: it doubles the
// power from 1 while the batch stays feasible, then bisects between the last
// accepted and the first rejected power. Feasibility is monotone in power, so
// every power below the result is feasible and the result is the largest
// feasible one. It returns nil when even a single harvest unit does not fit.
func (p *Planner) Harvest(t model.Target, budget, largest int) *model.Plan {
	var best *model.Plan
	accepted, rejected := 0, 0
	for power := 1; ; power *= 2 {
		plan, ok := p.harvestAt(t, power, budget, largest)
		if !ok {
			rejected = power
			break
		}
		best, accepted = plan, power
	}
	for rejected-accepted > 1 {
		mid := accepted + (rejected-accepted)/2
		if plan, ok := p.harvestAt(t, mid, budget, largest); ok {
			best, accepted = plan, mid
		} else {
			rejected = mid
		}
	}
	return best
}

// harvestAt builds the batch for a given harvest power and reports whether it
// is feasible under budget and largest.
func (p *Planner) harvestAt(t model.Target, power, budget, largest int) (*model.Plan, bool) {
	frac := float64(power) * p.f.ExtractFraction(t)
	if power > budget || frac > p.cfg.ExtractCap || frac >= 1 {
		return nil, false
	}
	params := p.f.Params()

	grow := p.f.ReplenishUnits(t, 1/(1-frac))
	if math.IsInf(grow, 0) || grow > float64(largest) {
		return nil, false
	}
	growUnits := formulas.CeilUnits(grow)
	firstSuppress := formulas.CeilUnits(p.f.SuppressUnits(float64(power) * params.HarvestRisk))
	secondSuppress := formulas.CeilUnits(p.f.SuppressUnits(float64(growUnits) * params.ReplenishRisk))

	cost := power + firstSuppress + growUnits + secondSuppress
	if cost > budget {
		return nil, false
	}

	estimate := p.f.ApplyHarvest(t, t.State(), power)
	estimate = p.f.ApplySuppress(t, estimate, firstSuppress)
	estimate = p.f.ApplyReplenish(t, estimate, growUnits)
	estimate = p.f.ApplySuppress(t, estimate, secondSuppress)

	units := map[model.Stage]int{model.StageHarvest: power}
	for stage, n := range map[model.Stage]int{
		model.StageSuppressFirst:  firstSuppress,
		model.StageReplenish:      growUnits,
		model.StageSuppressSecond: secondSuppress,
	} {
		if n > 0 {
			units[stage] = n
		}
	}
	return &model.Plan{
		Target:   t,
		Class:    model.ClassHarvest,
		Units:    units,
		Estimate: estimate,
		Power:    power,
		Value:    frac * t.ResourceAvailable,
	}, true
}

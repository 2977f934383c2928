package planner

import (
	"cmp"
	"context"
	"sort"

	"github.com/specialistvlad/familiar/internal/capacity"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/pqueue"
)

// Budget is the capacity a single plan may spend.
type Budget struct {
	// Total is the number of free units across every host.
	Total int
	// LargestBlock is the largest number of free units on a single host.
	LargestBlock int
}

// Candidate is a target paired with the class it was assigned this pass.
type Candidate struct {
	Target model.Target
	Class  model.Class
}

// Result is the outcome of planning one pass.
type Result struct {
	// Plans are the funded plans in dispatch order.
	Plans []*model.Plan
	// Unfunded lists the IDs of candidates that received no plan.
	Unfunded []string
	// Remaining is the budget left once every plan is funded.
	Remaining Budget
}

type ranked struct {
	plan    *model.Plan
	density float64
}

// byDensity orders harvest plans by value density, highest first; ties go to
// the smaller target ID.
var byDensity = pqueue.By(
	pqueue.Reverse(func(a, b ranked) int { return cmp.Compare(a.density, b.density) }),
	func(a, b ranked) int { return cmp.Compare(a.plan.Target.ID, b.plan.Target.ID) },
)

// Density is the plan's value per unit of capacity-time.
func (p *Planner) Density(plan *model.Plan) float64 {
	rt := p.f.RoundTrip(plan.Target).Seconds()
	cost := plan.Cost()
	if rt <= 0 || cost <= 0 {
		return 0
	}
	return plan.Value / (rt * float64(cost))
}

// PlanAll funds candidates from one shared pool: every Suppress candidate
// first, then every Replenish candidate, then Harvest candidates by value
// density. Funded plans are trial-allocated, stage by stage in landing order,
// against a copy of pool, so the budget seen by later plans reflects how
// earlier ones fragment it. A harvest plan that no longer fits is re-solved
// against what is left and ranked again. pool itself is not modified.
func (p *Planner) PlanAll(ctx context.Context, candidates []Candidate, pool *capacity.Pool) Result {
	logger := ctxlog.FromContext(ctx).With("component", "planner")
	scratch := pool.Clone()
	budget := func() Budget { return Budget{Total: scratch.Total(), LargestBlock: scratch.Largest()} }

	groups := map[model.Class][]model.Target{}
	for _, c := range candidates {
		groups[c.Class] = append(groups[c.Class], c.Target)
	}
	for _, ts := range groups {
		sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
	}

	var res Result
	funded := map[string]bool{}
	spend := func(plan *model.Plan) {
		for _, s := range model.Stages {
			mode := capacity.Fragmented
			if s == model.StageReplenish {
				mode = capacity.Coalesced
			}
			if _, err := scratch.Allocate(plan.Units[s], mode); err != nil {
				// Sized against the same pool, so this only happens on a bug.
				logger.Error("Funded plan does not fit the pool.", "target", plan.Target.ID, "stage", s, "error", err)
			}
		}
		res.Plans = append(res.Plans, plan)
		funded[plan.Target.ID] = true
		logger.Debug("Plan funded.", "target", plan.Target.ID, "class", plan.Class, "cost", plan.Cost(), "remaining", scratch.Total())
	}

	for _, t := range groups[model.ClassSuppress] {
		if plan := p.Suppress(t, scratch.Total()); plan != nil {
			spend(plan)
		}
	}
	for _, t := range groups[model.ClassReplenish] {
		b := budget()
		if plan := p.Replenish(t, b.Total, b.LargestBlock); plan != nil {
			spend(plan)
		}
	}

	q := pqueue.New(byDensity)
	b := budget()
	for _, t := range groups[model.ClassHarvest] {
		if plan := p.Harvest(t, b.Total, b.LargestBlock); plan != nil {
			q.Push(ranked{plan: plan, density: p.Density(plan)})
		}
	}
	for scratch.Total() > 0 {
		top, ok := q.Pop()
		if !ok {
			break
		}
		b := budget()
		if top.plan.Cost() <= b.Total && top.plan.Units[model.StageReplenish] <= b.LargestBlock {
			spend(top.plan)
			continue
		}
		if plan := p.Harvest(top.plan.Target, b.Total, b.LargestBlock); plan != nil {
			q.Push(ranked{plan: plan, density: p.Density(plan)})
		}
	}

	for _, c := range candidates {
		if c.Class != model.ClassIgnore && !funded[c.Target.ID] {
			res.Unfunded = append(res.Unfunded, c.Target.ID)
		}
	}
	sort.Strings(res.Unfunded)
	res.Remaining = budget()
	return res
}

package app

import (
	"github.com/specialistvlad/familiar/internal/classifier"
	"github.com/specialistvlad/familiar/internal/dispatcher"
	"github.com/specialistvlad/familiar/internal/engine"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/planner"
	"github.com/specialistvlad/familiar/internal/report"
	"github.com/specialistvlad/familiar/internal/transport"
)

func (a *App) formulas() *formulas.Formulas {
	f := a.config.Formulas
	return formulas.New(formulas.Params{
		RiskDecrement:     f.RiskDecrement,
		HarvestRisk:       f.HarvestRisk,
		ReplenishRisk:     f.ReplenishRisk,
		ExtractFraction:   f.ExtractFraction,
		BaseDuration:      f.BaseDuration,
		RiskDurationScale: f.RiskDurationScale,
	})
}

// newEngine assembles a cycle loop from the configuration.
func (a *App) newEngine(inv engine.Inventory, tr transport.Transport, pub report.Publisher) *engine.Engine {
	s := a.config.Scheduler
	f := a.formulas()
	return engine.New(
		engine.Config{
			Cycle:       s.Cycle,
			IdleBackoff: s.IdleBackoff,
			DriftMargin: s.DriftMargin,
			DriftLimit:  s.DriftLimit,
			Reserve:     s.Reserve,
		},
		engine.Components{
			Inventory: inv,
			Clock:     a.clock,
			Classifier: classifier.New(classifier.Config{
				RiskEpsilon: s.RiskEpsilon,
				HighFill:    s.HighFill,
				MaxDuration: s.MaxDuration,
				Cycle:       s.Cycle,
			}, f),
			Planner: planner.New(planner.Config{
				SuppressBatchCap: s.SuppressBatchCap,
				ReplenishStep:    s.ReplenishStep,
				ExtractCap:       s.ExtractCap,
			}, f),
			Dispatcher: dispatcher.New(s.Cycle, f, a.clock, tr, a.metrics),
			Publisher:  pub,
			Metrics:    a.metrics,
		},
	)
}

// Package classifier maps a target's effective state to the action it should
// receive this pass.
package classifier

import (
	"time"

	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/model"
)

// Config holds the classification thresholds.
type Config struct {
	// RiskEpsilon is the risk above the floor that still counts as "at floor".
	RiskEpsilon float64
	// HighFill is the fill ratio a target must exceed to be harvested.
	HighFill float64
	// MaxDuration is the longest round trip a target may have and still be operated.
	MaxDuration time.Duration
	// Cycle is the scheduling window length.
	Cycle time.Duration
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		RiskEpsilon: 0.05,
		HighFill:    0.95,
		MaxDuration: 10 * time.Minute,
		Cycle:       200 * time.Millisecond,
	}
}

// Classifier assigns classes.
type Classifier struct {
	cfg Config
	f   *formulas.Formulas
}

// New returns a classifier using f for durations.
func New(cfg Config, f *formulas.Formulas) *Classifier {
	return &Classifier{cfg: cfg, f: f}
}

// Classify decides the action for t, whose state is already the effective
// one. outstanding is the target's live order, if any.
func (c *Classifier) Classify(t model.Target, outstanding *model.OutstandingOrder, now time.Time) model.Class {
	if t.ResourceCapacity <= 0 {
		return model.ClassIgnore
	}
	if c.f.RoundTrip(t) > c.cfg.MaxDuration {
		return model.ClassIgnore
	}
	if outstanding != nil && outstanding.Deadline.After(now.Add(c.cfg.Cycle)) {
		return model.ClassIgnore
	}

	riskAbove := t.RiskAbove()
	switch {
	case riskAbove < c.cfg.RiskEpsilon && t.FillRatio() > c.cfg.HighFill:
		return model.ClassHarvest
	case riskAbove >= c.cfg.RiskEpsilon:
		return model.ClassSuppress
	default:
		return model.ClassReplenish
	}
}

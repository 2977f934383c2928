package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/familiar/internal/capacity"
	"github.com/specialistvlad/familiar/internal/classifier"
	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/dispatcher"
	"github.com/specialistvlad/familiar/internal/estimator"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/metrics"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/planner"
	"github.com/specialistvlad/familiar/internal/report"
)

// ErrDrift is returned by Run when too many consecutive passes overran.
var ErrDrift = errors.New("scheduler drift")

// Config tunes the loop.
type Config struct {
	Cycle time.Duration
	// IdleBackoff is the sleep when nothing is outstanding, and the longest
	// sleep otherwise.
	IdleBackoff time.Duration
	// DriftMargin is the pass length, in cycles, above which a pass overruns.
	DriftMargin float64
	// DriftLimit is the number of consecutive overruns that stop the loop.
	DriftLimit int
	// Reserve holds units back from the pool, per host.
	Reserve map[string]int
}

// DefaultConfig returns the reference loop settings.
func DefaultConfig() Config {
	return Config{
		Cycle:       200 * time.Millisecond,
		IdleBackoff: time.Minute,
		DriftMargin: 3,
		DriftLimit:  5,
	}
}

// Inventory yields a fresh snapshot every pass.
type Inventory interface {
	Snapshot(ctx context.Context) (inventory.Snapshot, error)
}

// Components are the collaborators a loop drives.
type Components struct {
	Inventory  Inventory
	Clock      clock.Clock
	Classifier *classifier.Classifier
	Planner    *planner.Planner
	Dispatcher *dispatcher.Dispatcher
	Publisher  report.Publisher
	Metrics    *metrics.Metrics
}

// Engine runs scheduling passes.
type Engine struct {
	cfg Config
	Components
	est *estimator.Estimator

	pass      uint64
	overruns  int
	lastStart time.Time
}

// New returns an engine with no outstanding orders.
func New(cfg Config, c Components) *Engine {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Publisher == nil {
		c.Publisher = report.Publishers{}
	}
	return &Engine{cfg: cfg, Components: c, est: estimator.New()}
}

// Run loops until ctx is done or drift is detected. A cancelled context is
// a clean stop and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	ctx, logger := ctxlog.With(ctx, "component", "engine")
	logger.Info("🚀 Scheduler loop starting.", "cycle", e.cfg.Cycle, "idle_backoff", e.cfg.IdleBackoff)

	for {
		status, err := e.Pass(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// A failed scan skips the pass; the next cycle tries again.
			logger.Warn("Pass skipped.", "error", err)
			status.Sleep = e.untilNextCycle(e.Clock.Now())
		}
		if err := e.checkDrift(ctx, status.Duration); err != nil {
			return err
		}
		if err := e.Clock.Sleep(ctx, status.Sleep); err != nil {
			break
		}
	}
	logger.Info("🏁 Scheduler loop stopped.")
	return nil
}

func (e *Engine) checkDrift(ctx context.Context, length time.Duration) error {
	limit := time.Duration(e.cfg.DriftMargin * float64(e.cfg.Cycle))
	if length > limit {
		e.overruns++
		ctxlog.FromContext(ctx).Warn("Pass overran the cycle.", "length", length, "limit", limit, "consecutive", e.overruns)
	} else {
		e.overruns = 0
	}
	e.Metrics.SetOverruns(e.overruns)
	if e.cfg.DriftLimit > 0 && e.overruns >= e.cfg.DriftLimit {
		err := fmt.Errorf("%w: %d consecutive passes longer than %s", ErrDrift, e.overruns, limit)
		ctxlog.FromContext(ctx).Error("Failsafe triggered.", "error", err)
		return err
	}
	return nil
}

// Pass runs one scheduling pass and publishes its status.
func (e *Engine) Pass(ctx context.Context) (report.Status, error) {
	start := e.Clock.Now()
	e.pass++
	ctx, logger := ctxlog.With(ctx, "pass", e.pass)
	if !e.lastStart.IsZero() {
		logger.Debug("Pass timing.", "interval", start.Sub(e.lastStart), "start", start)
	}
	e.lastStart = start

	snap, err := e.Inventory.Snapshot(ctx)
	if err != nil {
		return report.Status{Pass: e.pass, At: start, Duration: e.Clock.Now().Sub(start)}, fmt.Errorf("scan: %w", err)
	}
	now := e.Clock.Now()
	pool := capacity.New(capacity.Reserve(snap.Capacity, e.cfg.Reserve))
	status := report.Status{
		Pass:     e.pass,
		At:       start,
		Targets:  make(map[string]report.TargetStatus, len(snap.Targets)),
		Capacity: pool.Total(),
	}

	candidates := make([]planner.Candidate, 0, len(snap.Targets))
	previous := map[string]*model.OutstandingOrder{}
	for _, t := range snap.Targets {
		eff := e.est.Effective(t, now)
		var outstanding *model.OutstandingOrder
		if o, ok := e.est.Outstanding(t.ID, now); ok {
			outstanding = &o
			previous[t.ID] = outstanding
		}
		class := e.Classifier.Classify(eff, outstanding, now)
		ts := report.TargetStatus{Class: class, Effective: eff.State()}
		if outstanding != nil {
			ts.Outstanding = &report.OrderStatus{ID: outstanding.ID, Anchor: outstanding.Anchor, Deadline: outstanding.Deadline, Estimate: outstanding.Estimate}
		}
		status.Targets[t.ID] = ts
		if class != model.ClassIgnore {
			candidates = append(candidates, planner.Candidate{Target: eff, Class: class})
		}
	}

	result := e.Planner.PlanAll(ctx, candidates, pool)
	for _, plan := range result.Plans {
		out, err := e.Dispatcher.Dispatch(ctx, pool, plan, previous[plan.Target.ID])
		if err != nil {
			logger.Warn("Order aborted.", "target", plan.Target.ID, "class", plan.Class, "error", err)
			e.Metrics.IncOrder(plan.Class.String(), "aborted")
			status.Aborted++
			continue
		}
		e.est.Record(out.Order)
		e.Metrics.IncOrder(plan.Class.String(), "dispatched")
		status.Dispatched++
		status.FailedRequests += len(out.Failed)

		ts := status.Targets[plan.Target.ID]
		ts.Funded = true
		ts.Power = plan.Power
		ts.Cost = plan.Cost()
		ts.Outstanding = &report.OrderStatus{ID: out.Order.ID, Anchor: out.Order.Anchor, Deadline: out.Order.Deadline, Estimate: out.Order.Estimate}
		status.Targets[plan.Target.ID] = ts
	}

	end := e.Clock.Now()
	status.UnusedCapacity = pool.Total()
	status.Duration = end.Sub(start)
	status.Sleep = e.sleepFor(ctx, end)

	e.Metrics.ObservePass(status.Duration)
	e.Metrics.SetCapacity(status.Capacity, status.UnusedCapacity)
	e.Metrics.SetOutstanding(len(e.est.Orders(end)))
	e.Metrics.SetTargets(status.ClassCounts())
	e.Publisher.Publish(ctx, status)
	return status, nil
}

// sleepFor is the time until the earliest outstanding deadline, capped at
// the idle backoff, or the idle backoff when nothing is outstanding.
func (e *Engine) sleepFor(ctx context.Context, now time.Time) time.Duration {
	earliest, ok := e.est.Earliest(now)
	if !ok {
		ctxlog.FromContext(ctx).Info("Scheduler idle.", "sleep", e.cfg.IdleBackoff)
		return e.cfg.IdleBackoff
	}
	d := earliest.Sub(now)
	if d <= 0 {
		d = e.untilNextCycle(now)
	}
	return min(d, e.cfg.IdleBackoff)
}

func (e *Engine) untilNextCycle(now time.Time) time.Duration {
	c := int64(e.cfg.Cycle)
	return time.Duration(c - now.UnixNano()%c)
}

// Outstanding lists the live outstanding orders.
func (e *Engine) Outstanding() []model.OutstandingOrder {
	return e.est.Orders(e.Clock.Now())
}

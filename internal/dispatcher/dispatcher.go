// Package dispatcher turns a funded plan into timed worker requests.
//
// Every order lands on an anchor: the first cycle boundary after the slowest
// stage could possibly finish. Each stage owns a fixed slot inside the cycle
// that starts at the anchor, and its fire delay is chosen so that the stage
// completes exactly in its slot, whatever its own duration.
package dispatcher

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/specialistvlad/familiar/internal/capacity"
	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/metrics"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/pqueue"
	"github.com/specialistvlad/familiar/internal/protocol"
	"github.com/specialistvlad/familiar/internal/transport"
)

// DispatchError reports a request the transport could not hand off. The
// capacity it held is lost for the pass; the rest of the order still goes out.
type DispatchError struct {
	Request protocol.Request
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Request, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher allocates capacity for plans and issues their requests.
type Dispatcher struct {
	cycle     time.Duration
	f         *formulas.Formulas
	clk       clock.Clock
	transport transport.Transport
	metrics   *metrics.Metrics
	newID     func() string
}

// New returns a dispatcher.
func New(cycle time.Duration, f *formulas.Formulas, clk clock.Clock, tr transport.Transport, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cycle:     cycle,
		f:         f,
		clk:       clk,
		transport: tr,
		metrics:   m,
		newID:     uuid.NewString,
	}
}

// Outcome is the result of dispatching one plan.
type Outcome struct {
	Order model.OutstandingOrder
	// Issued counts the requests the transport accepted.
	Issued int
	// Failed holds one error per request the transport rejected.
	Failed []*DispatchError
}

// Anchor is the landing anchor for an order against t issued at now. It is
// the first cycle boundary strictly after now plus the slowest stage, pushed
// by whole cycles until previous lies more than one cycle before it.
func (d *Dispatcher) Anchor(t model.Target, now time.Time, previous *model.OutstandingOrder) time.Time {
	earliest := now.Add(d.f.RoundTrip(t)).UnixNano()
	c := int64(d.cycle)
	anchor := time.Unix(0, earliest-earliest%c+c).In(now.Location())
	if previous != nil {
		for !previous.Deadline.Before(anchor.Add(-d.cycle)) {
			anchor = anchor.Add(d.cycle)
		}
	}
	return anchor
}

// FireDelay is how long after now a stage must start to complete in its slot.
func (d *Dispatcher) FireDelay(t model.Target, s model.Stage, anchor, now time.Time) time.Duration {
	return d.landing(s, anchor).Add(-d.f.StageDuration(t, s)).Sub(now)
}

// landing is the moment stage s completes within the cycle starting at anchor.
func (d *Dispatcher) landing(s model.Stage, anchor time.Time) time.Time {
	return anchor.Add(time.Duration(s.Offset() * float64(d.cycle)))
}

type pending struct {
	stage model.Stage
	land  time.Time
	fire  time.Duration
	req   protocol.Request
}

// issueOrder is landing time, then stage index, then host.
var issueOrder = pqueue.By(
	func(a, b pending) int { return a.land.Compare(b.land) },
	func(a, b pending) int { return cmp.Compare(a.stage, b.stage) },
	func(a, b pending) int { return cmp.Compare(a.req.Host, b.req.Host) },
)

// Dispatch allocates every stage of plan from pool and issues one request
// per allocated block. Allocation is all or nothing: if any stage cannot be
// placed, everything taken for the order is released and the returned error
// wraps capacity.ErrInsufficientCapacity. previous is the target's last
// order, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, pool *capacity.Pool, plan *model.Plan, previous *model.OutstandingOrder) (Outcome, error) {
	logger := ctxlog.FromContext(ctx).With("component", "dispatcher", "target", plan.Target.ID, "class", plan.Class)

	allocated := map[model.Stage][]model.CapacityUnit{}
	release := func() {
		for _, units := range allocated {
			pool.Release(units)
		}
	}
	for _, s := range model.Stages {
		n := plan.Units[s]
		if n <= 0 {
			continue
		}
		mode := capacity.Fragmented
		if s == model.StageReplenish {
			mode = capacity.Coalesced
		}
		units, err := pool.Allocate(n, mode)
		if err != nil {
			release()
			return Outcome{}, fmt.Errorf("allocate %d %s units for %s: %w", n, mode, s, err)
		}
		allocated[s] = units
	}

	now := d.clk.Now()
	anchor := d.Anchor(plan.Target, now, previous)
	order := model.OutstandingOrder{
		ID:       d.newID(),
		TargetID: plan.Target.ID,
		Estimate: plan.Estimate,
		Anchor:   anchor,
		Deadline: anchor.Add(d.cycle),
	}
	logger = logger.With("order", order.ID)

	q := pqueue.New(issueOrder)
	for s, units := range allocated {
		delay := d.FireDelay(plan.Target, s, anchor, now)
		land := d.landing(s, anchor)
		for _, u := range units {
			q.Push(pending{stage: s, land: land, fire: delay, req: protocol.Request{
				Host:  u.Host,
				Units: u.Units,
				Message: protocol.Message{
					OperationKind: s.Kind(),
					TargetID:      plan.Target.ID,
					FireDelay:     delay,
				},
			}})
		}
	}

	out := Outcome{Order: order}
	for q.Len() > 0 {
		p, _ := q.Pop()
		kind := string(p.req.Message.OperationKind)
		if err := d.transport.Issue(ctx, p.req); err != nil {
			derr := &DispatchError{Request: p.req, Err: err}
			logger.Error("Request dispatch failed.", "stage", p.stage, "host", p.req.Host, "error", err)
			d.metrics.IncDispatchError(kind)
			out.Failed = append(out.Failed, derr)
			continue
		}
		logger.Debug("Request issued.", "stage", p.stage, "host", p.req.Host, "units", p.req.Units, "fire_delay", p.fire)
		d.metrics.IncRequest(kind)
		out.Issued++
	}

	logger.Info("Order dispatched.",
		"cost", plan.Cost(),
		"requests", out.Issued,
		"failed", len(out.Failed),
		"anchor", anchor,
		"deadline", order.Deadline,
	)
	return out, nil
}

// Err joins the outcome's dispatch failures, or returns nil.
func (o Outcome) Err() error {
	errs := make([]error, len(o.Failed))
	for i, e := range o.Failed {
		errs[i] = e
	}
	return errors.Join(errs...)
}

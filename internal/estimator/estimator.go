// Package estimator keeps the speculative per-target state between
// confirmations.
//
// While an outstanding order has not reached its deadline, the order's
// projected state supersedes whatever the inventory measures: the batch has
// been issued but its effects have not all landed, so measurement lags the
// truth. Once the deadline passes the record is dropped on the next read and
// live measurement takes over again.
package estimator

import (
	"sort"
	"time"

	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/pqueue"
)

// Estimator owns the outstanding-order records. It is not safe for
// concurrent use; the cycle loop is its only caller.
type Estimator struct {
	byTarget  map[string]*pqueue.Item[model.OutstandingOrder]
	deadlines *pqueue.Queue[model.OutstandingOrder]
}

// New returns an estimator with no outstanding orders.
func New() *Estimator {
	return &Estimator{
		byTarget: make(map[string]*pqueue.Item[model.OutstandingOrder]),
		deadlines: pqueue.New(func(a, b model.OutstandingOrder) bool {
			return a.Deadline.Before(b.Deadline)
		}),
	}
}

// Effective returns t with its projected state if an order for it is still
// live at now, otherwise t unchanged.
func (e *Estimator) Effective(t model.Target, now time.Time) model.Target {
	o, ok := e.Outstanding(t.ID, now)
	if !ok {
		return t
	}
	return t.WithState(o.Estimate)
}

// Outstanding returns the live order for targetID, discarding a stale one.
func (e *Estimator) Outstanding(targetID string, now time.Time) (model.OutstandingOrder, bool) {
	it, ok := e.byTarget[targetID]
	if !ok {
		return model.OutstandingOrder{}, false
	}
	if !it.Value.Live(now) {
		e.forget(targetID)
		return model.OutstandingOrder{}, false
	}
	return it.Value, true
}

// Record stores o, replacing any previous order for the same target.
func (e *Estimator) Record(o model.OutstandingOrder) {
	if it, ok := e.byTarget[o.TargetID]; ok {
		it.Value = o
		e.deadlines.Fix(it)
		return
	}
	e.byTarget[o.TargetID] = e.deadlines.Push(o)
}

// Earliest returns the soonest deadline among live orders.
func (e *Estimator) Earliest(now time.Time) (time.Time, bool) {
	for {
		o, ok := e.deadlines.Peek()
		if !ok {
			return time.Time{}, false
		}
		if o.Live(now) {
			return o.Deadline, true
		}
		e.forget(o.TargetID)
	}
}

// Orders lists the live orders sorted by target id.
func (e *Estimator) Orders(now time.Time) []model.OutstandingOrder {
	out := make([]model.OutstandingOrder, 0, len(e.byTarget))
	for _, it := range e.byTarget {
		if it.Value.Live(now) {
			out = append(out, it.Value)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out
}

// Len is the number of records held, including stale ones not yet read.
func (e *Estimator) Len() int { return len(e.byTarget) }

func (e *Estimator) forget(targetID string) {
	if it, ok := e.byTarget[targetID]; ok {
		e.deadlines.Remove(it)
		delete(e.byTarget, targetID)
	}
}

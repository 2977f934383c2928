// Package sim is a deterministic stand-in for the remote fleet. A World is
// both an inventory source and a transport: requests occupy host capacity
// until their operation lands, and landed operations change target state
// through the same formulas the planner sizes batches with.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/formulas"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/pqueue"
	"github.com/specialistvlad/familiar/internal/protocol"
)

var (
	// ErrNoRoom is returned when a request asks a host for more units than it has free.
	ErrNoRoom = errors.New("host has no room")
	// ErrUnknown is returned for requests naming a host or target the world does not have.
	ErrUnknown = errors.New("unknown host or target")
)

type effect struct {
	at     time.Time
	seq    int
	host   string
	units  int
	kind   model.OperationKind
	target string
}

// World is a simulated fleet. It is safe for concurrent use.
type World struct {
	clk clock.Clock
	f   *formulas.Formulas

	mu        sync.Mutex
	hosts     map[string]int
	targets   map[string]model.Target
	busy      map[string]int
	pending   *pqueue.Queue[effect]
	seq       int
	extracted float64
	landed    map[model.OperationKind]int
}

// NewWorld builds a world from its hosts and targets.
func NewWorld(clk clock.Clock, f *formulas.Formulas, hosts []model.CapacityUnit, targets []model.Target) *World {
	w := &World{
		clk:     clk,
		f:       f,
		hosts:   map[string]int{},
		targets: map[string]model.Target{},
		busy:    map[string]int{},
		landed:  map[model.OperationKind]int{},
		pending: pqueue.New(func(a, b effect) bool {
			if !a.at.Equal(b.at) {
				return a.at.Before(b.at)
			}
			return a.seq < b.seq
		}),
	}
	for _, h := range hosts {
		w.hosts[h.Host] += h.Units
	}
	for _, t := range targets {
		w.targets[t.ID] = t
	}
	return w
}

// Discover implements inventory.Source.
func (w *World) Discover(context.Context) (inventory.Topology, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var topo inventory.Topology
	for h := range w.hosts {
		topo.Hosts = append(topo.Hosts, h)
	}
	for id := range w.targets {
		topo.Targets = append(topo.Targets, id)
	}
	sort.Strings(topo.Hosts)
	sort.Strings(topo.Targets)
	return topo, nil
}

// Measure implements inventory.Source. Every operation that has landed by
// now is applied first.
func (w *World) Measure(_ context.Context, topo inventory.Topology) (inventory.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clk.Now()
	w.settle(now)

	snap := inventory.Snapshot{At: now}
	for _, h := range topo.Hosts {
		if total, ok := w.hosts[h]; ok {
			snap.Capacity = append(snap.Capacity, model.CapacityUnit{Host: h, Units: total - w.busy[h]})
		}
	}
	for _, id := range topo.Targets {
		if t, ok := w.targets[id]; ok {
			snap.Targets = append(snap.Targets, t)
		}
	}
	return snap, nil
}

func (w *World) settle(now time.Time) {
	for {
		e, ok := w.pending.Peek()
		if !ok || e.at.After(now) {
			return
		}
		w.pending.Pop()
		w.busy[e.host] -= e.units
		t := w.targets[e.target]
		before := t.State()
		var after model.State
		switch e.kind {
		case model.Harvest:
			after = w.f.ApplyHarvest(t, before, e.units)
			w.extracted += before.Resource - after.Resource
		case model.Replenish:
			after = w.f.ApplyReplenish(t, before, e.units)
		default:
			after = w.f.ApplySuppress(t, before, e.units)
		}
		w.targets[e.target] = t.WithState(after)
		w.landed[e.kind] += e.units
	}
}

// Issue implements transport.Transport. The request holds its host's units
// from now until the operation lands; its duration is taken from the target
// as it is at issue time.
func (w *World) Issue(_ context.Context, req protocol.Request) error {
	if err := req.Message.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clk.Now()
	w.settle(now)

	total, ok := w.hosts[req.Host]
	t, known := w.targets[req.Message.TargetID]
	if !ok || !known {
		return fmt.Errorf("%w: %s/%s", ErrUnknown, req.Host, req.Message.TargetID)
	}
	if free := total - w.busy[req.Host]; req.Units > free {
		return fmt.Errorf("%w: %s has %d free, asked for %d", ErrNoRoom, req.Host, free, req.Units)
	}
	w.busy[req.Host] += req.Units
	w.seq++
	w.pending.Push(effect{
		at:     now.Add(req.Message.FireDelay + w.f.Duration(t, req.Message.OperationKind)),
		seq:    w.seq,
		host:   req.Host,
		units:  req.Units,
		kind:   req.Message.OperationKind,
		target: t.ID,
	})
	return nil
}

// Close implements transport.Transport.
func (w *World) Close() error { return nil }

// Target returns the current state of a target, applying landed operations.
func (w *World) Target(id string) (model.Target, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settle(w.clk.Now())
	t, ok := w.targets[id]
	return t, ok
}

// AddHost adds capacity; it stays invisible to a catalog until it is reset.
func (w *World) AddHost(host string, units int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hosts[host] += units
}

// Extracted is the total resource harvested so far.
func (w *World) Extracted() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extracted
}

// Landed returns how many units of each operation kind have landed.
func (w *World) Landed() map[model.OperationKind]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[model.OperationKind]int, len(w.landed))
	for k, v := range w.landed {
		out[k] = v
	}
	return out
}

// Pending is the number of operations that have not landed yet.
func (w *World) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.Len()
}

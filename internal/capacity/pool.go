// Package capacity tracks the schedulable units available for one pass,
// partitioned by host.
//
// A Pool is rebuilt from the live inventory every pass and is only touched by
// the cycle loop, so it carries no lock.
package capacity

import (
	"cmp"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/familiar/internal/model"
	"github.com/specialistvlad/familiar/internal/pqueue"
)

// ErrInsufficientCapacity is returned when an allocation cannot be satisfied.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// Mode selects how an allocation may be spread over hosts.
type Mode int

const (
	// Fragmented allocations may be split across any number of hosts.
	Fragmented Mode = iota
	// Coalesced allocations must come from a single host.
	Coalesced
)

func (m Mode) String() string {
	if m == Coalesced {
		return "coalesced"
	}
	return "fragmented"
}

type entry struct {
	host  string
	units int
}

// largestFirst orders hosts by available units, descending, then by name.
var largestFirst = pqueue.By(
	pqueue.Reverse(func(a, b *entry) int { return cmp.Compare(a.units, b.units) }),
	func(a, b *entry) int { return cmp.Compare(a.host, b.host) },
)

// Pool is a multiset of capacity units keyed by host.
type Pool struct {
	q      *pqueue.Queue[*entry]
	byHost map[string]*pqueue.Item[*entry]
	total  int
}

// New builds a pool from a snapshot. Units reported twice for the same host
// are merged; non-positive counts are dropped.
func New(units []model.CapacityUnit) *Pool {
	p := &Pool{
		q:      pqueue.New(largestFirst),
		byHost: make(map[string]*pqueue.Item[*entry]),
	}
	p.Release(units)
	return p
}

// Total is the number of units still available.
func (p *Pool) Total() int { return p.total }

// Largest is the biggest block a single host can still provide.
func (p *Pool) Largest() int {
	top, ok := p.q.Peek()
	if !ok {
		return 0
	}
	return top.units
}

// Units returns the remaining capacity, largest host first.
func (p *Pool) Units() []model.CapacityUnit {
	entries := p.q.Values()
	sort.Slice(entries, func(i, j int) bool { return largestFirst(entries[i], entries[j]) })
	out := make([]model.CapacityUnit, len(entries))
	for i, e := range entries {
		out[i] = model.CapacityUnit{Host: e.host, Units: e.units}
	}
	return out
}

// Allocate takes count units from the pool. Either the whole request is
// satisfied or the pool is left unchanged and ErrInsufficientCapacity is
// returned.
func (p *Pool) Allocate(count int, mode Mode) ([]model.CapacityUnit, error) {
	if count <= 0 {
		return nil, nil
	}
	if mode == Coalesced {
		largest := p.Largest()
		if largest < count {
			return nil, fmt.Errorf("%w: need %d units on one host, largest has %d", ErrInsufficientCapacity, count, largest)
		}
		top, _ := p.q.Peek()
		return []model.CapacityUnit{p.take(top.host, count)}, nil
	}

	var taken []model.CapacityUnit
	remaining := count
	for remaining > 0 {
		top, ok := p.q.Peek()
		if !ok {
			p.Release(taken)
			return nil, fmt.Errorf("%w: need %d units, pool exhausted %d short", ErrInsufficientCapacity, count, remaining)
		}
		n := min(remaining, top.units)
		taken = append(taken, p.take(top.host, n))
		remaining -= n
	}
	return taken, nil
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	return New(p.Units())
}

// Release returns units to the pool, merging them into their host's entry.
func (p *Pool) Release(units []model.CapacityUnit) {
	for _, u := range units {
		if u.Units <= 0 {
			continue
		}
		p.total += u.Units
		if it, ok := p.byHost[u.Host]; ok {
			it.Value.units += u.Units
			p.q.Fix(it)
			continue
		}
		p.byHost[u.Host] = p.q.Push(&entry{host: u.Host, units: u.Units})
	}
}

func (p *Pool) take(host string, n int) model.CapacityUnit {
	it := p.byHost[host]
	it.Value.units -= n
	p.total -= n
	if it.Value.units == 0 {
		p.q.Remove(it)
		delete(p.byHost, host)
	} else {
		p.q.Fix(it)
	}
	return model.CapacityUnit{Host: host, Units: n}
}

// Reserve subtracts per-host reservations from a snapshot, dropping hosts
// left with nothing.
func Reserve(units []model.CapacityUnit, reserved map[string]int) []model.CapacityUnit {
	if len(reserved) == 0 {
		return units
	}
	out := make([]model.CapacityUnit, 0, len(units))
	for _, u := range units {
		u.Units -= reserved[u.Host]
		if u.Units > 0 {
			out = append(out, u)
		}
	}
	return out
}

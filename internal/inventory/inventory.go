// Package inventory supplies the scheduler with the hosts and targets it may
// use. Discovery (which hosts and targets exist) is expensive and cached;
// measurement (how much each host has free, what each target holds) is
// repeated every pass.
package inventory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/model"
)

// Topology is the result of discovery: the IDs of every usable host and target.
type Topology struct {
	Hosts   []string
	Targets []string
}

// Snapshot is one measurement of the discovered topology.
type Snapshot struct {
	At       time.Time
	Capacity []model.CapacityUnit
	Targets  []model.Target
}

// Source discovers and measures hosts and targets.
type Source interface {
	Discover(ctx context.Context) (Topology, error)
	Measure(ctx context.Context, topo Topology) (Snapshot, error)
}

// Catalog caches a Source's topology until Reset is called. It is safe for
// concurrent use: the cycle loop takes snapshots while the reset watcher
// invalidates the cache.
type Catalog struct {
	src Source

	mu   sync.Mutex
	topo *Topology
}

// NewCatalog returns a catalog over src with an empty cache.
func NewCatalog(src Source) *Catalog {
	return &Catalog{src: src}
}

// Snapshot measures the cached topology, discovering it first if needed.
func (c *Catalog) Snapshot(ctx context.Context) (Snapshot, error) {
	topo, err := c.topology(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := c.src.Measure(ctx, topo)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to measure inventory: %w", err)
	}
	return snap, nil
}

func (c *Catalog) topology(ctx context.Context) (Topology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topo != nil {
		return *c.topo, nil
	}
	topo, err := c.src.Discover(ctx)
	if err != nil {
		return Topology{}, fmt.Errorf("failed to discover inventory: %w", err)
	}
	slices.Sort(topo.Hosts)
	slices.Sort(topo.Targets)
	ctxlog.FromContext(ctx).Info("Inventory discovered.", "hosts", len(topo.Hosts), "targets", len(topo.Targets))
	c.topo = &topo
	return topo, nil
}

// Reset drops the cached topology; the next Snapshot rediscovers it.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topo = nil
}

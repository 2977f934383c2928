package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/familiar/internal/config"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/protocol"
	"github.com/specialistvlad/familiar/internal/sim"
	"github.com/specialistvlad/familiar/internal/transport"
	"github.com/specialistvlad/familiar/internal/transport/dry"
	"github.com/specialistvlad/familiar/internal/transport/local"
	"github.com/specialistvlad/familiar/internal/transport/socketio"
)

// backend is where snapshots come from and where requests go.
type backend struct {
	source    inventory.Source
	transport transport.Transport
}

// openBackend builds the inventory source and transport for kind.
func (a *App) openBackend(ctx context.Context, kind string) (backend, error) {
	logger := ctxlog.FromContext(ctx)
	file := inventory.NewFileSource(a.config.Inventory.Path, a.clock)
	t := a.config.Transport
	logger.Debug("Opening transport.", "kind", kind, "inventory", a.config.Inventory.Path)

	switch kind {
	case config.TransportSocketIO:
		tr, err := socketio.Connect(ctx, socketio.Config{
			URL:                t.URL,
			Namespace:          t.Namespace,
			Event:              t.Event,
			InsecureSkipVerify: t.InsecureSkipVerify,
			ConnectTimeout:     t.ConnectTimeout,
		})
		if err != nil {
			return backend{}, fmt.Errorf("failed to open %s transport: %w", kind, err)
		}
		return backend{source: file, transport: tr}, nil
	case config.TransportLocal:
		return backend{source: file, transport: local.New(a.clock, logExecutor)}, nil
	case config.TransportSim:
		world, err := a.seedWorld(ctx, file)
		if err != nil {
			return backend{}, fmt.Errorf("failed to seed simulation: %w", err)
		}
		return backend{source: world, transport: world}, nil
	case config.TransportDry:
		return backend{source: file, transport: dry.New()}, nil
	default:
		return backend{}, fmt.Errorf("unknown transport kind %q", kind)
	}
}

// seedWorld builds a simulated fleet from one reading of the inventory file.
func (a *App) seedWorld(ctx context.Context, src *inventory.FileSource) (*sim.World, error) {
	topo, err := src.Discover(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := src.Measure(ctx, topo)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Simulation seeded.", "hosts", len(snap.Capacity), "targets", len(snap.Targets))
	return sim.NewWorld(a.clock, a.formulas(), snap.Capacity, snap.Targets), nil
}

// logExecutor is the in-process executor for the local transport: the fleet
// lives outside the process, so firing only records the operation.
func logExecutor(ctx context.Context, host string, units int, msg protocol.Message) {
	ctxlog.FromContext(ctx).Info("Operation fired.", "host", host, "units", units, "operation", msg.OperationKind, "target", msg.TargetID)
}

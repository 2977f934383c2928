package app

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/report"
)

// Run drives the scheduler until ctx is done or the loop fails. The HTTP
// server and the reset watcher run alongside it and stop with it.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	var ln net.Listener
	if port := a.config.Server.Port; port > 0 {
		var err error
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", port, err)
		}
	} else {
		a.logger.Warn("Health check server not started: disabled")
	}

	b, err := a.openBackend(ctx, a.config.Transport.Kind)
	if err != nil {
		if ln != nil {
			ln.Close()
		}
		return err
	}
	defer func() {
		if err := b.transport.Close(); err != nil {
			a.logger.Warn("Transport close failed.", "error", err)
		}
	}()

	catalog := inventory.NewCatalog(b.source)
	eng := a.newEngine(catalog, b.transport, report.Publishers{report.Log{}, a.latest})

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return eng.Run(runCtx)
	})
	if ln != nil {
		g.Go(func() error { return a.serve(runCtx, ln) })
	}
	if path := a.config.Inventory.ResetSignal; path != "" {
		g.Go(func() error { return inventory.WatchReset(runCtx, path, catalog) })
	}

	err = g.Wait()
	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

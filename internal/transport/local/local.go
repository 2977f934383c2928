// Package local runs executors in-process.
//
// Each request starts a goroutine that waits out the fire delay on the
// configured clock and then calls the Executor. It is used by the simulator
// and by single-machine deployments where the scheduler and the workers share
// a process.
package local

import (
	"context"
	"sync"

	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/protocol"
	"github.com/specialistvlad/familiar/internal/transport"
)

// Executor performs one operation. units is the size of the executor.
type Executor func(ctx context.Context, host string, units int, msg protocol.Message)

// Transport is an in-process transport.
type Transport struct {
	clk  clock.Clock
	exec Executor

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a transport running exec on clk.
func New(clk clock.Clock, exec Executor) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{clk: clk, exec: exec, ctx: ctx, cancel: cancel}
}

// Issue starts an executor for req and returns immediately. The executor
// outlives ctx; only Close stops pending executors.
func (t *Transport) Issue(ctx context.Context, req protocol.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.ErrClosed
	}

	logger := ctxlog.FromContext(ctx).With("component", "local_executor", "host", req.Host, "target", req.Message.TargetID)
	delay := req.Message.FireDelay
	if delay < 0 {
		logger.Warn("Negative fire delay, firing immediately.", "fire_delay", delay)
		delay = 0
	}
	runCtx := ctxlog.WithLogger(t.ctx, logger)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.clk.Sleep(runCtx, delay); err != nil {
			logger.Debug("Executor cancelled before firing.", "error", err)
			return
		}
		t.exec(runCtx, req.Host, req.Units, req.Message)
	}()
	return nil
}

// Close cancels executors that have not fired yet and waits for the rest.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
	return nil
}

// Wait blocks until every executor started so far has finished.
func (t *Transport) Wait() {
	t.wg.Wait()
}

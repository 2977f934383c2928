// Package transport delivers worker requests to remote executors.
//
// Delivery is fire-and-forget: Issue returns once the request has been handed
// off, never after the executor has run. Implementations live in the
// sub-packages: socketio for remote workers, local for an in-process executor
// and dry for plan-only runs.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/familiar/internal/protocol"
)

// ErrClosed is returned by Issue after Close.
var ErrClosed = errors.New("transport closed")

// Transport hands requests to executors.
type Transport interface {
	Issue(ctx context.Context, req protocol.Request) error
	Close() error
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req protocol.Request) error

// Issue calls f.
func (f Func) Issue(ctx context.Context, req protocol.Request) error { return f(ctx, req) }

// Close is a no-op.
func (f Func) Close() error { return nil }

// Recorder is an in-memory Transport that keeps every request it receives.
// Issue fails with Err when it is set.
type Recorder struct {
	mu       sync.Mutex
	requests []protocol.Request
	Err      func(protocol.Request) error
}

// Issue implements Transport.
func (r *Recorder) Issue(_ context.Context, req protocol.Request) error {
	if r.Err != nil {
		if err := r.Err(req); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

// Close implements Transport.
func (r *Recorder) Close() error { return nil }

// Requests returns a copy of the recorded requests in issue order.
func (r *Recorder) Requests() []protocol.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Request(nil), r.requests...)
}

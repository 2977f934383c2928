// Package socketio delivers requests to remote workers over a socket.io
// connection. Every request is emitted as one event on a single persistent
// client; the worker gateway on the other side starts the executor.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/protocol"
)

// ErrNotConnected is returned by Issue while the client is disconnected.
var ErrNotConnected = errors.New("socket.io client is not connected")

// Config describes the worker gateway.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Transport is a connected socket.io client.
type Transport struct {
	io    *socket.Socket
	event string
}

// endpoint splits a gateway URL into the manager base URL and the socket.io path.
func endpoint(raw string) (base, path string, err error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("URL %q must include scheme and host", raw)
	}
	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), parsed.Path, nil
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect_error without details")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("connect_error: %v", args[0])
}

// Connect dials the gateway and waits until the client is connected, the
// connection fails, ctx is done or the connect timeout elapses.
func Connect(ctx context.Context, cfg Config) (*Transport, error) {
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", cfg.URL)
	logger.Info("Connecting to worker gateway...")

	baseURL, path, err := endpoint(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Event == "" {
		cfg.Event = "order"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if path != "" {
		opts.SetPath(path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(args ...any) {
		connectChan <- connectError(args)
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Warn("Disconnected from worker gateway", "reason", reason)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Transport{io: io, event: cfg.Event}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
}

// Issue emits req on the configured event.
func (t *Transport) Issue(ctx context.Context, req protocol.Request) error {
	if !t.io.Connected() {
		return ErrNotConnected
	}
	ctxlog.FromContext(ctx).Debug("Emitting request", "event", t.event, "request", req.String())
	if err := t.io.Emit(t.event, req); err != nil {
		return fmt.Errorf("emit %q: %w", t.event, err)
	}
	return nil
}

// Close disconnects the client.
func (t *Transport) Close() error {
	t.io.Disconnect()
	return nil
}

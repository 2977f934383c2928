// Package dry provides a transport that only logs what it would send.
package dry

import (
	"context"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/protocol"
)

// Transport logs every request at info level and drops it.
type Transport struct{}

// New returns a dry transport.
func New() *Transport { return &Transport{} }

func (Transport) Issue(ctx context.Context, req protocol.Request) error {
	ctxlog.FromContext(ctx).Info("Dry run, request not sent.",
		"host", req.Host,
		"units", req.Units,
		"kind", req.Message.OperationKind,
		"target", req.Message.TargetID,
		"fire_delay", req.Message.FireDelay,
	)
	return nil
}

func (Transport) Close() error { return nil }

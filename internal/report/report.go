// Package report describes what the scheduler did in a pass and publishes it.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/model"
)

// OrderStatus is the public view of an outstanding order.
type OrderStatus struct {
	ID       string      `json:"id"`
	Anchor   time.Time   `json:"anchor"`
	Deadline time.Time   `json:"deadline"`
	Estimate model.State `json:"estimate"`
}

// TargetStatus is what happened to one target in a pass.
type TargetStatus struct {
	Class       model.Class  `json:"class"`
	Funded      bool         `json:"funded"`
	Power       int          `json:"power,omitempty"`
	Cost        int          `json:"cost,omitempty"`
	Effective   model.State  `json:"effective"`
	Outstanding *OrderStatus `json:"outstanding,omitempty"`
}

// Label renders the status the way operators read it: "Harvest 3 ✔",
// "Suppress ✖" or "Ignore".
func (s TargetStatus) Label() string {
	switch {
	case s.Class == model.ClassIgnore:
		return s.Class.String()
	case !s.Funded:
		return fmt.Sprintf("%s ✖", s.Class)
	case s.Class == model.ClassHarvest:
		return fmt.Sprintf("%s %d ✔", s.Class, s.Power)
	default:
		return fmt.Sprintf("%s ✔", s.Class)
	}
}

// Status is the report of one pass.
type Status struct {
	Pass     uint64                  `json:"pass"`
	At       time.Time               `json:"at"`
	Duration time.Duration           `json:"duration"`
	Targets  map[string]TargetStatus `json:"targets"`
	// Capacity is the pool size at the start of the pass.
	Capacity int `json:"capacity"`
	// UnusedCapacity is what remained after every order was dispatched.
	UnusedCapacity int `json:"unusedCapacity"`
	Dispatched     int `json:"dispatched"`
	Aborted        int `json:"aborted"`
	// FailedRequests counts requests the transport rejected.
	FailedRequests int `json:"failedRequests"`
	// Sleep is how long the loop waits before the next pass.
	Sleep time.Duration `json:"sleep"`
}

// Labels returns every target's label keyed by ID.
func (s Status) Labels() map[string]string {
	out := make(map[string]string, len(s.Targets))
	for id, ts := range s.Targets {
		out[id] = ts.Label()
	}
	return out
}

// ClassCounts counts targets per class.
func (s Status) ClassCounts() map[string]int {
	out := map[string]int{}
	for _, ts := range s.Targets {
		out[ts.Class.String()]++
	}
	return out
}

// Publisher receives a Status at the end of every pass.
type Publisher interface {
	Publish(ctx context.Context, s Status)
}

// Publishers fans a Status out to several publishers in order.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, s Status) {
	for _, p := range ps {
		p.Publish(ctx, s)
	}
}

// Log writes a pass summary at info level and one line per target at debug.
type Log struct{}

// Publish implements Publisher.
func (Log) Publish(ctx context.Context, s Status) {
	logger := ctxlog.FromContext(ctx)
	ids := make([]string, 0, len(s.Targets))
	for id := range s.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ts := s.Targets[id]
		logger.Debug("Target status.", "target", id, "status", ts.Label(), "resource", ts.Effective.Resource, "risk", ts.Effective.Risk)
	}
	logger.Info("Pass complete.",
		"pass", s.Pass,
		"length", s.Duration,
		"targets", len(s.Targets),
		"dispatched", s.Dispatched,
		"aborted", s.Aborted,
		"failed_requests", s.FailedRequests,
		"unused", s.UnusedCapacity,
		"sleep", s.Sleep,
	)
}

// Latest keeps the most recent Status and serves it as JSON.
type Latest struct {
	p atomic.Pointer[Status]
}

// Publish implements Publisher.
func (l *Latest) Publish(_ context.Context, s Status) {
	l.p.Store(&s)
}

// Get returns the latest Status, if any pass has completed.
func (l *Latest) Get() (Status, bool) {
	s := l.p.Load()
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

// ServeHTTP writes the latest Status, or 503 before the first pass.
func (l *Latest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, ok := l.Get()
	if !ok {
		http.Error(w, "no pass completed yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		ctxlog.FromContext(r.Context()).Error("Failed to encode status.", "error", err)
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/inventory"
	"github.com/specialistvlad/familiar/internal/report"
	"github.com/specialistvlad/familiar/internal/transport/dry"
)

// Plan runs one pass against the inventory file without issuing anything
// and writes the outcome as a table.
func (a *App) Plan(ctx context.Context) (report.Status, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	src := inventory.NewFileSource(a.config.Inventory.Path, a.clock)
	eng := a.newEngine(inventory.NewCatalog(src), dry.New(), a.latest)

	status, err := eng.Pass(ctx)
	if err != nil {
		return report.Status{}, fmt.Errorf("plan pass failed: %w", err)
	}
	writeStatus(a.outW, status)
	return status, nil
}

func writeStatus(w io.Writer, s report.Status) {
	ids := make([]string, 0, len(s.Targets))
	for id := range s.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return lipgloss.NewStyle().Padding(0, 1) }).
		Headers("TARGET", "CLASS", "POWER", "COST", "RESOURCE", "RISK", "STATUS")
	for _, id := range ids {
		ts := s.Targets[id]
		t.Row(
			id,
			ts.Class.String(),
			strconv.Itoa(ts.Power),
			strconv.Itoa(ts.Cost),
			strconv.FormatFloat(ts.Effective.Resource, 'f', 0, 64),
			strconv.FormatFloat(ts.Effective.Risk, 'f', 3, 64),
			ts.Label(),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "capacity %d, unused %d, orders %d, aborted %d\n", s.Capacity, s.UnusedCapacity, s.Dispatched, s.Aborted)
}

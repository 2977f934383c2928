// Package engine is the cycle loop: each pass scans the inventory, resolves
// every target's effective state, classifies, plans under one shared budget,
// dispatches, records outstanding orders, reports, and sleeps until the next
// deadline that matters.
//
// The loop runs on a single goroutine and owns the capacity pool, the
// estimator and the planner outright; nothing it touches per pass is shared.
package engine

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import "time"

// OutstandingOrder records a dispatched batch whose effects have not all
// landed yet.
type OutstandingOrder struct {
	ID       string    `json:"id"`
	TargetID string    `json:"targetId"`
	Estimate State     `json:"estimate"`
	Anchor   time.Time `json:"anchor"`
	Deadline time.Time `json:"deadline"`
}

// Live reports whether the order's projection still supersedes measurement at now.
func (o OutstandingOrder) Live(now time.Time) bool {
	return now.Before(o.Deadline)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import "fmt"

// OperationKind is the operation a remote executor performs.
type OperationKind string

const (
	Harvest   OperationKind = "harvest"
	Replenish OperationKind = "replenish"
	Suppress  OperationKind = "suppress"
)

// Valid reports whether k is one of the three known kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case Harvest, Replenish, Suppress:
		return true
	}
	return false
}

// Stage is one timed step of a batch. The numeric order of the constants is
// the order in which the stages land inside a cycle.
type Stage int

const (
	StageReplenish Stage = iota
	StageHarvest
	StageSuppressFirst
	StageSuppressSecond
)

// Stages lists every stage in landing order.
var Stages = []Stage{StageReplenish, StageHarvest, StageSuppressFirst, StageSuppressSecond}

// Kind maps a stage to the operation its executors perform.
func (s Stage) Kind() OperationKind {
	switch s {
	case StageReplenish:
		return Replenish
	case StageHarvest:
		return Harvest
	default:
		return Suppress
	}
}

// Offset is the stage's landing position as a fraction of the cycle.
func (s Stage) Offset() float64 {
	return 0.2 * float64(s+1)
}

func (s Stage) String() string {
	switch s {
	case StageReplenish:
		return "replenish"
	case StageHarvest:
		return "harvest"
	case StageSuppressFirst:
		return "suppress1"
	case StageSuppressSecond:
		return "suppress2"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

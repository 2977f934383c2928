// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import "fmt"

// Class is the action a target is assigned for the current pass.
type Class int

const (
	ClassIgnore Class = iota
	ClassSuppress
	ClassReplenish
	ClassHarvest
)

func (c Class) String() string {
	switch c {
	case ClassIgnore:
		return "Ignore"
	case ClassSuppress:
		return "Suppress"
	case ClassReplenish:
		return "Replenish"
	case ClassHarvest:
		return "Harvest"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// MarshalText renders the class name in JSON and YAML output.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Plan is a sized batch for one target.
type Plan struct {
	Target Target
	Class  Class
	Units  map[Stage]int
	// Estimate is the target state once every stage has landed.
	Estimate State
	// Power is the number of harvest units the search settled on; zero for
	// non-harvest plans.
	Power int
	// Value is the resource the batch expects to extract.
	Value float64
}

// Cost is the total number of capacity units the plan consumes.
func (p *Plan) Cost() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, n := range p.Units {
		total += n
	}
	return total
}

// Label renders the plan the way the status report shows it.
func (p *Plan) Label() string {
	if p.Class == ClassHarvest {
		return fmt.Sprintf("%s %d ✔", p.Class, p.Power)
	}
	return fmt.Sprintf("%s ✔", p.Class)
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

// CapacityUnit is a count of schedulable units available on a single host.
type CapacityUnit struct {
	Host  string `json:"host" yaml:"host"`
	Units int    `json:"units" yaml:"units"`
}

// TotalUnits sums the units of a slice of capacity units.
func TotalUnits(units []CapacityUnit) int {
	total := 0
	for _, u := range units {
		total += u.Units
	}
	return total
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the plain data types shared by every stage of a
// scheduling pass: targets and their (resource, risk) state, capacity units,
// operation stages, plans and the outstanding-order record.
//
// # Core Concepts
//
//   - Target: an external entity exposing an extractable resource and a risk
//     metric. Its State is either measured live or projected by the estimator.
//
//   - CapacityUnit: a number of schedulable units available on one host. The
//     capacity pool is a multiset of these, rebuilt every pass.
//
//   - Stage: one timed step of a batch. Four stages exist (Replenish, Harvest,
//     and two Suppress stages), each mapping to one of three OperationKinds.
//
//   - Plan: how many units of each stage a target's batch needs, plus the state
//     the target is projected to reach once every stage has landed.
//
//   - OutstandingOrder: the only state kept across passes. While it is live the
//     estimator reports its projection instead of the measured state.
//
// The package has no behaviour beyond small helpers; it exists so that the
// planner, dispatcher and engine can exchange values without importing each
// other.
package model

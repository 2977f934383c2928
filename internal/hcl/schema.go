package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Every block may appear in any file; later files override earlier
// ones attribute by attribute.
type fileRoot struct {
	Scheduler []*schedulerBlock `hcl:"scheduler,block"`
	Formulas  []*formulasBlock  `hcl:"formulas,block"`
	Inventory []*inventoryBlock `hcl:"inventory,block"`
	Transport []*transportBlock `hcl:"transport,block"`
	Server    []*serverBlock    `hcl:"server,block"`
}

// Optional attributes are pointers so an unset attribute keeps the default.
// Durations are strings in time.ParseDuration syntax.

type schedulerBlock struct {
	Cycle            *string        `hcl:"cycle,optional"`
	IdleBackoff      *string        `hcl:"idle_backoff,optional"`
	DriftMargin      *float64       `hcl:"drift_margin,optional"`
	DriftLimit       *int           `hcl:"drift_limit,optional"`
	RiskEpsilon      *float64       `hcl:"risk_epsilon,optional"`
	HighFill         *float64       `hcl:"high_fill,optional"`
	MaxDuration      *string        `hcl:"max_duration,optional"`
	SuppressBatchCap *int           `hcl:"suppress_batch_cap,optional"`
	ReplenishStep    *float64       `hcl:"replenish_step,optional"`
	ExtractCap       *float64       `hcl:"extract_cap,optional"`
	Reserve          hcl.Expression `hcl:"reserve,optional"`
}

type formulasBlock struct {
	RiskDecrement     *float64 `hcl:"risk_decrement,optional"`
	HarvestRisk       *float64 `hcl:"harvest_risk,optional"`
	ReplenishRisk     *float64 `hcl:"replenish_risk,optional"`
	ExtractFraction   *float64 `hcl:"extract_fraction,optional"`
	BaseDuration      *string  `hcl:"base_duration,optional"`
	RiskDurationScale *float64 `hcl:"risk_duration_scale,optional"`
}

type inventoryBlock struct {
	Path        *string `hcl:"path,optional"`
	ResetSignal *string `hcl:"reset_signal,optional"`
}

type transportBlock struct {
	Kind               string  `hcl:"kind,label"`
	URL                *string `hcl:"url,optional"`
	Namespace          *string `hcl:"namespace,optional"`
	Event              *string `hcl:"event,optional"`
	InsecureSkipVerify *bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     *string `hcl:"connect_timeout,optional"`
}

type serverBlock struct {
	Port *int `hcl:"port,optional"`
}

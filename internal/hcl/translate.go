package hcl

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/familiar/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

func applyScheduler(dst *config.Scheduler, b *schedulerBlock, evalCtx *hcl.EvalContext) error {
	var err error
	if dst.Cycle, err = duration(b.Cycle, dst.Cycle, "scheduler.cycle"); err != nil {
		return err
	}
	if dst.IdleBackoff, err = duration(b.IdleBackoff, dst.IdleBackoff, "scheduler.idle_backoff"); err != nil {
		return err
	}
	if dst.MaxDuration, err = duration(b.MaxDuration, dst.MaxDuration, "scheduler.max_duration"); err != nil {
		return err
	}
	set(&dst.DriftMargin, b.DriftMargin)
	set(&dst.DriftLimit, b.DriftLimit)
	set(&dst.RiskEpsilon, b.RiskEpsilon)
	set(&dst.HighFill, b.HighFill)
	set(&dst.SuppressBatchCap, b.SuppressBatchCap)
	set(&dst.ReplenishStep, b.ReplenishStep)
	set(&dst.ExtractCap, b.ExtractCap)

	if b.Reserve == nil {
		return nil
	}
	val, diags := b.Reserve.Value(evalCtx)
	if diags.HasErrors() {
		return fmt.Errorf("scheduler.reserve: %w", diags)
	}
	if val.IsNull() {
		return nil
	}
	val, err = convert.Convert(val, cty.Map(cty.Number))
	if err != nil {
		return fmt.Errorf("scheduler.reserve must map host names to units: %w", err)
	}
	var reserve map[string]int
	if err := gocty.FromCtyValue(val, &reserve); err != nil {
		return fmt.Errorf("scheduler.reserve must map host names to whole units: %w", err)
	}
	dst.Reserve = reserve
	return nil
}

func applyFormulas(dst *config.Formulas, b *formulasBlock) error {
	var err error
	if dst.BaseDuration, err = duration(b.BaseDuration, dst.BaseDuration, "formulas.base_duration"); err != nil {
		return err
	}
	set(&dst.RiskDecrement, b.RiskDecrement)
	set(&dst.HarvestRisk, b.HarvestRisk)
	set(&dst.ReplenishRisk, b.ReplenishRisk)
	set(&dst.ExtractFraction, b.ExtractFraction)
	set(&dst.RiskDurationScale, b.RiskDurationScale)
	return nil
}

// applyInventory resolves relative paths against the directory of the file
// that declared them.
func applyInventory(dst *config.Inventory, b *inventoryBlock, dir string) {
	if b.Path != nil {
		dst.Path = relativeTo(dir, *b.Path)
	}
	if b.ResetSignal != nil {
		dst.ResetSignal = relativeTo(dir, *b.ResetSignal)
	}
}

func applyTransport(dst *config.Transport, b *transportBlock) error {
	dst.Kind = b.Kind
	set(&dst.URL, b.URL)
	set(&dst.Namespace, b.Namespace)
	set(&dst.Event, b.Event)
	set(&dst.InsecureSkipVerify, b.InsecureSkipVerify)
	var err error
	dst.ConnectTimeout, err = duration(b.ConnectTimeout, dst.ConnectTimeout, "transport.connect_timeout")
	return err
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func duration(src *string, fallback time.Duration, attr string) (time.Duration, error) {
	if src == nil {
		return fallback, nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", attr, err)
	}
	return d, nil
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Package tuning loads the simulation's numeric configuration from YAML.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type GatherFormula string

const (
	FormulaPowerCurve GatherFormula = "POWER_CURVE"
	FormulaHyperbolic GatherFormula = "HYPERBOLIC"
)

type Tuning struct {
	TickDurationMs   int `yaml:"tick_duration_ms"`
	MaxTicksPerFrame int `yaml:"max_ticks_per_frame"`

	Travel  Travel  `yaml:"travel"`
	Gather  Gather  `yaml:"gather"`
	Skills  Skills  `yaml:"skills"`
	Deposit Deposit `yaml:"deposit"`

	InventorySlots      int     `yaml:"inventory_slots"`
	TravelDistanceScale float64 `yaml:"travel_distance_scale"`
	DecisionLogCapacity int     `yaml:"decision_log_capacity"`
	MacroRecheckTicks   int     `yaml:"macro_recheck_every_ticks"`
	SnapshotEveryTicks  int     `yaml:"snapshot_every_ticks"`
}

type Travel struct {
	BaseSpeed              float64 `yaml:"base_speed"`
	AthleticsSpeedPerLevel float64 `yaml:"athletics_speed_per_level"`
	AthleticsXPPerTick     float64 `yaml:"athletics_xp_per_tick"`
}

type Gather struct {
	GlobalSpeedMultiplier float64       `yaml:"global_speed_multiplier"`
	Formula               GatherFormula `yaml:"formula"`
	PowerCurveExponent    float64       `yaml:"power_curve_exponent"`
	HyperbolicPerLevel    float64       `yaml:"hyperbolic_per_level_factor"`
}

type Skills struct {
	XPPerLevel        float64 `yaml:"xp_per_level"`
	PassionMultiplier float64 `yaml:"passion_multiplier"`
}

type Deposit struct {
	DurationTicks int `yaml:"duration_ticks"`
}

// Default returns the tuning used when no file is supplied, matching the
// bundled demo assets.
func Default() Tuning {
	t := Tuning{}
	t.Normalize()
	return t
}

// Normalize fills zero values with playable defaults. Called after Load so
// a sparse YAML file only overrides what it names.
func (t *Tuning) Normalize() {
	if t.TickDurationMs <= 0 {
		t.TickDurationMs = 600
	}
	if t.MaxTicksPerFrame <= 0 {
		t.MaxTicksPerFrame = 10
	}
	if t.Travel.BaseSpeed <= 0 {
		t.Travel.BaseSpeed = 5
	}
	if t.Travel.AthleticsSpeedPerLevel <= 0 {
		t.Travel.AthleticsSpeedPerLevel = 0.1
	}
	if t.Travel.AthleticsXPPerTick <= 0 {
		t.Travel.AthleticsXPPerTick = 1
	}
	if t.Gather.GlobalSpeedMultiplier <= 0 {
		t.Gather.GlobalSpeedMultiplier = 1
	}
	if t.Gather.Formula == "" {
		t.Gather.Formula = FormulaHyperbolic
	}
	if t.Gather.PowerCurveExponent <= 0 {
		t.Gather.PowerCurveExponent = 0.5
	}
	if t.Gather.HyperbolicPerLevel <= 0 {
		t.Gather.HyperbolicPerLevel = 0.05
	}
	if t.Skills.XPPerLevel <= 0 {
		t.Skills.XPPerLevel = 100
	}
	if t.Skills.PassionMultiplier <= 0 {
		t.Skills.PassionMultiplier = 1.5
	}
	if t.Deposit.DurationTicks <= 0 {
		t.Deposit.DurationTicks = 5
	}
	if t.InventorySlots <= 0 {
		t.InventorySlots = 28
	}
	if t.TravelDistanceScale <= 0 {
		t.TravelDistanceScale = 1
	}
	if t.DecisionLogCapacity <= 0 {
		t.DecisionLogCapacity = 500
	}
	if t.MacroRecheckTicks <= 0 {
		// 0 and 1 both mean "re-evaluate every tick".
		t.MacroRecheckTicks = 1
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 3000
	}
}

// TickSeconds converts the configured tick duration to simulated seconds.
func (t Tuning) TickSeconds() float64 {
	return float64(t.TickDurationMs) / 1000.0
}

func (t Tuning) Validate() error {
	switch t.Gather.Formula {
	case FormulaPowerCurve, FormulaHyperbolic:
	default:
		return fmt.Errorf("tuning: unknown gather formula %q", t.Gather.Formula)
	}
	return nil
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

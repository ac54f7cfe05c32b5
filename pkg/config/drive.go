// Package config loads the optional drive.ini axis-defaults file with
// gopkg.in/ini.v1, the same library the original object-dictionary EDS/INI
// parser used for live device configuration. There is no object dictionary
// here to read defaults from, so this is a small static file read instead:
// CLI flags always take precedence over a value found here.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// AxisDefaults holds the motion-profile and bus-tuning defaults a CLI
// invocation falls back to when a flag was not given explicitly.
type AxisDefaults struct {
	Interface string

	AccelerationDPS2 float64 // degrees/s^2
	MaxVelocityDPS   float64 // degrees/s

	DCSyncToleranceNS   int64
	CycleDeadlineMargin float64 // fraction of cycle time, e.g. 0.1 for 10%

	UnderrunWarnCycles int // consecutive PdoUnderrun cycles before a warning is logged
}

// DefaultAxisDefaults is used when no drive.ini is present.
func DefaultAxisDefaults() AxisDefaults {
	return AxisDefaults{
		AccelerationDPS2:    360,
		MaxVelocityDPS:      180,
		DCSyncToleranceNS:   1_000_000,
		CycleDeadlineMargin: 0.1,
		UnderrunWarnCycles:  50,
	}
}

// LoadAxisDefaults reads path and overlays any keys found onto
// [DefaultAxisDefaults]. A missing file is not an error: the caller gets
// the plain defaults back.
func LoadAxisDefaults(path string) (AxisDefaults, error) {
	defaults := DefaultAxisDefaults()

	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return defaults, fmt.Errorf("config: load %s: %w", path, err)
	}

	sec := cfg.Section("axis")
	defaults.Interface = sec.Key("interface").MustString(defaults.Interface)
	defaults.AccelerationDPS2 = sec.Key("acceleration_dps2").MustFloat64(defaults.AccelerationDPS2)
	defaults.MaxVelocityDPS = sec.Key("max_velocity_dps").MustFloat64(defaults.MaxVelocityDPS)
	defaults.DCSyncToleranceNS = sec.Key("dc_sync_tolerance_ns").MustInt64(defaults.DCSyncToleranceNS)
	defaults.CycleDeadlineMargin = sec.Key("cycle_deadline_margin").MustFloat64(defaults.CycleDeadlineMargin)
	defaults.UnderrunWarnCycles = sec.Key("underrun_warn_cycles").MustInt(defaults.UnderrunWarnCycles)

	return defaults, nil
}

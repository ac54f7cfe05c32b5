package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAxisDefaults_MissingFile(t *testing.T) {
	defaults, err := LoadAxisDefaults(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	require.Equal(t, DefaultAxisDefaults(), defaults)
}

func TestLoadAxisDefaults_OverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.ini")
	contents := "[axis]\n" +
		"interface = eth0\n" +
		"acceleration_dps2 = 720\n" +
		"max_velocity_dps = 90\n" +
		"underrun_warn_cycles = 10\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	defaults, err := LoadAxisDefaults(path)
	require.NoError(t, err)

	require.Equal(t, "eth0", defaults.Interface)
	require.Equal(t, 720.0, defaults.AccelerationDPS2)
	require.Equal(t, 90.0, defaults.MaxVelocityDPS)
	require.Equal(t, 10, defaults.UnderrunWarnCycles)
	// Untouched keys keep their defaults.
	require.Equal(t, DefaultAxisDefaults().DCSyncToleranceNS, defaults.DCSyncToleranceNS)
}

package cia402

import (
	"testing"

	"ecat402/pkg/wire"

	"github.com/stretchr/testify/require"
)

func TestControllerDrivesBringUpSequence(t *testing.T) {
	c := NewController(wire.ModeCSP, nil)

	// Switch-on Disabled -> Shutdown
	r := c.Step(0x0040)
	require.Equal(t, ControlWordShutdown, r.ControlWord)
	require.True(t, r.HoldPosition)
	require.False(t, r.Operational)

	// Ready to Switch On -> Switch On
	r = c.Step(0x0021)
	require.Equal(t, ControlWordSwitchOn, r.ControlWord)
	require.True(t, r.HoldPosition)

	// Switched On -> Enable Operation
	r = c.Step(0x0023)
	require.Equal(t, ControlWordEnableOperation, r.ControlWord)
	require.True(t, r.HoldPosition)

	// Operation Enabled, reached for the first time.
	r = c.Step(0x0027)
	require.True(t, r.Operational)
	require.True(t, r.JustBecameOperational)
	require.False(t, r.HoldPosition)
	require.True(t, c.Operational())
}

func TestControllerTogglesNewSetpointBitInCSPOnly(t *testing.T) {
	c := NewController(wire.ModeCSP, nil)
	r1 := c.Step(0x0027)
	r2 := c.Step(0x0027)
	require.NotEqual(t, r1.ControlWord&newSetpointBit, r2.ControlWord&newSetpointBit)

	cv := NewController(wire.ModeCSV, nil)
	v1 := cv.Step(0x0027)
	v2 := cv.Step(0x0027)
	require.Equal(t, uint16(0), v1.ControlWord&newSetpointBit)
	require.Equal(t, uint16(0), v2.ControlWord&newSetpointBit)
}

func TestControllerFaultHoldsPositionAndSignalsFaultReset(t *testing.T) {
	c := NewController(wire.ModeCSP, nil)
	_ = c.Step(0x0027) // reach operational first

	r := c.Step(0x0008 | 0x27)
	require.True(t, r.FaultDetected)
	require.Equal(t, ControlWordFaultReset, r.ControlWord)
	require.True(t, r.HoldPosition)
	// Operational remains sticky even while faulted.
	require.True(t, r.Operational)
}

func TestControllerJustBecameOperationalOnlyFiresOnce(t *testing.T) {
	c := NewController(wire.ModeCSP, nil)
	r1 := c.Step(0x0027)
	require.True(t, r1.JustBecameOperational)

	r2 := c.Step(0x0027)
	require.False(t, r2.JustBecameOperational)
}

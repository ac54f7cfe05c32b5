package cia402

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyIsPureAndDeterministic(t *testing.T) {
	for sw := 0; sw <= 0xFFFF; sw++ {
		statusWord := uint16(sw)
		first := Classify(statusWord)
		second := Classify(statusWord)
		require.Equal(t, first, second, "classification must be stable for status word 0x%04x", statusWord)
	}
}

func TestClassifyFaultTakesPriority(t *testing.T) {
	// Bit 3 set, but otherwise matching the Operation Enabled mask.
	require.Equal(t, StateFault, Classify(0x0027|0x08))
}

func TestClassifyRecognisedStates(t *testing.T) {
	cases := []struct {
		statusWord uint16
		want       State
	}{
		{0x0040, StateSwitchOnDisabled},
		{0x0021, StateReadyToSwitchOn},
		{0x0023, StateSwitchedOn},
		{0x0027, StateOperationEnabled},
		{0x0008, StateFault},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Classify(c.statusWord), "status word 0x%04x", c.statusWord)
	}
}

func TestClassifyUnrecognisedFallsBackToUnknown(t *testing.T) {
	require.Equal(t, StateUnknown, Classify(0x0000))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "OPERATION-ENABLED", StateOperationEnabled.String())
	require.Equal(t, "UNKNOWN", State(255).String())
}

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputPDORoundTrip(t *testing.T) {
	o := OutputPDO{
		ControlWord:     0x0F,
		TargetPosition:  -123456,
		TargetVelocity:  98765,
		TargetTorque:    -321,
		ModeOfOperation: ModeCSP,
		VelocityOffset:  42,
	}
	buf := make([]byte, OutputPDOSize)
	require.NoError(t, o.Encode(buf))

	got, err := DecodeOutputPDO(buf)
	require.NoError(t, err)
	require.Equal(t, o, got)
}

func TestInputPDORoundTrip(t *testing.T) {
	in := InputPDO{
		StatusWord:             0x1637,
		PositionActual:         2097152,
		VelocityActual:         -500,
		TorqueActual:           17,
		FollowingError:         -3,
		ModeOfOperationDisplay: ModeCSV,
		TouchProbeStatus:       0x0001,
		TouchProbePos1:         999,
	}
	buf := make([]byte, InputPDOSize)
	require.NoError(t, in.Encode(buf))

	got, err := DecodeInputPDO(buf)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestOutputPDOSizeMatchesWireContract(t *testing.T) {
	require.Equal(t, 21, OutputPDOSize)
	var o OutputPDO
	buf := make([]byte, OutputPDOSize)
	require.NoError(t, o.Encode(buf))
}

func TestInputPDOSizeMatchesWireContract(t *testing.T) {
	require.Equal(t, 23, InputPDOSize)
}

func TestEncodeRejectsUndersizedBuffer(t *testing.T) {
	var o OutputPDO
	err := o.Encode(make([]byte, OutputPDOSize-1))
	require.Error(t, err)

	var in InputPDO
	err = in.Encode(make([]byte, InputPDOSize-1))
	require.Error(t, err)
}

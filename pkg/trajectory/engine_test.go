package trajectory

import (
	"testing"

	"ecat402/pkg/wire"

	"github.com/stretchr/testify/require"
)

const dt = 0.002

func runToIdle(t *testing.T, e *Engine, maxCycles int) int {
	t.Helper()
	for i := 0; i < maxCycles; i++ {
		if e.Step() == Idle {
			return i + 1
		}
	}
	t.Fatalf("engine did not reach idle within %d cycles", maxCycles)
	return -1
}

func TestCommitZeroDistanceEntersIdleImmediately(t *testing.T) {
	e := New(wire.ModeCSP, dt, nil)
	require.NoError(t, e.Commit(1000, 1000, 1000, 1000))
	require.Equal(t, Idle, e.Variant())
	require.Equal(t, Idle, e.Step())
}

func TestCommitRejectsNonPositiveAcceleration(t *testing.T) {
	e := New(wire.ModeCSP, dt, nil)
	require.ErrorIs(t, e.Commit(0, 1000, 100, 0), ErrZeroAcceleration)
	require.ErrorIs(t, e.Commit(0, 1000, 100, -5), ErrZeroAcceleration)
}

func TestCommitRejectsNegativeMaxVelocity(t *testing.T) {
	e := New(wire.ModeCSP, dt, nil)
	require.ErrorIs(t, e.Commit(0, 1000, -1, 100), ErrNegativeSpeed)
}

func TestCommitRejectsZeroVelocityForNonZeroMove(t *testing.T) {
	e := New(wire.ModeCSP, dt, nil)
	require.Error(t, e.Commit(0, 1000, 0, 100))
}

func TestFullMoveReachesTargetAndTerminates(t *testing.T) {
	start := int64(0)
	target := DegreesToCounts(360)
	maxVelocity := 180 * wire.CountsPerDegree
	accel := 360 * wire.CountsPerDegree

	e := New(wire.ModeCSP, dt, nil)
	require.NoError(t, e.Commit(start, target, maxVelocity, accel))

	bound := EstimatedCycles(start, target, maxVelocity, accel, dt)
	cycles := runToIdle(t, e, bound)
	require.LessOrEqual(t, cycles, bound)
	require.InDelta(t, float64(target), e.Position(), ToleranceCounts)
	require.Equal(t, int32(0), e.VelocitySetpoint())

	// Passed through every phase at least once.
}

func TestReverseMoveUsesNegativeDirection(t *testing.T) {
	start := DegreesToCounts(90)
	target := int64(0)
	maxVelocity := 90 * wire.CountsPerDegree
	accel := 180 * wire.CountsPerDegree

	e := New(wire.ModeCSP, dt, nil)
	require.NoError(t, e.Commit(start, target, maxVelocity, accel))

	require.Equal(t, Accelerating, e.Step())
	require.Less(t, e.Velocity(), 0.0)

	bound := EstimatedCycles(start, target, maxVelocity, accel, dt)
	runToIdle(t, e, bound)
	require.InDelta(t, float64(target), e.Position(), ToleranceCounts)
}

func TestShortMoveNeverReachesCruising(t *testing.T) {
	start := int64(0)
	target := int64(200) // short enough that braking distance exceeds it before max velocity is reached
	maxVelocity := 180 * wire.CountsPerDegree
	accel := 360 * wire.CountsPerDegree

	e := New(wire.ModeCSP, dt, nil)
	require.NoError(t, e.Commit(start, target, maxVelocity, accel))

	bound := EstimatedCycles(start, target, maxVelocity, accel, dt)
	sawCruising := false
	for i := 0; i < bound; i++ {
		if e.Step() == Cruising {
			sawCruising = true
		}
		if e.Variant() == Idle {
			break
		}
	}
	require.False(t, sawCruising)
	require.Equal(t, Idle, e.Variant())
}

func TestCSVModeProducesVelocitySetpoints(t *testing.T) {
	start := int64(0)
	target := DegreesToCounts(45)
	maxVelocity := 90 * wire.CountsPerDegree
	accel := 360 * wire.CountsPerDegree

	e := New(wire.ModeCSV, dt, nil)
	require.NoError(t, e.Commit(start, target, maxVelocity, accel))

	variant := e.Step()
	require.Equal(t, Accelerating, variant)
	require.Greater(t, e.VelocitySetpoint(), int32(0))
}

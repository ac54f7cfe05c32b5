package realtime

import (
	"testing"

	"ecat402/pkg/cia402"
	"ecat402/pkg/config"
	"ecat402/pkg/fieldbus"
	"ecat402/pkg/fieldbus/simulated"
	"ecat402/pkg/trajectory"
	"ecat402/pkg/wire"

	"github.com/stretchr/testify/require"
)

func newBoundSession(t *testing.T) (*fieldbus.Session, *simulated.Link) {
	t.Helper()
	link := simulated.New()
	link.SetDCSyncAfter(1)

	session := fieldbus.NewSession(link, nil)
	require.NoError(t, session.Initialise("vtest0"))
	_, err := session.EnumerateAndMap()
	require.NoError(t, err)
	require.NoError(t, session.ConfigureDistributedClocks())
	session.ComputeExpectedWKC()
	return session, link
}

func newLoopForTest(session *fieldbus.Session, status *SharedStatus, move Move) *Loop {
	controller := cia402.NewController(wire.ModeCSP, nil)
	engine := trajectory.New(wire.ModeCSP, wire.CycleTime.Seconds(), nil)
	defaults := config.DefaultAxisDefaults()
	return NewLoop(session, controller, engine, status, wire.ModeCSP, move, defaults.DCSyncToleranceNS, defaults.CycleDeadlineMargin, nil)
}

func TestLoopBringsUpBusAndDrive(t *testing.T) {
	session, _ := newBoundSession(t)
	status := &SharedStatus{}
	move := Move{DeltaCounts: trajectory.DegreesToCounts(10), MaxVelocityCps: 180 * wire.CountsPerDegree, AccelerationCps2: 360 * wire.CountsPerDegree}
	loop := newLoopForTest(session, status, move)

	var becameOperational bool
	for i := 0; i < 50 && !status.DriveOperational.Load(); i++ {
		require.NoError(t, loop.Step())
		if status.DriveOperational.Load() {
			becameOperational = true
		}
	}
	require.True(t, becameOperational)
	require.True(t, status.BusOperational.Load())
}

func TestLoopHoldsTargetAtActualWhileNotOperational(t *testing.T) {
	session, _ := newBoundSession(t)
	status := &SharedStatus{}
	move := Move{DeltaCounts: 1000, MaxVelocityCps: 1000, AccelerationCps2: 1000}
	loop := newLoopForTest(session, status, move)

	// First cycle: bus is not yet operational (the cycle that first sees DC
	// synced does not request OP yet).
	require.NoError(t, loop.Step())
	require.False(t, status.BusOperational.Load())

	out, err := wire.DecodeOutputPDO(session.OutputPDO(1))
	require.NoError(t, err)
	require.Equal(t, status.ActualPosition.Load(), out.TargetPosition)
}

func TestLoopFaultProducesFaultResetControlWord(t *testing.T) {
	session, link := newBoundSession(t)
	status := &SharedStatus{}
	move := Move{DeltaCounts: 1000, MaxVelocityCps: 1000, AccelerationCps2: 1000}
	loop := newLoopForTest(session, status, move)

	for i := 0; i < 50 && !status.DriveOperational.Load(); i++ {
		require.NoError(t, loop.Step())
	}
	require.True(t, status.DriveOperational.Load())

	link.InjectFault(true)
	require.NoError(t, loop.Step())
	require.True(t, status.FaultDetected.Load())
	require.Equal(t, uint32(cia402.ControlWordFaultReset), status.ControlWord.Load())
}

func TestLoopStepErrorsWhenPdoUnmapped(t *testing.T) {
	link := simulated.New()
	session := fieldbus.NewSession(link, nil)
	status := &SharedStatus{}
	loop := newLoopForTest(session, status, Move{})
	require.Error(t, loop.Step())
}

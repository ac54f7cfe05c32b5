package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"ecat402/pkg/config"
	"ecat402/pkg/fieldbus/simulated"
	"ecat402/pkg/realtime"
	"ecat402/pkg/wire"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSupervisorBringUpReachesSafeOp(t *testing.T) {
	link := simulated.New()
	link.SetDCSyncAfter(1)
	move := realtime.Move{DeltaCounts: 1000, MaxVelocityCps: 1000, AccelerationCps2: 1000}
	sv := New(link, wire.ModeCSP, move, config.DefaultAxisDefaults(), quietLogger())

	require.NoError(t, sv.BringUp("vtest0"))
}

func TestSupervisorRunReachesDriveOperationalAndStopsOnCancel(t *testing.T) {
	link := simulated.New()
	link.SetDCSyncAfter(1)
	move := realtime.Move{DeltaCounts: int64(10 * wire.CountsPerDegree), MaxVelocityCps: 180 * wire.CountsPerDegree, AccelerationCps2: 360 * wire.CountsPerDegree}
	sv := New(link, wire.ModeCSP, move, config.DefaultAxisDefaults(), quietLogger())

	require.NoError(t, sv.BringUp("vtest0"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sv.Run(ctx)
	require.NoError(t, err)
	require.True(t, sv.Status.DriveOperational.Load())
}

func TestDiagnosticsBringUpReachesPreOp(t *testing.T) {
	link := simulated.New()
	d := NewDiagnostics(link, quietLogger())
	require.NoError(t, d.BringUp("vtest0"))
	require.NoError(t, d.Close())
}

func TestDiagnosticsReadWriteObjectRoundTrip(t *testing.T) {
	link := simulated.New()
	d := NewDiagnostics(link, quietLogger())
	require.NoError(t, d.BringUp("vtest0"))

	require.NoError(t, d.WriteObject(0x6060, 0, 8, 8))
	v, err := d.ReadObject(0x6060, 0, 8)
	require.NoError(t, err)
	require.Equal(t, uint32(8), v)
}

func TestDiagnosticsFaultReset(t *testing.T) {
	link := simulated.New()
	d := NewDiagnostics(link, quietLogger())
	require.NoError(t, d.BringUp("vtest0"))
	require.NoError(t, d.FaultReset())
}

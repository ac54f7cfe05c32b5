// Package realtime implements the cyclic send/receive loop that enforces
// the 2ms deadline and sequences the fieldbus session, the CiA 402 drive
// controller and the trajectory engine each cycle, plus the atomic
// shared-state struct the non-realtime Supervisor reads for reporting. The
// ticker-driven background/main split in pkg/node.NodeProcessor is the
// closest analogue this loop was grown from; this loop generalises it to a
// single absolute-deadline cycle instead of two independent tickers, since
// one strictly sequenced body is required rather than concurrent
// background/main phases.
package realtime

import (
	"sync/atomic"

	"ecat402/pkg/trajectory"
)

// SharedStatus is the fixed set of atomic scalars that forms the only
// channel between the Supervisor and the realtime loop. The realtime loop
// is the sole writer of every field here except LastErrorCode and the Stop
// flag, written by the Supervisor (see DESIGN.md for why LastErrorCode is
// an exception to the "status fields are realtime-written" rule: its only
// source is an SDO read, which may block longer than one cycle and so can
// never run on the realtime thread).
type SharedStatus struct {
	BusOperational   atomic.Bool
	DriveOperational atomic.Bool
	FaultDetected    atomic.Bool
	StatusWord       atomic.Uint32
	ControlWord      atomic.Uint32
	ActualPosition   atomic.Int32
	ActualVelocity   atomic.Int32

	// LastErrorCode is written by the Supervisor after an acyclic SDO read
	// of object 0x3C13:0x84, triggered the first time FaultDetected is
	// observed true.
	LastErrorCode atomic.Uint32

	// TargetPositionCounts is the absolute target committed to the
	// trajectory engine, written once by the realtime loop when the drive
	// first becomes operational, and read by the Supervisor for reporting.
	TargetPositionCounts atomic.Int64

	// MotionVariant mirrors the trajectory engine's current phase.
	MotionVariant atomic.Int32

	// UnderrunStreak counts consecutive cycles for which PdoUnderrun
	// reported true, reset to zero the first cycle the working counter is
	// back to expected. The Supervisor turns a sustained streak into a
	// logged warning; a single underrun is never fatal on its own.
	UnderrunStreak atomic.Uint32

	// CycleOverruns counts cycles whose actual wake-up time missed its
	// absolute deadline by more than the configured cycle deadline margin.
	// Never fatal; the Supervisor surfaces it in periodic status reporting.
	CycleOverruns atomic.Uint32

	// Stop is the single process-wide cooperative shutdown flag
	// set by the Supervisor's signal handler or an error path, checked
	// once per iteration by both threads.
	Stop atomic.Bool
}

// Variant reads the current trajectory phase.
func (s *SharedStatus) Variant() trajectory.Variant {
	return trajectory.Variant(s.MotionVariant.Load())
}

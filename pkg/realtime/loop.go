package realtime

import (
	"fmt"
	"time"

	"ecat402/pkg/cia402"
	"ecat402/pkg/fieldbus"
	"ecat402/pkg/trajectory"
	"ecat402/pkg/wire"
)

// slaveID is the only slave this single-axis core ever addresses.
const slaveID uint16 = 1

// Move is the profile committed once for the lifetime of a Loop: a single
// CLI invocation names exactly one move, so unlike the status fields these
// parameters need no cross-thread atomics — they are set before Run and
// never touched again (see DESIGN.md).
type Move struct {
	// DeltaCounts is the signed distance from the drive's measured position
	// at the moment Operation Enabled is reached to the commanded target.
	DeltaCounts        int64
	MaxVelocityCps     float64
	AccelerationCps2   float64
}

// Loop is the realtime cyclic thread: enforce the 2ms deadline and
// sequence (send) -> (receive) -> (snapshot) -> (advance) -> (sleep). It
// never logs and never performs SDO.
type Loop struct {
	session    *fieldbus.Session
	controller *cia402.Controller
	engine     *trajectory.Engine
	status     *SharedStatus
	sleeper    Sleeper

	mode      int8
	cycleTime time.Duration
	move      Move

	// dcSyncToleranceNS is the minimum [fieldbus.SlaveInfo.DCTime] reading
	// that is trusted as a settled distributed-clock lock, from
	// drive.ini's dc_sync_tolerance_ns.
	dcSyncToleranceNS int64

	// cycleDeadlineMargin is the fraction of cycleTime a wake-up may run
	// late before it is counted as a deadline overrun, from drive.ini's
	// cycle_deadline_margin. Zero disables overrun counting.
	cycleDeadlineMargin float64

	dcSynced  bool
	opRequest bool
	committed bool
}

// NewLoop wires the three components together. sleeper may be nil, in
// which case [RealSleeper] is used.
func NewLoop(
	session *fieldbus.Session,
	controller *cia402.Controller,
	engine *trajectory.Engine,
	status *SharedStatus,
	mode int8,
	move Move,
	dcSyncToleranceNS int64,
	cycleDeadlineMargin float64,
	sleeper Sleeper,
) *Loop {
	if sleeper == nil {
		sleeper = RealSleeper
	}
	return &Loop{
		session:             session,
		controller:          controller,
		engine:              engine,
		status:              status,
		sleeper:             sleeper,
		mode:                mode,
		cycleTime:           wire.CycleTime,
		move:                move,
		dcSyncToleranceNS:   dcSyncToleranceNS,
		cycleDeadlineMargin: cycleDeadlineMargin,
	}
}

// Run executes the cyclic loop until the stop flag is set or a fatal
// realtime error occurs. It always leaves the output PDO at its last valid
// value before returning.
func (l *Loop) Run() error {
	start := time.Now()
	marginWindow := time.Duration(l.cycleDeadlineMargin * float64(l.cycleTime))
	for n := int64(0); ; n++ {
		deadline := start.Add(time.Duration(n) * l.cycleTime)
		l.sleeper.SleepUntil(deadline)

		if marginWindow > 0 && time.Now().After(deadline.Add(marginWindow)) {
			l.status.CycleOverruns.Add(1)
		}

		if l.status.Stop.Load() {
			return nil
		}
		if err := l.Step(); err != nil {
			l.status.Stop.Store(true)
			return err
		}
	}
}

// Step runs exactly one cycle body: send, receive, snapshot, advance. It is
// exported so tests can drive the loop cycle-by-cycle without real sleeps.
func (l *Loop) Step() error {
	out := l.session.OutputPDO(slaveID)
	in := l.session.InputPDO(slaveID)
	if out == nil || in == nil {
		return fmt.Errorf("realtime: pdo not mapped for slave %d", slaveID)
	}

	if err := l.session.SendPDO(); err != nil {
		return fmt.Errorf("realtime: send pdo: %w", err)
	}
	wkc, err := l.session.ReceivePDO(fieldbus.DefaultReceiveTimeout)
	if err != nil {
		return fmt.Errorf("realtime: receive pdo: %w", err)
	}
	if l.session.PdoUnderrun(wkc) {
		l.status.UnderrunStreak.Add(1)
	} else {
		l.status.UnderrunStreak.Store(0)
	}

	input, err := wire.DecodeInputPDO(in)
	if err != nil {
		return fmt.Errorf("realtime: decode input pdo: %w", err)
	}
	l.status.StatusWord.Store(uint32(input.StatusWord))
	l.status.ActualPosition.Store(input.PositionActual)
	l.status.ActualVelocity.Store(input.VelocityActual)

	output := wire.OutputPDO{ModeOfOperation: l.mode}

	if !l.status.BusOperational.Load() {
		if err := l.advanceBusBringup(); err != nil {
			return err
		}
		output.TargetPosition = input.PositionActual
	} else {
		result := l.controller.Step(input.StatusWord)
		output.ControlWord = result.ControlWord
		l.status.FaultDetected.Store(result.FaultDetected)

		if result.JustBecameOperational {
			target := input.PositionActual + int32(l.move.DeltaCounts)
			if err := l.engine.Commit(int64(input.PositionActual), int64(target), l.move.MaxVelocityCps, l.move.AccelerationCps2); err != nil {
				return fmt.Errorf("realtime: commit trajectory: %w", err)
			}
			l.committed = true
			l.status.DriveOperational.Store(true)
			l.status.TargetPositionCounts.Store(int64(target))
		}

		if result.HoldPosition || !l.committed {
			output.TargetPosition = input.PositionActual
		} else {
			variant := l.engine.Step()
			l.status.MotionVariant.Store(int32(variant))
			switch l.mode {
			case wire.ModeCSV:
				if variant == trajectory.Idle {
					output.TargetVelocity = 0
				} else {
					output.TargetVelocity = l.engine.VelocitySetpoint()
				}
				output.TargetPosition = input.PositionActual
			default: // CSP
				if variant == trajectory.Idle {
					output.TargetPosition = input.PositionActual
				} else {
					output.TargetPosition = l.engine.PositionSetpoint()
				}
			}
		}
	}

	l.status.ControlWord.Store(uint32(output.ControlWord))
	return output.Encode(out)
}

// advanceBusBringup continues bus bring-up from inside the realtime loop:
// wait for DC sync, request OPERATIONAL once, poll for it, and detect AL
// ERROR.
func (l *Loop) advanceBusBringup() error {
	slave := l.session.Slave(slaveID)

	if slave.State&fieldbus.StateError != 0 {
		return fmt.Errorf("%w: %s", fieldbus.ErrSlaveError, fieldbus.ALStatusString(slave.ALStatusCode))
	}

	if !l.dcSynced {
		if slave.HasDC && slave.DCTime >= l.dcSyncToleranceNS {
			l.dcSynced = true
		}
		return nil
	}

	if !l.opRequest {
		if err := l.session.RequestState(slaveID, fieldbus.StateOp); err != nil {
			return fmt.Errorf("realtime: request operational: %w", err)
		}
		l.opRequest = true
	}

	state := l.session.ReadState(slaveID)
	if state&fieldbus.StateError != 0 {
		return fmt.Errorf("%w: %s", fieldbus.ErrSlaveError, fieldbus.ALStatusString(slave.ALStatusCode))
	}
	if state&^fieldbus.StateError == fieldbus.StateOp {
		l.status.BusOperational.Store(true)
	}
	return nil
}

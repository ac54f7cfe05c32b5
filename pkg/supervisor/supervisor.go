// Package supervisor is the non-realtime surface: pre-realtime bus bring-up,
// starting the realtime loop, periodic status reporting, fault-code lookup,
// and cooperative shutdown. It never touches PDO memory directly, following
// cmd/canopen's own INIT/RUNNING/RESETING state-machine shape, generalised
// to this core's two-thread split.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ecat402/pkg/cia402"
	"ecat402/pkg/config"
	"ecat402/pkg/fieldbus"
	"ecat402/pkg/realtime"
	"ecat402/pkg/trajectory"
	"ecat402/pkg/wire"
)

const slaveID uint16 = 1

// bringUpTimeout bounds how long after the bus is first seen in OP the
// Supervisor waits to see the drive reach Operation Enabled.
const bringUpTimeout = 5 * time.Second

// safeOpTimeout bounds the pre-realtime AL state transition request.
const safeOpTimeout = 3 * time.Second

const sdoTimeout = 50 * time.Millisecond

// CiA 402 / driver object indices this core's SDO surface touches.
const (
	objControlWord     uint16 = 0x6040
	objStatusWord      uint16 = 0x6041
	objModeOfOperation uint16 = 0x6060
	objLastErrorCode   uint16 = 0x3C13
	subLastErrorCode   uint8  = 0x84
	subDriverStatus    uint8  = 0xD5
)

// Supervisor owns a bus session and the realtime loop built on top of it.
type Supervisor struct {
	Session *fieldbus.Session
	Status  *realtime.SharedStatus
	loop    *realtime.Loop
	logger  *logrus.Logger
	mode    int8

	underrunWarnCycles uint32
}

// New wires a Supervisor around the given Link implementation. logger may
// be nil, in which case logrus.StandardLogger() is used. defaults supplies
// the drive.ini-sourced tuning knobs: the DC sync tolerance and cycle
// deadline margin are threaded into the realtime loop, and
// UnderrunWarnCycles is the number of consecutive PdoUnderrun cycles that
// triggers a logged warning (values <= 0 disable the warning).
func New(link fieldbus.Link, mode int8, move realtime.Move, defaults config.AxisDefaults, logger *logrus.Logger) *Supervisor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	status := &realtime.SharedStatus{}
	session := fieldbus.NewSession(link, nil)
	controller := cia402.NewController(mode, nil)
	engine := trajectory.New(mode, wire.CycleTime.Seconds(), nil)
	loop := realtime.NewLoop(session, controller, engine, status, mode, move, defaults.DCSyncToleranceNS, defaults.CycleDeadlineMargin, nil)

	var warnCycles uint32
	if defaults.UnderrunWarnCycles > 0 {
		warnCycles = uint32(defaults.UnderrunWarnCycles)
	}

	return &Supervisor{
		Session:            session,
		Status:             status,
		loop:               loop,
		logger:             logger,
		mode:               mode,
		underrunWarnCycles: warnCycles,
	}
}

// BringUp performs the pre-realtime bring-up sequence: bind the interface,
// enumerate and map slaves, set the mode of operation, configure distributed
// clocks, compute the expected working counter, and request SAFE-OP.
func (sv *Supervisor) BringUp(ifname string) error {
	if err := sv.Session.Initialise(ifname); err != nil {
		return err
	}
	count, err := sv.Session.EnumerateAndMap()
	if err != nil {
		return err
	}
	sv.logger.WithField("slaves", count).Info("slaves enumerated and mapped")

	modeBuf := []byte{byte(sv.mode)}
	if err := sv.Session.SdoWrite(slaveID, objModeOfOperation, 0, modeBuf, sdoTimeout); err != nil {
		return fmt.Errorf("supervisor: set mode of operation: %w", err)
	}

	if err := sv.Session.ConfigureDistributedClocks(); err != nil {
		return fmt.Errorf("supervisor: configure distributed clocks: %w", err)
	}
	sv.Session.ComputeExpectedWKC()

	if err := sv.Session.RequestState(0, fieldbus.StateSafeOp); err != nil {
		return fmt.Errorf("supervisor: request safe-op: %w", err)
	}
	if _, err := sv.Session.CheckState(slaveID, fieldbus.StateSafeOp, safeOpTimeout); err != nil {
		return err
	}
	sv.logger.Info("bus reached safe-op")
	return nil
}

// Run starts the realtime loop and supervises it until completion: it polls
// status every 100ms, reports a newly observed fault's error code, applies
// the drive bring-up timeout, and reacts to SIGINT by requesting a clean
// shutdown. It returns once the loop has stopped and the bus has been
// returned to INIT.
func (sv *Supervisor) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	loopErr := make(chan error, 1)
	go func() { loopErr <- sv.loop.Run() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var opDeadline time.Time
	faultReported := false
	underrunReported := false

	var finalErr error
loop:
	for {
		select {
		case err := <-loopErr:
			if err != nil {
				finalErr = err
			}
			break loop
		case <-ctx.Done():
			sv.Status.Stop.Store(true)
		case <-sigCh:
			sv.logger.Info("interrupt received, shutting down")
			sv.Status.Stop.Store(true)
		case <-ticker.C:
			sv.reportStatus()

			if sv.Status.BusOperational.Load() && opDeadline.IsZero() {
				opDeadline = time.Now().Add(bringUpTimeout)
			}
			if sv.Status.FaultDetected.Load() && !faultReported {
				faultReported = true
				sv.reportLastErrorCode()
			}
			streak := sv.Status.UnderrunStreak.Load()
			if sv.underrunWarnCycles > 0 && streak >= sv.underrunWarnCycles && !underrunReported {
				underrunReported = true
				sv.logger.WithField("cycles", streak).Warn("sustained pdo underrun")
			} else if streak == 0 {
				underrunReported = false
			}
			if !sv.Status.DriveOperational.Load() && !opDeadline.IsZero() && time.Now().After(opDeadline) {
				sv.logger.Error("drive did not reach operation enabled before timeout")
				sv.Status.Stop.Store(true)
				finalErr = cia402.ErrDriveTimeout
			}
		}
	}

	if err := sv.Session.Close(); err != nil {
		sv.logger.WithError(err).Warn("error closing bus session")
	}
	return finalErr
}

func (sv *Supervisor) reportStatus() {
	sv.logger.WithFields(logrus.Fields{
		"bus_operational":   sv.Status.BusOperational.Load(),
		"drive_operational": sv.Status.DriveOperational.Load(),
		"fault":             sv.Status.FaultDetected.Load(),
		"status_word":       fmt.Sprintf("x%04x", sv.Status.StatusWord.Load()),
		"position":          sv.Status.ActualPosition.Load(),
		"velocity":          sv.Status.ActualVelocity.Load(),
		"variant":           trajectory.Variant(sv.Status.MotionVariant.Load()),
		"cycle_overruns":    sv.Status.CycleOverruns.Load(),
	}).Info("status")
}

func (sv *Supervisor) reportLastErrorCode() {
	buf := make([]byte, 2)
	n, err := sv.Session.SdoRead(slaveID, objLastErrorCode, subLastErrorCode, buf, sdoTimeout)
	if err != nil {
		sv.logger.WithError(err).Warn("failed to read drive error code")
		return
	}
	code := uint16(0)
	for i := n - 1; i >= 0; i-- {
		code = code<<8 | uint16(buf[i])
	}
	sv.Status.LastErrorCode.Store(uint32(code))
	sv.logger.WithField("error_code", cia402.ErrorCodeString(code)).Warn("drive fault detected")
}

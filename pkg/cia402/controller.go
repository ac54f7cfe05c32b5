package cia402

import (
	"log/slog"

	"ecat402/pkg/wire"
)

// Result is what [Controller.Step] computes for one cycle: the control word
// to write before the next send, and enough state for the realtime loop to
// decide what the trajectory engine should do.
type Result struct {
	ControlWord uint16
	State       State

	// FaultDetected mirrors the drive's fault bit this cycle.
	FaultDetected bool

	// Operational is sticky: once Operation-Enabled has been reached it
	// stays true even if the controller later observes a transient
	// re-classification (the drive itself would fault out explicitly).
	Operational bool

	// JustBecameOperational is true exactly once, the cycle Operation
	// Enabled is first reached, so the caller can seed the trajectory
	// engine's modelled position from position_actual.
	JustBecameOperational bool

	// HoldPosition is true whenever the controller wants the engine/loop
	// to echo position_actual back as target_position rather than run the
	// trajectory engine, covering both "in fault" and "still transitioning":
	// target must track actual whenever the drive is not yet operational.
	HoldPosition bool
}

// Controller drives one CiA 402 drive's power state machine toward
// Operation Enabled and holds it there, classifying the status word and
// emitting the matching control word each cycle. It also owns the CSP
// new-setpoint toggle bit.
type Controller struct {
	logger *slog.Logger
	mode   int8 // wire.ModeCSP or wire.ModeCSV

	operational bool
	toggle      bool
}

// NewController creates a Controller for the given CiA 402 mode of
// operation. logger may be nil, in which case slog.Default() is used.
func NewController(mode int8, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger: logger.With("service", "cia402"),
		mode:   mode,
	}
}

// Operational reports whether Operation Enabled has ever been reached.
func (c *Controller) Operational() bool {
	return c.operational
}

// Step computes, from the status word freshly read this cycle, the control
// word to write before the next send.
func (c *Controller) Step(statusWord uint16) Result {
	state := Classify(statusWord)

	if state == StateFault {
		c.logger.Debug("drive fault detected", "status_word", statusWord)
		return Result{
			ControlWord:   ControlWordFaultReset,
			State:         state,
			FaultDetected: true,
			Operational:   c.operational,
			HoldPosition:  true,
		}
	}

	if state != StateOperationEnabled {
		// Transitioning: not yet enabled, so hold the drive at its current
		// position and do not touch the sticky operational flag.
		cw, recognised := baseControlWordFor(state)
		if !recognised {
			// Unrecognised status-word bit pattern: fall back to Shutdown,
			// the first step of the standard bring-up sequence, rather than
			// emitting a stale control word.
			cw = ControlWordShutdown
		}
		return Result{
			ControlWord:  cw,
			State:        state,
			Operational:  c.operational,
			HoldPosition: true,
		}
	}

	justBecame := !c.operational
	if justBecame {
		c.operational = true
		c.logger.Info("drive reached operation enabled")
	}

	cw := ControlWordEnableOperation
	if c.mode == wire.ModeCSP {
		c.toggle = !c.toggle
		if c.toggle {
			cw |= newSetpointBit
		}
	}

	return Result{
		ControlWord:           cw,
		State:                 state,
		Operational:           true,
		JustBecameOperational: justBecame,
	}
}

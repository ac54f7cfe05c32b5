// Package trajectory implements the trapezoidal motion profiler: given a
// target position, maximum velocity and acceleration committed once per
// move, it produces one position or velocity setpoint per 2ms cycle,
// advancing through Accelerating -> Cruising -> Decelerating -> Idle and
// terminating deterministically within a tolerance band of the target.
//
// The engine is open-loop against the drive's own position loop: it only
// reads the measured position once, at commit, to seed the model. Per-cycle
// work is a fixed handful of float64 operations — no allocation, no
// recursion — so it is safe to call from the realtime loop.
package trajectory

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"ecat402/pkg/wire"
)

// ToleranceCounts is the distance band within which the engine considers a
// Decelerating move to have arrived.
const ToleranceCounts = 100.0

// Variant is the trajectory state-machine's current phase.
type Variant uint8

const (
	Idle Variant = iota
	Accelerating
	Cruising
	Decelerating
)

func (v Variant) String() string {
	switch v {
	case Idle:
		return "IDLE"
	case Accelerating:
		return "ACCELERATING"
	case Cruising:
		return "CRUISING"
	case Decelerating:
		return "DECELERATING"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrZeroAcceleration = errors.New("trajectory: acceleration must be positive")
	ErrNegativeSpeed    = errors.New("trajectory: max velocity must not be negative")
)

// Engine is a single-axis trapezoidal trajectory profiler. Zero value is not
// usable; create with [New].
type Engine struct {
	logger *slog.Logger
	mode   int8 // wire.ModeCSP or wire.ModeCSV
	dt     float64

	target       float64
	maxVelocity  float64
	acceleration float64
	direction    float64

	position float64
	velocity float64
	variant  Variant
}

// New creates an Engine for the given CiA 402 mode and fixed cycle time.
// logger may be nil, in which case slog.Default() is used.
func New(mode int8, cycleTimeSeconds float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With("service", "trajectory"),
		mode:   mode,
		dt:     cycleTimeSeconds,
	}
}

// Variant returns the engine's current phase.
func (e *Engine) Variant() Variant { return e.variant }

// Commit starts a new move from startCounts to targetCounts at the given
// velocity/acceleration limits. Direction is derived from
// sign(target-start); the engine does not plan reversals within one move.
// Zero distance commits directly to Idle. Zero or negative
// acceleration, or negative max velocity, are rejected.
func (e *Engine) Commit(startCounts, targetCounts int64, maxVelocity, acceleration float64) error {
	if acceleration <= 0 {
		return fmt.Errorf("%w: got %v", ErrZeroAcceleration, acceleration)
	}
	if maxVelocity < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeSpeed, maxVelocity)
	}

	e.position = float64(startCounts)
	e.velocity = 0
	e.target = float64(targetCounts)
	e.acceleration = acceleration
	e.maxVelocity = maxVelocity

	d := e.target - e.position
	if d == 0 {
		e.variant = Idle
		e.direction = 0
		e.logger.Debug("commit: zero distance move, entering idle immediately")
		return nil
	}
	if maxVelocity == 0 {
		return fmt.Errorf("%w: zero max velocity cannot reach non-zero target", ErrNegativeSpeed)
	}
	if d > 0 {
		e.direction = 1
	} else {
		e.direction = -1
	}
	e.variant = Accelerating
	e.logger.Debug("commit", "start", startCounts, "target", targetCounts, "max_velocity", maxVelocity, "acceleration", acceleration)
	return nil
}

// Step advances the model by one 2ms cycle and returns the current phase.
// Phase transitions are evaluated before velocity integration.
func (e *Engine) Step() Variant {
	if e.variant == Idle {
		e.velocity = 0
		return Idle
	}

	d := e.target - e.position
	absD := math.Abs(d)
	v := e.velocity
	a := e.acceleration
	brakingDistance := (v * v) / (2 * a)

	switch e.variant {
	case Accelerating:
		switch {
		case absD <= brakingDistance:
			e.variant = Decelerating
		case math.Abs(v) >= e.maxVelocity:
			e.variant = Cruising
		}
	case Cruising:
		if absD <= brakingDistance {
			e.variant = Decelerating
		}
	case Decelerating:
		crossed := (e.direction > 0 && e.position >= e.target) || (e.direction < 0 && e.position <= e.target)
		if crossed || absD <= ToleranceCounts {
			e.variant = Idle
			e.velocity = 0
			e.position = e.target
		}
	}

	if e.variant == Idle {
		return Idle
	}

	switch e.variant {
	case Accelerating:
		e.velocity += e.direction * a * e.dt
		if math.Abs(e.velocity) > e.maxVelocity {
			e.velocity = e.direction * e.maxVelocity
		}
	case Cruising:
		e.velocity = e.direction * e.maxVelocity
	case Decelerating:
		e.velocity -= e.direction * a * e.dt
		if (e.direction > 0 && e.velocity < 0) || (e.direction < 0 && e.velocity > 0) {
			e.velocity = 0
		}
	}
	e.position += e.velocity * e.dt

	return e.variant
}

// Position returns the current modelled position in counts.
func (e *Engine) Position() float64 { return e.position }

// Velocity returns the current modelled velocity in counts/s.
func (e *Engine) Velocity() float64 { return e.velocity }

// PositionSetpoint returns the modelled position rounded toward zero, for
// writing into the CSP output PDO.
func (e *Engine) PositionSetpoint() int32 { return int32(math.Trunc(e.position)) }

// VelocitySetpoint returns the modelled velocity rounded toward zero, for
// writing into the CSV output PDO.
func (e *Engine) VelocitySetpoint() int32 { return int32(math.Trunc(e.velocity)) }

// EstimatedCycles bounds the number of cycles a committed move can take to
// reach Idle before concluding the model never terminates. It is used by tests
// as an upper bound on how long to keep stepping before concluding the
// engine failed to terminate.
func EstimatedCycles(startCounts, targetCounts int64, maxVelocity, acceleration, cycleTimeSeconds float64) int {
	distance := math.Abs(float64(targetCounts - startCounts))
	if maxVelocity <= 0 || acceleration <= 0 {
		return 0
	}
	seconds := 2*maxVelocity/acceleration + distance/maxVelocity
	return int(math.Ceil(seconds/cycleTimeSeconds)) + 1
}

// DegreesToCounts converts an angle (or delta) in degrees into encoder
// counts, rounded to the nearest count.
func DegreesToCounts(degrees float64) int64 {
	return int64(math.Round(degrees * wire.CountsPerDegree))
}

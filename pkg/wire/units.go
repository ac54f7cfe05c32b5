package wire

import "time"

// Unit conversion constants.
const (
	// CountsPerRevolution is the encoder resolution: 2^21.
	CountsPerRevolution = 1 << 21

	// CountsPerDegree = CountsPerRevolution / 360.
	CountsPerDegree = float64(CountsPerRevolution) / 360.0

	// CycleTime is the fixed realtime loop period.
	CycleTime = 2 * time.Millisecond
)

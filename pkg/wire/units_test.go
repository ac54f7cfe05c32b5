package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountsPerDegree(t *testing.T) {
	require.InDelta(t, 5825.4222, CountsPerDegree, 0.001)
}

func TestCycleTime(t *testing.T) {
	require.Equal(t, 2*time.Millisecond, CycleTime)
}

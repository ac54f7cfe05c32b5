package cia402

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodeStringKnownRanges(t *testing.T) {
	require.Contains(t, ErrorCodeString(0x2310), "current")
	require.Contains(t, ErrorCodeString(0x3210), "voltage")
	require.Contains(t, ErrorCodeString(0x8611), "motion/following-error")
}

func TestErrorCodeStringZeroIsNoError(t *testing.T) {
	require.Contains(t, ErrorCodeString(0x0000), "no error")
}

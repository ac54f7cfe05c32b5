package cia402

import (
	"errors"
	"fmt"
)

// ErrDriveTimeout is returned when the drive does not reach Operation
// Enabled within the configured bring-up timeout (default 5s).
var ErrDriveTimeout = errors.New("cia402: drive did not reach operation enabled before timeout")

// errorCodeRanges maps the high nibble(s) of a CiA 402 error code (SDO
// 0x3C13:0x84) to a short description, mirroring the intent of
// gocanopen's pkg/emergency Err* code table, narrowed to the ranges a
// single-axis CSP/CSV drive realistically reports.
var errorCodeRanges = []struct {
	mask, value uint16
	desc        string
}{
	{0xF000, 0x0000, "no error"},
	{0xF000, 0x1000, "generic error"},
	{0xF000, 0x2000, "current error"},
	{0xF000, 0x3000, "voltage error"},
	{0xF000, 0x4000, "temperature error"},
	{0xF000, 0x5000, "hardware error"},
	{0xF000, 0x6000, "software/device error"},
	{0xF000, 0x7000, "drive internal error"},
	{0xF000, 0x8000, "motion/following-error"},
}

// ErrorCodeString describes a CiA 402 drive error code (object
// 0x3C13:0x84) for the Supervisor's status report.
func ErrorCodeString(code uint16) string {
	for _, r := range errorCodeRanges {
		if code&r.mask == r.value {
			return fmt.Sprintf("x%04x (%s)", code, r.desc)
		}
	}
	return fmt.Sprintf("x%04x (unrecognised)", code)
}

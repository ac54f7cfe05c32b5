package fieldbus

import "fmt"

// alStatusCodes is a small lookup for the AL status codes this core can
// realistically observe on a single-slave segment, mirroring the intent of
// SOEM's ec_ALstatuscode2string. Codes outside this table fall back to
// their raw hex value.
var alStatusCodes = map[uint16]string{
	0x0000: "no error",
	0x0001: "unspecified error",
	0x0002: "no memory",
	0x0011: "invalid requested state change",
	0x0012: "unknown requested state",
	0x001B: "invalid mailbox configuration in PRE-OP",
	0x001D: "invalid sync manager configuration",
	0x001E: "no valid inputs and outputs",
	0x0023: "invalid output configuration",
	0x0024: "invalid input configuration",
	0x0025: "invalid watchdog configuration",
	0x0030: "invalid output FMMU configuration",
	0x0034: "DC invalid sync configuration",
	0x0035: "DC sync0 cycle time",
	0x003A: "invalid DC SYNC configuration",
}

// ALStatusString decodes an AL status code into a short human-readable
// description, used only for logging when a slave enters AL ERROR.
func ALStatusString(code uint16) string {
	if s, ok := alStatusCodes[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown AL status code x%04x", code)
}

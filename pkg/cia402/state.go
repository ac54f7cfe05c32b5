// Package cia402 implements the CiA 402 drive power state machine: it
// classifies the status word the drive reports each cycle and computes the
// control word the master must write back. Classify picks the five power
// states out of the status word's overlapping bit groups with the same
// masked-field idiom PDO COB-ID handling uses to pick a CAN ID out of its
// own overlapping bit groups.
package cia402

// State is one of the CiA 402 power-state-machine's recognised stable
// states, classified purely from the low bits of the status word.
type State uint8

const (
	StateUnknown State = iota
	StateFault
	StateSwitchOnDisabled
	StateReadyToSwitchOn
	StateSwitchedOn
	StateOperationEnabled
)

var stateNames = map[State]string{
	StateUnknown:          "UNKNOWN",
	StateFault:            "FAULT",
	StateSwitchOnDisabled: "SWITCH-ON-DISABLED",
	StateReadyToSwitchOn:  "READY-TO-SWITCH-ON",
	StateSwitchedOn:       "SWITCHED-ON",
	StateOperationEnabled: "OPERATION-ENABLED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Classify derives the drive's CiA 402 state purely from the status word's
// low bits. Classifications are attempted in order; fault takes priority
// over every other bit pattern, and the first
// remaining match wins. Classify is a pure function: for every status word
// in [0x0000, 0xFFFF] it returns the same State every time it's called
// (exercised by state_test.go's exhaustive property test).
func Classify(statusWord uint16) State {
	if statusWord&0x08 != 0 {
		return StateFault
	}
	switch {
	case statusWord&0x4F == 0x40:
		return StateSwitchOnDisabled
	case statusWord&0x6F == 0x21:
		return StateReadyToSwitchOn
	case statusWord&0x6F == 0x23:
		return StateSwitchedOn
	case statusWord&0x6F == 0x27:
		return StateOperationEnabled
	default:
		return StateUnknown
	}
}

// Control words the master issues.
const (
	ControlWordFaultReset      uint16 = 0x80
	ControlWordShutdown        uint16 = 0x06
	ControlWordSwitchOn        uint16 = 0x07
	ControlWordEnableOperation uint16 = 0x0F
	newSetpointBit             uint16 = 0x10
)

// baseControlWordFor returns the control word required for a recognised
// state, and whether the state is one the controller actively drives (false
// for Fault and Unknown, which Step handles separately).
func baseControlWordFor(s State) (uint16, bool) {
	switch s {
	case StateSwitchOnDisabled:
		return ControlWordShutdown, true
	case StateReadyToSwitchOn:
		return ControlWordSwitchOn, true
	case StateSwitchedOn, StateOperationEnabled:
		return ControlWordEnableOperation, true
	default:
		return 0, false
	}
}

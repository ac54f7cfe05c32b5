// Package simulated implements a pure-Go [fieldbus.Link] that stands in for
// a real SOEM/EtherCAT master bound to one CiA 402 servo drive. It exists so
// the realtime loop, the drive controller and the trajectory engine can be
// exercised end-to-end without hardware, the way
// pkg/can/virtual stands in for a real CAN bus in gocanopen.
//
// The simulated drive classifies the control word it receives each cycle
// and updates its own status word accordingly, so a controller driving
// it through Shutdown -> Switch On -> Enable Operation actually reaches
// Operation Enabled.
package simulated

import (
	"sync"
	"time"

	"ecat402/pkg/fieldbus"
	"ecat402/pkg/wire"
)

// Link is a simulated single-slave EtherCAT segment with one CiA 402 drive.
type Link struct {
	mu sync.Mutex

	ifname      string
	initialized bool

	state        fieldbus.ALState
	alStatusCode uint16
	hasDC        bool
	dcTime       int64
	dcSyncAfter  int // DCTime goes > 0 from this ReceiveProcessData call on; 0 keeps it at 0

	outputs []byte
	inputs  []byte
	cycles  int

	statusWord uint16
	fault      bool

	// Test hooks.
	wkcDelta       int32 // subtracted from the nominal wkc, to inject PdoUnderrun
	underrunCycles int   // remaining cycles for which wkcDelta applies
	sdoObjects     map[sdoKey][]byte
	sdoFail        bool
}

type sdoKey struct {
	index    uint16
	subindex uint8
}

// statusWord bit layout.
const (
	bitFault = 0x08
	bitQuick = 0x20
)

// New creates a simulated link with the drive starting in Switch-on
// Disabled, the state a CiA 402 drive is in immediately after power-on.
func New() *Link {
	return &Link{
		state:      fieldbus.StateInit,
		statusWord: 0x0040, // Switch-on Disabled: sw&0x4F==0x40
		sdoObjects: make(map[sdoKey][]byte),
	}
}

func (l *Link) Init(ifname string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ifname == "" {
		return false
	}
	l.ifname = ifname
	l.initialized = true
	return true
}

func (l *Link) ConfigInit() (int, error) {
	if !l.initialized {
		return 0, nil
	}
	return 1, nil
}

func (l *Link) ConfigMapGroup(iomap []byte, group uint8) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = iomap[0:wire.OutputPDOSize]
	l.inputs = iomap[wire.OutputPDOSize : wire.OutputPDOSize+wire.InputPDOSize]
	return wire.OutputPDOSize + wire.InputPDOSize, nil
}

func (l *Link) ConfigDC() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasDC = true
	return nil
}

func (l *Link) WriteState(slave uint16, state fieldbus.ALState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requestState(state)
	return nil
}

// requestState must be called with l.mu held.
func (l *Link) requestState(state fieldbus.ALState) {
	l.state = state
}

func (l *Link) ReadState(slave uint16) fieldbus.ALState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) StateCheck(slave uint16, state fieldbus.ALState, timeout time.Duration) fieldbus.ALState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// InjectFault forces the simulated drive's status word fault bit, as if an
// amplifier fault occurred on the real hardware.
func (l *Link) InjectFault(fault bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fault = fault
}

// InjectUnderrun makes the next n calls to ReceiveProcessData return a
// working counter short by delta, to exercise a PDO underrun.
func (l *Link) InjectUnderrun(delta int32, cycles int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wkcDelta = delta
	l.underrunCycles = cycles
}

// SetDCSyncAfter configures the cycle (counted in ReceiveProcessData calls)
// from which DCTime is positive, simulating the time it takes distributed
// clocks to settle. Until it is called with a positive value, DCTime stays 0.
func (l *Link) SetDCSyncAfter(cycles int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dcSyncAfter = cycles
}

func (l *Link) SendProcessData() error {
	// In a real master this flushes outputs to the wire; the simulated
	// drive applies the effect during ReceiveProcessData below, since both
	// happen within the same cycle here.
	return nil
}

func (l *Link) ReceiveProcessData(timeout time.Duration) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cycles++
	if l.dcSyncAfter > 0 && l.cycles >= l.dcSyncAfter {
		l.dcTime = int64(l.cycles) * 2_000_000
	}

	out, err := wire.DecodeOutputPDO(l.outputs)
	if err == nil {
		l.statusWord = l.classify(out.ControlWord)
	}
	in := wire.InputPDO{
		StatusWord:             l.statusWord,
		PositionActual:         0,
		VelocityActual:         0,
		ModeOfOperationDisplay: out.ModeOfOperation,
	}
	_ = in.Encode(l.inputs)

	wkc := int32(3) // nominal: 2*outputsWKC(1) + inputsWKC(1)
	if l.underrunCycles > 0 {
		wkc -= l.wkcDelta
		l.underrunCycles--
	}
	return wkc, nil
}

// classify implements the drive-side half of the CiA 402 handshake: given
// the control word the master just wrote, compute the drive's next status
// word.
func (l *Link) classify(cw uint16) uint16 {
	if l.fault {
		return 0x0008 // Fault
	}
	switch cw {
	case 0x80: // Fault Reset
		return 0x0040 // Switch-on Disabled
	case 0x06: // Shutdown
		return 0x0021 // Ready to Switch On
	case 0x07: // Switch On
		return 0x0023 // Switched On
	case 0x0F: // Enable Operation
		return 0x0027 // Operation Enabled
	default:
		if cw&0x0F == 0x0F {
			return 0x0027 // hold Operation Enabled regardless of toggle bit 4
		}
		return l.statusWord
	}
}

func (l *Link) SDORead(slave uint16, index uint16, subindex uint8, buf []byte) (int, int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sdoFail {
		return 0, 0, nil
	}
	val, ok := l.sdoObjects[sdoKey{index, subindex}]
	if !ok {
		return 0, -1, nil
	}

	// Exercise the real mailbox wire encoding even though the value is held
	// in memory: a 1-4 byte object round-trips through an expedited upload
	// response in one frame. Values of any other length are copied directly.
	if len(val) > 0 && len(val) <= 4 {
		frame, err := fieldbus.EncodeUploadExpeditedResponse(index, subindex, val)
		if err != nil {
			return 0, 0, err
		}
		size := 4 - int((frame[0]>>2)&0x03)
		n := copy(buf, frame[4:4+size])
		return n, 1, nil
	}

	n := copy(buf, val)
	return n, 1, nil
}

func (l *Link) SDOWrite(slave uint16, index uint16, subindex uint8, buf []byte) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sdoFail {
		return 0, nil
	}

	// Round-trip through a download-request frame and back, the same
	// expedited encode/decode the mailbox uses for a real drive. Bits 0x02
	// (expedited) and 0x01 (size indicated) on a download-initiate command
	// (0x20) mirror the command byte gocanopen's SDO client builds.
	if len(buf) >= 1 && len(buf) <= 4 {
		var req fieldbus.MailboxFrame
		unused := 4 - len(buf)
		req[0] = 0x20 | 0x02 | 0x01 | byte(unused<<2)
		req[1] = byte(index)
		req[2] = byte(index >> 8)
		req[3] = subindex
		copy(req[4:4+len(buf)], buf)
		_, _, decoded, _ := fieldbus.DecodeDownloadExpeditedRequest(req)
		l.sdoObjects[sdoKey{index, subindex}] = decoded
		return 1, nil
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)
	l.sdoObjects[sdoKey{index, subindex}] = cp
	return 1, nil
}

// SetSDOObject preloads an object dictionary entry the SDO diagnostic path
// can read back, e.g. the CiA 402 last-error-code object 0x3C13:0x84.
func (l *Link) SetSDOObject(index uint16, subindex uint8, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	l.sdoObjects[sdoKey{index, subindex}] = cp
}

// SetSDOFailure forces every subsequent SDO exchange to return wkc <= 0.
func (l *Link) SetSDOFailure(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sdoFail = fail
}

func (l *Link) Close() error { return nil }

func (l *Link) Slave(slave uint16) fieldbus.SlaveInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fieldbus.SlaveInfo{
		Name:         "simulated-axis",
		State:        l.state,
		ALStatusCode: l.alStatusCode,
		HasDC:        l.hasDC,
		DCTime:       l.dcTime,
		Outputs:      l.outputs,
		Inputs:       l.inputs,
	}
}

func (l *Link) SlaveCount() int { return 1 }

func (l *Link) Group(group uint8) fieldbus.GroupInfo {
	return fieldbus.GroupInfo{OutputsWKC: 1, InputsWKC: 1}
}

var _ fieldbus.Link = (*Link)(nil)

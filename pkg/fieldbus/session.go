package fieldbus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// IOMapSize is the fixed size of the shared I/O map both directions are
// mapped into.
const IOMapSize = 4096

// groupZero is the only group this core ever addresses: a single slave on a
// single linear segment (multi-slave topologies are out of scope).
const groupZero = uint8(0)

// Session owns the fieldbus context bound to one network interface: link
// bring-up, slave enumeration, PDO mapping, DC configuration, AL state
// transitions, and one-shot SDO access. It is the sole holder of the raw
// pointers/offsets the underlying Link maps into iomap, exposed to callers
// only as narrow []byte views.
type Session struct {
	mu sync.Mutex

	link    Link
	logger  *slog.Logger
	ifname     string
	iomap      [IOMapSize]byte
	slaveCount int
	group      GroupInfo
	mapped  bool
	overlap bool // overlapped-IO-map quirk some ESC silicon needs for correct WKC in OP

	expectedWKC int32
}

// NewSession creates a Session around a [Link] implementation. logger may be
// nil, in which case slog.Default() is used.
func NewSession(link Link, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{link: link, logger: logger.With("service", "fieldbus")}
}

// Initialise binds the master to the named NIC. Fails with [ErrLinkOpen] if
// the NIC cannot be acquired.
func (s *Session) Initialise(ifname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok := s.link.Init(ifname); !ok {
		return fmt.Errorf("%w: interface %q", ErrLinkOpen, ifname)
	}
	s.ifname = ifname
	s.logger.Info("bound to network interface", "ifname", ifname)
	return nil
}

// EnumerateAndMap discovers slaves and configures PDO mapping into the
// 4096-byte I/O map. Fails with [ErrNoSlaves] if zero
// slaves were discovered. Invariant: must be called — and must succeed —
// before any SAFE-OP transition is requested.
func (s *Session) EnumerateAndMap() (slaveCount int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.link.ConfigInit()
	if err != nil {
		return 0, fmt.Errorf("fieldbus: enumerate slaves: %w", err)
	}
	if count == 0 {
		return 0, ErrNoSlaves
	}
	if _, err := s.link.ConfigMapGroup(s.iomap[:], groupZero); err != nil {
		return 0, fmt.Errorf("fieldbus: map pdo group: %w", err)
	}

	s.slaveCount = count
	s.group = s.link.Group(groupZero)
	s.mapped = true
	s.logger.Info("slaves mapped", "count", count)
	return count, nil
}

// ConfigureDistributedClocks programs DC registers on each slave.
func (s *Session) ConfigureDistributedClocks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.ConfigDC()
}

// SetOverlappedMode sets the overlapped-IO-map flag required by certain ESC
// silicon to produce a correct working counter in OP.
func (s *Session) SetOverlappedMode(overlap bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlap = overlap
}

// ComputeExpectedWKC computes 2*outputsWKC + inputsWKC and caches it for
// PdoUnderrun detection during cyclic exchange.
func (s *Session) ComputeExpectedWKC() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedWKC = 2*s.group.OutputsWKC + s.group.InputsWKC
	return s.expectedWKC
}

// RequestState issues an AL state request to the given slave (0 = all
// slaves, matching SOEM's convention).
func (s *Session) RequestState(slave uint16, state ALState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state >= StateSafeOp && !s.mapped {
		return fmt.Errorf("fieldbus: requested %s before PDO mapping was established", state)
	}
	return s.link.WriteState(slave, state)
}

// CheckState polls ReadState/StateCheck until the requested state is
// observed or timeout elapses, returning the actually-observed state.
// Fails with [ErrStateTimeout] if the state was never reached.
func (s *Session) CheckState(slave uint16, state ALState, timeout time.Duration) (ALState, error) {
	actual := s.link.StateCheck(slave, state, timeout)
	if actual&^StateError != state {
		return actual, fmt.Errorf("%w: want %s, got %s", ErrStateTimeout, state, actual)
	}
	return actual, nil
}

// ReadState reads the slave's currently cached AL state without polling.
func (s *Session) ReadState(slave uint16) ALState {
	return s.link.ReadState(slave)
}

// SendPDO performs the "send" half of one cyclic exchange. Caller must pair
// it with ReceivePDO every cycle; there is no automatic retry.
func (s *Session) SendPDO() error {
	return s.link.SendProcessData()
}

// ReceivePDO performs the "receive" half of one cyclic exchange and returns
// the working counter for that exchange. A wkc <= 0 is a failure of that
// exchange; the caller decides whether it is fatal.
func (s *Session) ReceivePDO(timeout time.Duration) (wkc int32, err error) {
	return s.link.ReceiveProcessData(timeout)
}

// PdoUnderrun reports whether wkc fell below the expected working counter
// computed by ComputeExpectedWKC, without itself deciding fatality
// PdoUnderrun itself is non-fatal; it only reports the condition.
func (s *Session) PdoUnderrun(wkc int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wkc < s.expectedWKC
}

// Slave returns the live record for the 1-indexed slave (only slave 1 is
// meaningful for this single-axis core). Unlike the I/O map views, AL state
// and DC timing change every cycle, so this always queries the Link rather
// than a snapshot taken at EnumerateAndMap time.
func (s *Session) Slave(slave uint16) SlaveInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(slave) < 1 || int(slave) > s.slaveCount {
		return SlaveInfo{}
	}
	return s.link.Slave(slave)
}

// OutputPDO returns the mapped output region for the given slave as a
// narrow, caller-writable view. The region is owned by the Link's iomap;
// this is the sole accessor.
func (s *Session) OutputPDO(slave uint16) []byte {
	return s.Slave(slave).Outputs
}

// InputPDO returns the mapped input region for the given slave as a narrow,
// caller-readable view.
func (s *Session) InputPDO(slave uint16) []byte {
	return s.Slave(slave).Inputs
}

// SdoRead performs a one-shot mailbox read. len(buf) bounds the maximum
// read; the returned n is the actual size (1, 2, or 4 bytes for the
// expedited objects this core touches). Fails with [ErrSdoFailure] if
// wkc <= 0.
func (s *Session) SdoRead(slave uint16, index uint16, subindex uint8, buf []byte, timeout time.Duration) (n int, err error) {
	n, wkc, err := s.link.SDORead(slave, index, subindex, buf)
	if err != nil {
		return 0, fmt.Errorf("%w: x%x:x%x: %v", ErrSdoFailure, index, subindex, err)
	}
	if wkc <= 0 {
		return 0, fmt.Errorf("%w: x%x:x%x: wkc=%d", ErrSdoFailure, index, subindex, wkc)
	}
	return n, nil
}

// SdoWrite performs a one-shot mailbox write. Fails with [ErrSdoFailure] if
// wkc <= 0.
func (s *Session) SdoWrite(slave uint16, index uint16, subindex uint8, buf []byte, timeout time.Duration) error {
	wkc, err := s.link.SDOWrite(slave, index, subindex, buf)
	if err != nil {
		return fmt.Errorf("%w: x%x:x%x: %v", ErrSdoFailure, index, subindex, err)
	}
	if wkc <= 0 {
		return fmt.Errorf("%w: x%x:x%x: wkc=%d", ErrSdoFailure, index, subindex, wkc)
	}
	return nil
}

// Close returns the bus to INIT and closes the underlying socket, so a
// subsequent Initialise starts from a known state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.link.WriteState(0, StateInit); err != nil {
		s.logger.Warn("failed requesting INIT before close", "err", err)
	}
	return s.link.Close()
}

// Package fieldbus wraps the external EtherCAT master library (mailbox, SDO
// encoding, NIC binding, distributed-clock registers — out of scope for this
// core, implemented elsewhere) behind a narrow [Link] interface, and owns the
// mapped PDO memory on top of it. The real binding (SOEM or an equivalent
// cgo wrapper) is never implemented here; only the interface is. Each cmd
// program's newLink function is where a real one would be swapped in, and
// the simulated link under pkg/fieldbus/simulated implements it for tests.
package fieldbus

import (
	"errors"
	"time"
)

// ALState mirrors SOEM's application-layer state constants. Values are
// bit flags so EC_STATE_ERROR (0x10) can be OR'ed onto a base state exactly
// as real ESC silicon reports it.
type ALState uint16

const (
	StateInit   ALState = 1
	StatePreOp  ALState = 2
	StateBoot   ALState = 3
	StateSafeOp ALState = 4
	StateOp     ALState = 8
	StateError  ALState = 0x10
)

func (s ALState) String() string {
	switch s &^ StateError {
	case StateInit:
		if s&StateError != 0 {
			return "INIT+ERROR"
		}
		return "INIT"
	case StatePreOp:
		if s&StateError != 0 {
			return "PRE-OP+ERROR"
		}
		return "PRE-OP"
	case StateBoot:
		return "BOOT"
	case StateSafeOp:
		if s&StateError != 0 {
			return "SAFE-OP+ERROR"
		}
		return "SAFE-OP"
	case StateOp:
		if s&StateError != 0 {
			return "OP+ERROR"
		}
		return "OP"
	default:
		return "UNKNOWN"
	}
}

// DefaultReceiveTimeout bounds how long ReceiveProcessData waits for the
// frame sent this cycle to come back before giving up on it.
const DefaultReceiveTimeout = 2 * time.Millisecond

// Error taxonomy. Each is a sentinel so callers can use errors.Is against
// the wrapped result of a Session operation.
var (
	ErrLinkOpen     = errors.New("fieldbus: cannot bind network interface")
	ErrNoSlaves     = errors.New("fieldbus: no slaves discovered")
	ErrStateTimeout = errors.New("fieldbus: requested AL state not reached before timeout")
	ErrSlaveError   = errors.New("fieldbus: slave entered AL ERROR state")
	ErrSdoFailure   = errors.New("fieldbus: SDO exchange returned a non-positive working counter")
	ErrPdoUnderrun  = errors.New("fieldbus: working counter below expected value")
)

// SlaveInfo is the subset of SOEM's per-slave record this core consumes.
type SlaveInfo struct {
	Name         string
	State        ALState
	ALStatusCode uint16
	HasDC        bool
	DCTime       int64
	Outputs      []byte // mapped output PDO region, owned by the iomap
	Inputs       []byte // mapped input PDO region, owned by the iomap
}

// GroupInfo is the subset of SOEM's per-group record this core consumes.
type GroupInfo struct {
	OutputsWKC int32
	InputsWKC  int32
}

// Link is the contract this core requires from the underlying EtherCAT
// master library, named after SOEM's public C API (ec_init, ec_config_init,
// ec_config_map_group, ec_configdc, ec_writestate, ec_readstate,
// ec_statecheck, ec_send_processdata, ec_receive_processdata, ec_SDOread,
// ec_SDOwrite, ec_close). A real implementation binds these to
// cgo calls into SOEM; pkg/fieldbus/simulated provides a pure-Go one for
// tests and development off real hardware.
type Link interface {
	// Init binds the master to a network interface. Returns false (not an
	// error) on failure, matching SOEM's ec_init return convention; the
	// caller (Session.Initialise) is responsible for turning that into
	// ErrLinkOpen.
	Init(ifname string) bool

	// ConfigInit enumerates slaves and returns the slave count.
	ConfigInit() (slaveCount int, err error)

	// ConfigMapGroup configures PDO mapping into iomap for the given group
	// and returns the number of bytes mapped.
	ConfigMapGroup(iomap []byte, group uint8) (mapped int, err error)

	// ConfigDC programs distributed-clock registers on each slave.
	ConfigDC() error

	WriteState(slave uint16, state ALState) error
	ReadState(slave uint16) ALState
	StateCheck(slave uint16, state ALState, timeout time.Duration) ALState

	SendProcessData() error
	ReceiveProcessData(timeout time.Duration) (wkc int32, err error)

	SDORead(slave uint16, index uint16, subindex uint8, buf []byte) (n int, wkc int32, err error)
	SDOWrite(slave uint16, index uint16, subindex uint8, buf []byte) (wkc int32, err error)

	Close() error

	Slave(slave uint16) SlaveInfo
	SlaveCount() int
	Group(group uint8) GroupInfo
}

package supervisor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ecat402/pkg/fieldbus"
)

// preOpTimeout bounds the diagnostic bring-up's AL state transition request.
// PRE-OP is sufficient for mailbox SDO access; these programs never
// exchange PDOs.
const preOpTimeout = 3 * time.Second

// Diagnostics is the lightweight bring-up used by the SDO-only CLI programs
// (read, write, fault-reset): it binds the NIC and brings the bus only as
// far as PRE-OP, where mailbox communication is already available.
type Diagnostics struct {
	Session *fieldbus.Session
	logger  *logrus.Logger
}

// NewDiagnostics wires a Diagnostics session around the given Link.
func NewDiagnostics(link fieldbus.Link, logger *logrus.Logger) *Diagnostics {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Diagnostics{
		Session: fieldbus.NewSession(link, nil),
		logger:  logger,
	}
}

// BringUp binds the interface, enumerates slaves and requests PRE-OP.
func (d *Diagnostics) BringUp(ifname string) error {
	if err := d.Session.Initialise(ifname); err != nil {
		return err
	}
	count, err := d.Session.EnumerateAndMap()
	if err != nil {
		return err
	}
	d.logger.WithField("slaves", count).Info("slaves enumerated")

	if err := d.Session.RequestState(0, fieldbus.StatePreOp); err != nil {
		return fmt.Errorf("supervisor: request pre-op: %w", err)
	}
	if _, err := d.Session.CheckState(slaveID, fieldbus.StatePreOp, preOpTimeout); err != nil {
		return err
	}
	return nil
}

// Close returns the bus to INIT and releases the interface.
func (d *Diagnostics) Close() error {
	return d.Session.Close()
}

// ReadObject performs an SDO upload of an object and returns it as an
// unsigned integer of the given width (8, 16 or 32 bits).
func (d *Diagnostics) ReadObject(index uint16, subindex uint8, sizeBits int) (uint32, error) {
	buf := make([]byte, sizeBits/8)
	n, err := d.Session.SdoRead(slaveID, index, subindex, buf, sdoTimeout)
	if err != nil {
		return 0, err
	}
	var value uint32
	for i := n - 1; i >= 0; i-- {
		value = value<<8 | uint32(buf[i])
	}
	return value, nil
}

// WriteObject performs an SDO download of value, encoded little-endian in
// sizeBits/8 bytes (8, 16 or 32 bits).
func (d *Diagnostics) WriteObject(index uint16, subindex uint8, value uint32, sizeBits int) error {
	buf := make([]byte, sizeBits/8)
	switch sizeBits {
	case 8:
		buf[0] = byte(value)
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 32:
		binary.LittleEndian.PutUint32(buf, value)
	default:
		return fmt.Errorf("supervisor: unsupported object size: %d bits", sizeBits)
	}
	return d.Session.SdoWrite(slaveID, index, subindex, buf, sdoTimeout)
}

// FaultReset writes the Fault Reset control word (0x80) to object 0x6040:0,
// the diagnostic-path equivalent of the realtime loop's fault-recovery
// control word.
func (d *Diagnostics) FaultReset() error {
	return d.WriteObject(objControlWord, 0, 0x80, 16)
}

// StatusWord reads the current status word for a --clear/read loop.
func (d *Diagnostics) StatusWord() (uint16, error) {
	v, err := d.ReadObject(objStatusWord, 0, 16)
	return uint16(v), err
}

// Package wire implements the fixed, packed, little-endian CSP/CSV process
// data layouts exchanged every cycle with the CiA 402 drive. Unlike the
// generic, EDS-mapped PDO machinery of a full CANopen stack, this axis has
// exactly one output and one input layout, known at compile time, so encode
// and decode are explicit functions over a byte buffer rather than a runtime
// mapping table (see DESIGN.md).
package wire

import (
	"encoding/binary"
	"fmt"
)

// CiA 402 modes of operation used by this axis.
const (
	ModeCSP int8 = 8 // Cyclic Synchronous Position
	ModeCSV int8 = 9 // Cyclic Synchronous Velocity
)

// OutputPDOSize is the fixed, packed size of [OutputPDO] in bytes.
const OutputPDOSize = 21

// InputPDOSize is the fixed, packed size of [InputPDO] in bytes.
const InputPDOSize = 23

// OutputPDO is the master -> slave process data, 21 bytes packed
// little-endian. Field order is part of the wire contract and must not
// change.
type OutputPDO struct {
	ControlWord     uint16
	TargetPosition  int32
	TargetVelocity  int32
	TargetTorque    int16
	ModeOfOperation int8
	VelocityOffset  int32
}

// InputPDO is the slave -> master process data, 23 bytes packed
// little-endian.
type InputPDO struct {
	StatusWord             uint16
	PositionActual         int32
	VelocityActual         int32
	TorqueActual           int16
	FollowingError         int32
	ModeOfOperationDisplay int8
	TouchProbeStatus       uint16
	TouchProbePos1         int32
}

// Encode serialises the output PDO into buf, which must be at least
// [OutputPDOSize] bytes. It never leaves buf partially written: an
// undersized buffer is rejected before anything is touched, satisfying the
// invariant that the mapped region is never transmitted uninitialised.
func (o OutputPDO) Encode(buf []byte) error {
	if len(buf) < OutputPDOSize {
		return fmt.Errorf("wire: output pdo buffer too small: got %d, need %d", len(buf), OutputPDOSize)
	}
	binary.LittleEndian.PutUint16(buf[0:2], o.ControlWord)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(o.TargetPosition))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(o.TargetVelocity))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(o.TargetTorque))
	buf[12] = byte(o.ModeOfOperation)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(o.VelocityOffset))
	// Bytes 17:21 are reserved padding to round the layout to the documented
	// 21-byte frame; always zeroed so nothing uninitialised is ever sent.
	for i := 17; i < OutputPDOSize; i++ {
		buf[i] = 0
	}
	return nil
}

// DecodeOutputPDO is the inverse of [OutputPDO.Encode], used by round-trip
// tests and by the simulated link.
func DecodeOutputPDO(buf []byte) (OutputPDO, error) {
	var o OutputPDO
	if len(buf) < OutputPDOSize {
		return o, fmt.Errorf("wire: output pdo buffer too small: got %d, need %d", len(buf), OutputPDOSize)
	}
	o.ControlWord = binary.LittleEndian.Uint16(buf[0:2])
	o.TargetPosition = int32(binary.LittleEndian.Uint32(buf[2:6]))
	o.TargetVelocity = int32(binary.LittleEndian.Uint32(buf[6:10]))
	o.TargetTorque = int16(binary.LittleEndian.Uint16(buf[10:12]))
	o.ModeOfOperation = int8(buf[12])
	o.VelocityOffset = int32(binary.LittleEndian.Uint32(buf[13:17]))
	return o, nil
}

// Encode serialises the input PDO into buf, which must be at least
// [InputPDOSize] bytes.
func (in InputPDO) Encode(buf []byte) error {
	if len(buf) < InputPDOSize {
		return fmt.Errorf("wire: input pdo buffer too small: got %d, need %d", len(buf), InputPDOSize)
	}
	binary.LittleEndian.PutUint16(buf[0:2], in.StatusWord)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(in.PositionActual))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(in.VelocityActual))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(in.TorqueActual))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(in.FollowingError))
	buf[16] = byte(in.ModeOfOperationDisplay)
	binary.LittleEndian.PutUint16(buf[17:19], in.TouchProbeStatus)
	binary.LittleEndian.PutUint32(buf[19:23], uint32(in.TouchProbePos1))
	return nil
}

// DecodeInputPDO is the inverse of [InputPDO.Encode].
func DecodeInputPDO(buf []byte) (InputPDO, error) {
	var in InputPDO
	if len(buf) < InputPDOSize {
		return in, fmt.Errorf("wire: input pdo buffer too small: got %d, need %d", len(buf), InputPDOSize)
	}
	in.StatusWord = binary.LittleEndian.Uint16(buf[0:2])
	in.PositionActual = int32(binary.LittleEndian.Uint32(buf[2:6]))
	in.VelocityActual = int32(binary.LittleEndian.Uint32(buf[6:10]))
	in.TorqueActual = int16(binary.LittleEndian.Uint16(buf[10:12]))
	in.FollowingError = int32(binary.LittleEndian.Uint32(buf[12:16]))
	in.ModeOfOperationDisplay = int8(buf[16])
	in.TouchProbeStatus = binary.LittleEndian.Uint16(buf[17:19])
	in.TouchProbePos1 = int32(binary.LittleEndian.Uint32(buf[19:23]))
	return in, nil
}

package fieldbus

import (
	"encoding/binary"
	"fmt"

	"ecat402/internal/fifo"
)

// CoE mailbox SDO is, byte for byte, the same expedited/segmented transfer
// protocol CANopen's native SDO uses over the CAN ID instead of the mailbox
// channel, so the command-byte layout below mirrors gocanopen's pkg/sdo
// client exactly. Block transfer is not implemented: every object this core
// touches (control/status words, CiA 402 error code, driver status) fits in
// 4 bytes, so an expedited transfer always suffices, and segmented transfer
// is kept only for the one multi-byte object (manufacturer device name)
// diagnostics may read.
const (
	ccsInitiateDownload = 0x20
	ccsInitiateUpload   = 0x40
	ccsDownloadSegment  = 0x00
	ccsUploadSegment    = 0x60

	scsInitiateDownload = 0x60
	scsInitiateUpload   = 0x40
	scsDownloadSegment  = 0x20
	scsUploadSegment    = 0x00

	sizeIndicatedFlag = 0x01
	expeditedFlag     = 0x02
	segmentLastFlag   = 0x01
	toggleFlag        = 0x10
)

// MailboxFrame is the fixed 8-byte CoE SDO frame exchanged over the mailbox.
type MailboxFrame [8]byte

// EncodeUploadExpeditedResponse builds the one-frame response to an
// expedited upload request: value must be 1-4 bytes.
func EncodeUploadExpeditedResponse(index uint16, subindex uint8, value []byte) (MailboxFrame, error) {
	if len(value) == 0 || len(value) > 4 {
		return MailboxFrame{}, fmt.Errorf("fieldbus: expedited value must be 1-4 bytes, got %d", len(value))
	}
	var f MailboxFrame
	unused := 4 - len(value)
	f[0] = scsInitiateUpload | expeditedFlag | sizeIndicatedFlag | byte(unused<<2)
	binary.LittleEndian.PutUint16(f[1:3], index)
	f[3] = subindex
	copy(f[4:4+len(value)], value)
	return f, nil
}

// EncodeUploadSegmentedInitiateResponse begins a segmented upload by
// announcing the total size; the caller must follow with one or more
// EncodeUploadSegmentResponse frames.
func EncodeUploadSegmentedInitiateResponse(index uint16, subindex uint8, totalSize uint32) MailboxFrame {
	var f MailboxFrame
	f[0] = scsInitiateUpload | sizeIndicatedFlag
	binary.LittleEndian.PutUint16(f[1:3], index)
	f[3] = subindex
	binary.LittleEndian.PutUint32(f[4:8], totalSize)
	return f
}

// EncodeUploadSegmentResponse builds one segment of a segmented upload.
// chunk must be at most 7 bytes; the toggle bit alternates each segment.
func EncodeUploadSegmentResponse(toggle bool, chunk []byte, last bool) (MailboxFrame, error) {
	if len(chunk) > 7 {
		return MailboxFrame{}, fmt.Errorf("fieldbus: segment chunk too large: %d bytes", len(chunk))
	}
	var f MailboxFrame
	f[0] = scsUploadSegment
	if toggle {
		f[0] |= toggleFlag
	}
	unused := 7 - len(chunk)
	f[0] |= byte(unused << 1)
	if last {
		f[0] |= segmentLastFlag
	}
	copy(f[1:1+len(chunk)], chunk)
	return f, nil
}

// DecodeDownloadExpeditedRequest extracts index, subindex and value from an
// expedited download request frame.
func DecodeDownloadExpeditedRequest(f MailboxFrame) (index uint16, subindex uint8, value []byte, expedited bool) {
	index = binary.LittleEndian.Uint16(f[1:3])
	subindex = f[3]
	expedited = f[0]&expeditedFlag != 0
	if !expedited {
		return index, subindex, nil, false
	}
	n := 4
	if f[0]&sizeIndicatedFlag != 0 {
		n -= int((f[0] >> 2) & 0x03)
	}
	value = append([]byte(nil), f[4:4+n]...)
	return index, subindex, value, true
}

// EncodeDownloadInitiateResponse builds the acknowledgement frame for a
// successful download (expedited or initiating a segmented transfer).
func EncodeDownloadInitiateResponse(index uint16, subindex uint8) MailboxFrame {
	var f MailboxFrame
	f[0] = scsInitiateDownload
	binary.LittleEndian.PutUint16(f[1:3], index)
	f[3] = subindex
	return f
}

// Reassembler drains a sequence of upload-segment frames into a single
// buffer, using a [fifo.Fifo] exactly as the segmented-upload client path
// does when the total transfer size isn't known until the last segment.
type Reassembler struct {
	buf *fifo.Fifo
}

// NewReassembler creates a Reassembler with the given backing capacity.
func NewReassembler(capacity uint16) *Reassembler {
	return &Reassembler{buf: fifo.NewFifo(capacity)}
}

// Feed appends one segment's payload (low 7 bytes of a decoded
// upload-segment frame) into the reassembly buffer.
func (r *Reassembler) Feed(chunk []byte) {
	r.buf.Write(chunk)
}

// Drain returns everything reassembled so far.
func (r *Reassembler) Drain() []byte {
	out := make([]byte, r.buf.GetOccupied())
	r.buf.Read(out)
	return out
}

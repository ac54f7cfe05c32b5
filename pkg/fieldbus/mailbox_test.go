package fieldbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpeditedUploadDownloadRoundTrip(t *testing.T) {
	value := []byte{0x27, 0x00}

	uploadResp, err := EncodeUploadExpeditedResponse(0x6041, 0x00, value)
	require.NoError(t, err)

	size := 4 - int((uploadResp[0]>>2)&0x03)
	require.Equal(t, len(value), size)
	require.Equal(t, value, []byte(uploadResp[4:4+size]))

	var downloadReq MailboxFrame
	downloadReq[0] = 0x20 | 0x02 | 0x01 | byte((4-len(value))<<2)
	downloadReq[1] = byte(0x6040)
	downloadReq[2] = byte(0x6040 >> 8)
	downloadReq[3] = 0x00
	copy(downloadReq[4:4+len(value)], value)

	index, subindex, decoded, expedited := DecodeDownloadExpeditedRequest(downloadReq)
	require.True(t, expedited)
	require.Equal(t, uint16(0x6040), index)
	require.Equal(t, uint8(0x00), subindex)
	require.Equal(t, value, decoded)
}

func TestEncodeUploadExpeditedResponseRejectsOversizedValue(t *testing.T) {
	_, err := EncodeUploadExpeditedResponse(0x6040, 0, []byte{1, 2, 3, 4, 5})
	require.Error(t, err)
}

func TestSegmentedUploadReassembly(t *testing.T) {
	r := NewReassembler(64)
	chunks := [][]byte{
		[]byte("ecat-"),
		[]byte("axis-"),
		[]byte("01"),
	}
	for i, c := range chunks {
		frame, err := EncodeUploadSegmentResponse(i%2 == 1, c, i == len(chunks)-1)
		require.NoError(t, err)
		segmentLen := 7 - int((frame[0]>>1)&0x07)
		r.Feed(frame[1 : 1+segmentLen])
	}
	require.Equal(t, "ecat-axis-01", string(r.Drain()))
}

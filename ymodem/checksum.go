package ymodem

import (
	"fmt"

	"github.com/sigurn/crc16"
)

// ChecksumMode selects the block check used for a transfer.
// It is chosen once by the receiver during the handshake.
type ChecksumMode int

const (
	// Sum8 is the original XModem 8-bit additive checksum (receiver sent NAK).
	Sum8 ChecksumMode = iota

	// CRC16 is CRC-16/XMODEM (receiver sent 'C').
	CRC16
)

// crcTable is the CRC-16/XMODEM lookup table, built once at package init.
var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// CRC16Update feeds one byte into a running CRC-16/XMODEM value.
func CRC16Update(crc uint16, b byte) uint16 {
	return crc16.Update(crc, []byte{b}, crcTable)
}

// CRC16Sum computes CRC-16/XMODEM (poly 0x1021, init 0) over data.
func CRC16Sum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Sum8Sum returns the sum of all bytes truncated to 8 bits.
func Sum8Sum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Length returns the number of trailer bytes the mode appends to a frame.
func (m ChecksumMode) Length() int {
	if m == CRC16 {
		return 2
	}
	return 1
}

// Compute returns the block check value of data for this mode.
func (m ChecksumMode) Compute(data []byte) uint16 {
	if m == CRC16 {
		return CRC16Sum(data)
	}
	return uint16(Sum8Sum(data))
}

// PutTrailer writes sum into dst most significant byte first.
// dst must hold at least m.Length() bytes.
func (m ChecksumMode) PutTrailer(dst []byte, sum uint16) {
	n := m.Length()
	for i := 0; i < n; i++ {
		dst[n-i-1] = byte(sum >> (8 * i))
	}
}

// Trailer computes and serializes the block check of data.
func (m ChecksumMode) Trailer(data []byte) []byte {
	out := make([]byte, m.Length())
	m.PutTrailer(out, m.Compute(data))
	return out
}

func (m ChecksumMode) String() string {
	switch m {
	case Sum8:
		return "checksum"
	case CRC16:
		return "crc16"
	default:
		return fmt.Sprintf("ChecksumMode(%d)", int(m))
	}
}

// modeFor maps a receiver request byte to a checksum mode.
func modeFor(c byte) (ChecksumMode, bool) {
	switch c {
	case WANTCRC:
		return CRC16, true
	case NAK:
		return Sum8, true
	default:
		return Sum8, false
	}
}

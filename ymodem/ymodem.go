// Package ymodem implements the sending side of the YModem file transfer protocol.
//
// YModem moves a named file over a byte-oriented duplex link such as a serial
// line. Data is carried in fixed-size blocks framed exactly like XModem-1K,
// acknowledged one at a time, with a checksum width negotiated by the receiver.
// The frame layout is wire-compatible with the Christensen/Forsberg protocols
// implemented by lrzsz, so any conformant receiver (rb, ry, bootloaders) can
// take a transfer from this package.
//
// The package is designed as a library: the caller supplies an open Channel
// and a data source, and gets back a single pass/fail result. Adapters for
// serial ports, SSH sessions and plain streams are provided.
package ymodem

import (
	"fmt"
	"time"
)

// Ward Christensen / CP/M control bytes - Don't change these!
const (
	SOH     = 0x01 // Start of 128-byte block
	STX     = 0x02 // Start of 1024-byte block
	EOT     = 0x04 // End of transmission
	ACK     = 0x06 // Positive acknowledge
	NAK     = 0x15 // Negative acknowledge, also requests 8-bit checksum
	CAN     = 'X' & 0x1F
	CPMEOF  = 0x1A // Block padding filler
	WANTCRC = 0x43 // send C not NAK to get crc not checksum
)

// Block sizes
const (
	// ShortBlockSize is the payload size announced by SOH.
	ShortBlockSize = 128

	// LongBlockSize is the payload size announced by STX.
	LongBlockSize = 1024
)

// Transfer policy. These are fixed by the protocol and not configurable.
const (
	// MaxErrors is the number of failed attempts tolerated per block and for EOT.
	MaxErrors = 10

	// WaitForReceiverTimeout bounds the handshake and the ready signal after block 0.
	WaitForReceiverTimeout = 60 * time.Second

	// SendBlockTimeout bounds the wait for a block acknowledgement.
	SendBlockTimeout = 10 * time.Second

	// EOTTimeout bounds the wait for the EOT acknowledgement.
	EOTTimeout = 1 * time.Second

	// PollInterval is how long the reader sleeps when no byte is pending.
	PollInterval = 10 * time.Millisecond
)

var controlNames = map[byte]string{
	SOH:     "SOH",
	STX:     "STX",
	EOT:     "EOT",
	ACK:     "ACK",
	NAK:     "NAK",
	CAN:     "CAN",
	CPMEOF:  "CPMEOF",
	WANTCRC: "C",
}

// ControlName returns the human-readable name for a control byte.
// Unknown bytes are rendered in hex.
func ControlName(b byte) string {
	if name, ok := controlNames[b]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", b)
}

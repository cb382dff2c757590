package ymodem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Frame is one block as it travels on the wire:
//
//	[SOH|STX] [block] [0xFF^block] [payload: 128|1024] [check: 1|2]
//
// The payload always has one of the two fixed sizes; short data must be
// padded with PadBlock before a Frame is built.
type Frame struct {
	Block   byte
	Payload []byte
	Mode    ChecksumMode
}

// HeaderFor returns the start byte announcing a payload of the given size.
func HeaderFor(size int) (byte, error) {
	switch size {
	case LongBlockSize:
		return STX, nil
	case ShortBlockSize:
		return SOH, nil
	default:
		return 0, NewError(ErrInvalidFrame, fmt.Sprintf("payload must be %d or %d bytes, got %d",
			ShortBlockSize, LongBlockSize, size))
	}
}

// NewFrame validates the payload size and builds a frame.
// The payload is referenced, not copied.
func NewFrame(block byte, payload []byte, mode ChecksumMode) (Frame, error) {
	if _, err := HeaderFor(len(payload)); err != nil {
		return Frame{}, err
	}
	return Frame{Block: block, Payload: payload, Mode: mode}, nil
}

// Header returns SOH or STX depending on the payload size.
func (f Frame) Header() byte {
	if len(f.Payload) == LongBlockSize {
		return STX
	}
	return SOH
}

// Complement returns the redundant one's complement of the block number.
func (f Frame) Complement() byte {
	return 0xFF ^ f.Block
}

// Len returns the number of bytes the frame occupies on the wire.
func (f Frame) Len() int {
	return 3 + len(f.Payload) + f.Mode.Length()
}

// MarshalBinary encodes the frame into its wire form.
func (f Frame) MarshalBinary() ([]byte, error) {
	header, err := HeaderFor(len(f.Payload))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, f.Len())
	buf[0] = header
	buf[1] = f.Block
	buf[2] = f.Complement()
	n := copy(buf[3:], f.Payload)
	f.Mode.PutTrailer(buf[3+n:], f.Mode.Compute(f.Payload))
	return buf, nil
}

// PadBlock fills block[n:] with the CP/M EOF pad byte.
func PadBlock(block []byte, n int) {
	for i := n; i < len(block); i++ {
		block[i] = CPMEOF
	}
}

// NameBlock builds the block 0 payload: the lower-cased file name, UTF-8
// encoded and zero-filled to ShortBlockSize.
func NameBlock(name string) ([]byte, error) {
	encoded := []byte(strings.ToLower(name))
	if len(encoded) > ShortBlockSize {
		return nil, NewBlockError(ErrInvalidFrame,
			fmt.Sprintf("file name is %d bytes, limit is %d", len(encoded), ShortBlockSize), 0)
	}
	block := make([]byte, ShortBlockSize)
	copy(block, encoded)
	return block, nil
}

// writeFrame puts a complete frame on the channel and flushes it.
func writeFrame(ch Channel, f Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := ch.Write(buf); err != nil {
		return wrapError(ErrIO, "write frame", int(f.Block), err)
	}
	if err := flushChannel(ch); err != nil {
		return wrapError(ErrIO, "flush frame", int(f.Block), err)
	}
	return nil
}

// writeControl sends a single control byte and flushes it.
func writeControl(ch Channel, b byte) error {
	if _, err := ch.Write([]byte{b}); err != nil {
		return wrapError(ErrIO, "write "+ControlName(b), -1, err)
	}
	if err := flushChannel(ch); err != nil {
		return wrapError(ErrIO, "flush "+ControlName(b), -1, err)
	}
	return nil
}

// readControlByte polls ch until a byte arrives, the timer expires or ctx is done.
// ctx is checked on every iteration so a cancel interrupts a wait within PollInterval.
func readControlByte(ctx context.Context, ch Channel, timer *DeadlineTimer, clock Clock) (byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, wrapError(ErrCancelled, "transfer cancelled", -1, err)
		}

		b, ok, err := ch.TryReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, wrapError(ErrIO, "channel closed", -1, err)
			}
			return 0, wrapError(ErrIO, "read failed", -1, err)
		}
		if ok {
			return b, nil
		}

		if timer.Expired() {
			return 0, NewError(ErrTimeout, "no response")
		}

		select {
		case <-ctx.Done():
			return 0, wrapError(ErrCancelled, "transfer cancelled", -1, ctx.Err())
		case <-clock.After(PollInterval):
		}
	}
}

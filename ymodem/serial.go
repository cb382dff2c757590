package ymodem

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// serialReadTimeout keeps TryReadByte from blocking for more than a tick.
const serialReadTimeout = time.Millisecond

// SerialChannel is a Channel over a serial port.
type SerialChannel struct {
	port    serial.Port
	buf     byteBuffer
	scratch []byte
}

// OpenSerial opens a port at the given baud rate, 8N1, and wraps it.
func OpenSerial(name string, baud int) (*SerialChannel, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	ch, err := NewSerialChannel(port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return ch, nil
}

// NewSerialChannel wraps an already open port.
func NewSerialChannel(port serial.Port) (*SerialChannel, error) {
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set serial read timeout: %w", err)
	}
	return &SerialChannel{
		port:    port,
		scratch: make([]byte, 256),
	}, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// TryReadByte implements Channel.
func (c *SerialChannel) TryReadByte() (byte, bool, error) {
	if b, ok := c.buf.next(); ok {
		return b, true, nil
	}

	n, err := c.port.Read(c.scratch)
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}

	c.buf.fill(c.scratch[:n])
	b, _ := c.buf.next()
	return b, true, nil
}

// Write implements io.Writer.
func (c *SerialChannel) Write(p []byte) (int, error) {
	return c.port.Write(p)
}

// Flush waits until all written bytes have left the UART.
func (c *SerialChannel) Flush() error {
	return c.port.Drain()
}

// Close closes the port.
func (c *SerialChannel) Close() error {
	return c.port.Close()
}

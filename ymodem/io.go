package ymodem

import (
	"io"
	"sync"
)

// Channel is the byte-level duplex link a transfer runs over.
//
// The sender owns the channel for the duration of a transfer. Implementations
// may additionally provide Flush() error; it is called after every frame.
type Channel interface {
	io.Writer

	// TryReadByte returns the next received byte without blocking.
	// ok is false when nothing is pending.
	TryReadByte() (b byte, ok bool, err error)
}

// flushChannel pushes any buffered output to the wire.
func flushChannel(ch Channel) error {
	if f, ok := ch.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// byteBuffer holds the unread part of the last chunk pulled off a link.
type byteBuffer struct {
	rbuf []byte
	rpos int
}

func (b *byteBuffer) next() (byte, bool) {
	if b.rpos >= len(b.rbuf) {
		return 0, false
	}
	c := b.rbuf[b.rpos]
	b.rpos++
	return c, true
}

func (b *byteBuffer) fill(p []byte) {
	b.rbuf = p
	b.rpos = 0
}

// StreamChannel adapts a blocking io.Reader and an io.Writer into a Channel.
// A background goroutine pulls from the reader so TryReadByte never blocks.
type StreamChannel struct {
	reader io.Reader
	writer io.Writer

	chunks  chan []byte
	done    chan struct{}
	readErr error

	mu        sync.Mutex
	buf       byteBuffer
	closeOnce sync.Once
}

// NewStreamChannel starts pumping r and returns a channel writing to w.
func NewStreamChannel(r io.Reader, w io.Writer) *StreamChannel {
	s := &StreamChannel{
		reader: r,
		writer: w,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *StreamChannel) pump() {
	defer close(s.chunks)
	buf := make([]byte, 256)
	for {
		n, err := s.reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// TryReadByte implements Channel.
func (s *StreamChannel) TryReadByte() (byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buf.next(); ok {
		return b, true, nil
	}

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			err := s.readErr
			if err == nil {
				err = io.EOF
			}
			return 0, false, err
		}
		s.buf.fill(chunk)
		b, _ := s.buf.next()
		return b, true, nil
	default:
		return 0, false, nil
	}
}

// Write implements io.Writer.
func (s *StreamChannel) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

// Flush flushes the writer if it buffers.
func (s *StreamChannel) Flush() error {
	if f, ok := s.writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close stops the pump and closes the reader if it can be closed.
func (s *StreamChannel) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.reader.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

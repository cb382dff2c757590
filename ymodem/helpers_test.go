package ymodem

import (
	"errors"
	"sync"
	"time"
)

// fakeClock advances only when the code under test waits on it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sentFrame is a block as decoded by the scripted receiver.
type sentFrame struct {
	Header     byte
	Block      byte
	Complement byte
	Payload    []byte
	Trailer    []byte
}

// sentItem is either a frame or a bare EOT.
type sentItem struct {
	EOT   bool
	Frame sentFrame
}

// scriptedReceiver is an in-memory Channel playing the receiving side.
// Every complete frame or EOT the sender writes is passed to respond, and the
// returned bytes become readable by the sender.
type scriptedReceiver struct {
	mu      sync.Mutex
	mode    ChecksumMode
	inbox   []byte
	pending []byte
	items   []sentItem
	junk    []byte
	flushes int
	respond func(item sentItem, index int) []byte
}

func newScriptedReceiver(mode ChecksumMode, greeting []byte, respond func(sentItem, int) []byte) *scriptedReceiver {
	return &scriptedReceiver{
		mode:    mode,
		inbox:   append([]byte(nil), greeting...),
		respond: respond,
	}
}

// ackingReceiver acknowledges everything and asks for data after block 0.
func ackingReceiver(mode ChecksumMode) *scriptedReceiver {
	return newScriptedReceiver(mode, []byte{requestByte(mode)}, standardReply(mode))
}

func requestByte(mode ChecksumMode) byte {
	if mode == CRC16 {
		return WANTCRC
	}
	return NAK
}

// standardReply behaves like a well-behaved YModem receiver.
func standardReply(mode ChecksumMode) func(sentItem, int) []byte {
	nameSeen := false
	return func(item sentItem, _ int) []byte {
		if item.EOT {
			return []byte{ACK}
		}
		if item.Frame.Block == 0 && !nameSeen {
			nameSeen = true
			return []byte{ACK, requestByte(mode)}
		}
		return []byte{ACK}
	}
}

func (r *scriptedReceiver) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, p...)
	for len(r.pending) > 0 {
		var item sentItem
		switch r.pending[0] {
		case EOT:
			item.EOT = true
			r.pending = r.pending[1:]
		case SOH, STX:
			size := ShortBlockSize
			if r.pending[0] == STX {
				size = LongBlockSize
			}
			need := 3 + size + r.mode.Length()
			if len(r.pending) < need {
				return len(p), nil
			}
			raw := append([]byte(nil), r.pending[:need]...)
			item.Frame = sentFrame{
				Header:     raw[0],
				Block:      raw[1],
				Complement: raw[2],
				Payload:    raw[3 : 3+size],
				Trailer:    raw[3+size:],
			}
			r.pending = r.pending[need:]
		default:
			r.junk = append(r.junk, r.pending[0])
			r.pending = r.pending[1:]
			continue
		}

		r.items = append(r.items, item)
		if r.respond != nil {
			r.inbox = append(r.inbox, r.respond(item, len(r.items)-1)...)
		}
	}
	return len(p), nil
}

func (r *scriptedReceiver) TryReadByte() (byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.inbox) == 0 {
		return 0, false, nil
	}
	b := r.inbox[0]
	r.inbox = r.inbox[1:]
	return b, true, nil
}

func (r *scriptedReceiver) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

func (r *scriptedReceiver) frames() []sentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentFrame
	for _, it := range r.items {
		if !it.EOT {
			out = append(out, it.Frame)
		}
	}
	return out
}

func (r *scriptedReceiver) eotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.EOT {
			n++
		}
	}
	return n
}

// failingChannel fails every operation.
type failingChannel struct {
	readErr  error
	writeErr error
}

var errLinkDown = errors.New("link down")

func (f *failingChannel) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *failingChannel) TryReadByte() (byte, bool, error) {
	return 0, false, f.readErr
}

// failingReader returns data then an error.
type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

package ymodem

import (
	"io"
	"os"
	"time"
)

// Callbacks provides hooks for YModem transfer events.
// All callbacks are optional - nil callbacks use default behavior.
// They observe the transfer and never change its outcome.
type Callbacks struct {
	// OnProgress is called as blocks are acknowledged.
	// filename: name of the file being transferred
	// transferred: data bytes acknowledged so far (padding excluded)
	// total: total bytes to transfer (0 if unknown)
	// rate: transfer rate in bytes per second
	OnProgress func(filename string, transferred, total int64, rate float64)

	// OnFileStart is called once the receiver has answered the handshake.
	OnFileStart func(filename string, size int64)

	// OnFileComplete is called when EOT has been acknowledged.
	// duration: time taken for the transfer
	OnFileComplete func(filename string, bytesTransferred int64, duration time.Duration)

	// OnError is called when a transfer fails.
	// context: description of where the error occurred
	OnError func(err error, context string)

	// OnEvent is called for protocol events (debugging/logging).
	OnEvent func(event Event)

	// OnFileOpen is called when Session.SendPath opens a file.
	// If nil, uses default file opening.
	OnFileOpen func(filename string) (io.Reader, os.FileInfo, error)
}

// Event represents a protocol event for logging/debugging.
type Event struct {
	Type      EventType
	Message   string
	Block     int
	Timestamp time.Time
}

// EventType categorizes protocol events.
type EventType int

const (
	EventHandshake EventType = iota
	EventFrameSent
	EventAck
	EventNak
	EventTimeout
	EventEOT
	EventCancelled
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventHandshake:
		return "handshake"
	case EventFrameSent:
		return "frame-sent"
	case EventAck:
		return "ack"
	case EventNak:
		return "nak"
	case EventTimeout:
		return "timeout"
	case EventEOT:
		return "eot"
	case EventCancelled:
		return "cancelled"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// defaultCallbacks returns a set of callbacks with default implementations.
func defaultCallbacks() *Callbacks {
	return &Callbacks{
		OnProgress:     func(string, int64, int64, float64) {},
		OnFileStart:    func(string, int64) {},
		OnFileComplete: func(string, int64, time.Duration) {},
		OnError:        func(error, string) {},
		OnEvent:        func(Event) {},
		OnFileOpen:     nil, // Use default
	}
}

// mergeCallbacks merges user callbacks with defaults.
// User callbacks override defaults, nil callbacks use defaults.
func mergeCallbacks(user *Callbacks) *Callbacks {
	result := defaultCallbacks()
	if user == nil {
		return result
	}

	if user.OnProgress != nil {
		result.OnProgress = user.OnProgress
	}
	if user.OnFileStart != nil {
		result.OnFileStart = user.OnFileStart
	}
	if user.OnFileComplete != nil {
		result.OnFileComplete = user.OnFileComplete
	}
	if user.OnError != nil {
		result.OnError = user.OnError
	}
	if user.OnEvent != nil {
		result.OnEvent = user.OnEvent
	}
	result.OnFileOpen = user.OnFileOpen

	return result
}

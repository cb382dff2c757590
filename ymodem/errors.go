package ymodem

import (
	"errors"
	"fmt"
)

// Error represents a YModem transfer error
type Error struct {
	// Type is the error type
	Type ErrorType

	// Message is a human-readable error message
	Message string

	// Block is the block number being sent when the error occurred, or -1
	Block int

	// Err is the underlying cause, if any
	Err error
}

// ErrorType categorizes YModem errors
type ErrorType int

const (
	// ErrTimeout indicates no byte arrived before a deadline
	ErrTimeout ErrorType = iota

	// ErrCancelled indicates the caller cancelled the transfer
	ErrCancelled

	// ErrTerminated indicates the receiver sent CAN
	ErrTerminated

	// ErrTooManyErrors indicates a block failed MaxErrors times
	ErrTooManyErrors

	// ErrNoReceiver indicates the receiver never asked for data
	ErrNoReceiver

	// ErrEOTNotAcknowledged indicates EOT was never acknowledged
	ErrEOTNotAcknowledged

	// ErrIO indicates a channel or data source failure
	ErrIO

	// ErrInvalidFrame indicates a frame could not be built from the input
	ErrInvalidFrame
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("ymodem %s: %s", e.Type, e.Message)
	if e.Block >= 0 {
		msg += fmt.Sprintf(" (block: %d)", e.Block)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func (t ErrorType) String() string {
	switch t {
	case ErrTimeout:
		return "timeout"
	case ErrCancelled:
		return "cancelled"
	case ErrTerminated:
		return "terminated"
	case ErrTooManyErrors:
		return "too many errors"
	case ErrNoReceiver:
		return "no receiver"
	case ErrEOTNotAcknowledged:
		return "EOT not acknowledged"
	case ErrIO:
		return "I/O error"
	case ErrInvalidFrame:
		return "invalid frame"
	default:
		return "unknown error"
	}
}

// NewError creates a new YModem error
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Block:   -1,
	}
}

// NewBlockError creates a new YModem error tied to a block number
func NewBlockError(errType ErrorType, message string, block int) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Block:   block,
	}
}

// wrapError creates a YModem error carrying a cause
func wrapError(errType ErrorType, message string, block int, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Block:   block,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return isType(err, ErrTimeout)
}

// IsCancelled checks if an error indicates local cancellation
func IsCancelled(err error) bool {
	return isType(err, ErrCancelled)
}

// IsTerminated checks if the receiver cancelled the transfer
func IsTerminated(err error) bool {
	return isType(err, ErrTerminated)
}

// IsTooManyErrors checks if a block exhausted its retries
func IsTooManyErrors(err error) bool {
	return isType(err, ErrTooManyErrors)
}

// IsNoReceiver checks if the handshake timed out
func IsNoReceiver(err error) bool {
	return isType(err, ErrNoReceiver)
}

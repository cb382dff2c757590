package ymodem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// State is the position of a Sender in the transfer state machine.
type State int

const (
	StateIdle State = iota
	StateHandshaking
	StateSendingName
	StateAwaitingNameAck
	StateSendingData
	StateAwaitingDataAck
	StateSendingEOT
	StateAwaitingEOTAck
	StateEndingBatch
	StateDone
	StateAborted
)

var stateNames = []string{
	"idle",
	"handshaking",
	"sending name",
	"awaiting name ack",
	"sending data",
	"awaiting data ack",
	"sending EOT",
	"awaiting EOT ack",
	"ending batch",
	"done",
	"aborted",
}

func (st State) String() string {
	if st < 0 || int(st) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[st]
}

// Sender runs one YModem transfer at a time over a Channel.
// This implements the stop-and-wait sender: a block is resent unchanged until
// it is acknowledged, and the next block is never sent before that.
type Sender struct {
	// I/O
	ch    Channel
	clock Clock

	// Configuration
	legacyHandshake bool
	endOfBatch      bool

	// Observers
	logger    Logger
	callbacks *Callbacks
	progress  *ProgressTracker

	// State
	mu    sync.Mutex
	state State
	mode  ChecksumMode
}

// SenderConfig holds configuration for a sender.
type SenderConfig struct {
	// LegacyHandshake reads the receiver request twice and keeps the second
	// answer, as some historical senders did. Off by default.
	LegacyHandshake bool

	// EndOfBatch sends the empty block 0 after EOT so batch receivers exit.
	EndOfBatch bool

	Clock            Clock
	Logger           Logger
	Callbacks        *Callbacks
	ProgressInterval time.Duration
}

// DefaultSenderConfig returns a default sender configuration.
func DefaultSenderConfig() *SenderConfig {
	return &SenderConfig{
		Clock:            SystemClock{},
		Logger:           NoopLogger{},
		ProgressInterval: 100 * time.Millisecond,
	}
}

// NewSender creates a new YModem sender.
func NewSender(ch Channel, config *SenderConfig) *Sender {
	if config == nil {
		config = DefaultSenderConfig()
	}

	clock := config.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := config.Logger
	if logger == nil {
		logger = NoopLogger{}
	}
	callbacks := mergeCallbacks(config.Callbacks)

	return &Sender{
		ch:              ch,
		clock:           clock,
		legacyHandshake: config.LegacyHandshake,
		endOfBatch:      config.EndOfBatch,
		logger:          logger,
		callbacks:       callbacks,
		progress:        NewProgressTracker(callbacks.OnProgress, config.ProgressInterval, clock),
		state:           StateIdle,
	}
}

// State returns the current state of the transfer.
func (s *Sender) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the checksum mode negotiated by the last handshake.
func (s *Sender) Mode() ChecksumMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Sender) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Sender) event(t EventType, block int, format string, args ...interface{}) {
	s.callbacks.OnEvent(Event{
		Type:      t,
		Message:   fmt.Sprintf(format, args...),
		Block:     block,
		Timestamp: s.clock.Now(),
	})
}

// Send transfers one named file read from data. size is only used for
// progress reporting and may be 0 when unknown.
//
// Flow:
//  1. Wait for 'C' or NAK to pick the checksum
//  2. Send block 0 with the file name, then wait for the receiver again
//  3. Send 1K data blocks numbered from 1
//  4. Send EOT until acknowledged
func (s *Sender) Send(ctx context.Context, fileName string, data io.Reader, size int64) (err error) {
	defer func() {
		if err != nil {
			s.abort(err)
		}
	}()

	name, err := NameBlock(fileName)
	if err != nil {
		return err
	}

	s.setState(StateHandshaking)
	mode, err := s.handshake(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.logger.Info("Receiver requested %s, sending %q", mode, fileName)
	s.event(EventHandshake, -1, "receiver requested %s", mode)

	s.callbacks.OnFileStart(fileName, size)
	s.progress.Start(fileName, size)

	if err := s.sendBlock(ctx, 0, name, StateSendingName, StateAwaitingNameAck); err != nil {
		return err
	}

	// The receiver opens the file and asks again before data starts
	if _, err := s.waitReceiverRequest(ctx, NewDeadlineTimer(WaitForReceiverTimeout, s.clock).Start()); err != nil {
		return err
	}

	if err := s.sendData(ctx, data); err != nil {
		return err
	}

	if err := s.sendEOT(ctx); err != nil {
		return err
	}

	if s.endOfBatch {
		if err := s.endBatch(ctx); err != nil {
			return err
		}
	}

	s.setState(StateDone)
	duration := s.progress.Complete()
	s.callbacks.OnFileComplete(fileName, s.progress.Transferred(), duration)
	s.logger.Info("Sent %q: %d bytes in %v", fileName, s.progress.Transferred(), duration)
	return nil
}

// abort records a terminal failure.
func (s *Sender) abort(err error) {
	where := s.State().String()
	s.setState(StateAborted)

	if IsCancelled(err) {
		s.event(EventCancelled, -1, "cancelled while %s", where)
		s.logger.Info("Transfer cancelled while %s", where)
	} else {
		s.event(EventError, -1, "%v", err)
		s.logger.Error("Transfer failed while %s: %v", where, err)
	}
	s.callbacks.OnError(err, where)
}

// handshake waits for the receiver to ask for data and returns the checksum it wants.
func (s *Sender) handshake(ctx context.Context) (ChecksumMode, error) {
	timer := NewDeadlineTimer(WaitForReceiverTimeout, s.clock).Start()

	mode, err := s.waitReceiverRequest(ctx, timer)
	if err != nil {
		return mode, err
	}

	if s.legacyHandshake {
		// Historical senders discarded the first answer and used the second
		// one, sharing the same deadline.
		s.logger.Debug("Legacy handshake: first request selected %s, reading again", mode)
		return s.waitReceiverRequest(ctx, timer)
	}
	return mode, nil
}

// waitReceiverRequest reads until 'C' or NAK arrives. Other bytes are skipped.
// A CAN from the receiver ends the wait with ErrTerminated.
func (s *Sender) waitReceiverRequest(ctx context.Context, timer *DeadlineTimer) (ChecksumMode, error) {
	for {
		c, err := readControlByte(ctx, s.ch, timer, s.clock)
		if err != nil {
			if IsTimeout(err) {
				return Sum8, NewError(ErrNoReceiver, "timeout waiting for receiver")
			}
			return Sum8, err
		}

		if c == CAN {
			return Sum8, NewError(ErrTerminated, "receiver cancelled before transfer")
		}
		if mode, ok := modeFor(c); ok {
			return mode, nil
		}
		s.logger.Debug("Ignoring %s while waiting for receiver", ControlName(c))
	}
}

// sendData sends the data source as consecutive 1K blocks starting at block 1.
func (s *Sender) sendData(ctx context.Context, data io.Reader) error {
	buf := make([]byte, LongBlockSize)
	block := byte(1)

	for {
		n, readErr := io.ReadFull(data, buf)
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return wrapError(ErrIO, "read data", int(block), readErr)
		}

		PadBlock(buf, n)
		if err := s.sendBlock(ctx, block, buf, StateSendingData, StateAwaitingDataAck); err != nil {
			return err
		}
		s.progress.Add(int64(n))

		if readErr == io.ErrUnexpectedEOF {
			return nil
		}
		block++
	}
}

// sendBlock writes one frame and resends it unchanged until it is acknowledged.
// The block timer is re-armed for every attempt.
func (s *Sender) sendBlock(ctx context.Context, block byte, payload []byte, sending, awaiting State) error {
	frame, err := NewFrame(block, payload, s.mode)
	if err != nil {
		return err
	}

	timer := NewDeadlineTimer(SendBlockTimeout, s.clock)
	errorCount := 0

	for errorCount < MaxErrors {
		if err := ctx.Err(); err != nil {
			return wrapError(ErrCancelled, "transfer cancelled", int(block), err)
		}

		s.setState(sending)
		timer.Start()
		if err := writeFrame(s.ch, frame); err != nil {
			return err
		}
		s.logger.Debug("%s", FormatFrameLog("Sent", frame))
		s.event(EventFrameSent, int(block), "attempt %d", errorCount+1)

		s.setState(awaiting)
		acked, err := s.awaitBlockResponse(ctx, timer, block)
		if err != nil {
			return err
		}
		if acked {
			return nil
		}
		errorCount++
	}

	return NewBlockError(ErrTooManyErrors, "too many errors caught, abandoning transfer", int(block))
}

// awaitBlockResponse returns true on ACK and false when the block must be resent.
func (s *Sender) awaitBlockResponse(ctx context.Context, timer *DeadlineTimer, block byte) (bool, error) {
	for {
		c, err := readControlByte(ctx, s.ch, timer, s.clock)
		if err != nil {
			if IsTimeout(err) {
				s.logger.Debug("Timeout waiting for ACK of block %d", block)
				s.event(EventTimeout, int(block), "no response within %v", timer.Timeout())
				return false, nil
			}
			return false, atBlock(err, block)
		}

		switch c {
		case ACK:
			s.event(EventAck, int(block), "block acknowledged")
			return true, nil
		case NAK:
			s.logger.Debug("NAK for block %d", block)
			s.event(EventNak, int(block), "block rejected")
			return false, nil
		case CAN:
			return false, NewBlockError(ErrTerminated, "transmission terminated", int(block))
		default:
			s.logger.Debug("Ignoring %s while waiting for ACK of block %d", ControlName(c), block)
		}
	}
}

// sendEOT sends EOT until the receiver acknowledges it.
func (s *Sender) sendEOT(ctx context.Context) error {
	timer := NewDeadlineTimer(EOTTimeout, s.clock)

	for attempt := 1; attempt <= MaxErrors; attempt++ {
		if err := ctx.Err(); err != nil {
			return wrapError(ErrCancelled, "transfer cancelled", -1, err)
		}

		s.setState(StateSendingEOT)
		if err := writeControl(s.ch, EOT); err != nil {
			return err
		}
		timer.Start()
		s.event(EventEOT, -1, "attempt %d", attempt)

		s.setState(StateAwaitingEOTAck)
		c, err := readControlByte(ctx, s.ch, timer, s.clock)
		if err != nil {
			if IsTimeout(err) {
				s.event(EventTimeout, -1, "no response to EOT")
				continue
			}
			return err
		}

		switch c {
		case ACK:
			return nil
		case CAN:
			return NewError(ErrTerminated, "transmission terminated")
		default:
			s.logger.Debug("Got %s in reply to EOT", ControlName(c))
		}
	}

	return NewError(ErrEOTNotAcknowledged, fmt.Sprintf("no ACK after %d EOT attempts", MaxErrors))
}

// endBatch sends an empty block 0, telling a batch receiver no more files follow.
func (s *Sender) endBatch(ctx context.Context) error {
	s.setState(StateEndingBatch)
	if _, err := s.waitReceiverRequest(ctx, NewDeadlineTimer(WaitForReceiverTimeout, s.clock).Start()); err != nil {
		return err
	}
	return s.sendBlock(ctx, 0, make([]byte, ShortBlockSize), StateEndingBatch, StateEndingBatch)
}

// atBlock attaches a block number to an error that has none.
func atBlock(err error, block byte) error {
	var e *Error
	if errors.As(err, &e) && e.Block < 0 {
		e.Block = int(block)
	}
	return err
}

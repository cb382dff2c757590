package ymodem

import (
	"context"
	"io"
	"os"
	path "path/filepath"
	"time"
)

// Session represents a YModem sending session on one channel.
// It provides a high-level API for sending files.
type Session struct {
	// I/O
	ch Channel

	// Configuration
	config *Config

	// Callbacks
	callbacks *Callbacks

	// Time source
	clock Clock

	// Logger
	logger Logger
}

// Config holds session configuration.
// Block sizes, timeouts and retry limits are protocol constants and are not
// part of it.
type Config struct {
	// LegacyHandshake reads the receiver request twice, keeping the second.
	LegacyHandshake bool

	// EndOfBatch terminates the batch with an empty block 0 after EOT.
	EndOfBatch bool

	// Progress update interval
	ProgressInterval time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		LegacyHandshake:  false,
		EndOfBatch:       false,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(config *Config) Option {
	return func(s *Session) {
		s.config = config
	}
}

// WithCallbacks sets the session callbacks.
func WithCallbacks(callbacks *Callbacks) Option {
	return func(s *Session) {
		s.callbacks = mergeCallbacks(callbacks)
	}
}

// WithLogger sets a logger for protocol debugging.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock replaces the time source, mainly for tests.
func WithClock(clock Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// NewSession creates a new YModem session.
func NewSession(ch Channel, opts ...Option) *Session {
	s := &Session{
		ch:        ch,
		config:    DefaultConfig(),
		callbacks: defaultCallbacks(),
		clock:     SystemClock{},
		logger:    NoopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.config == nil {
		s.config = DefaultConfig()
	}

	return s
}

func (s *Session) newSender() *Sender {
	return NewSender(s.ch, &SenderConfig{
		LegacyHandshake:  s.config.LegacyHandshake,
		EndOfBatch:       s.config.EndOfBatch,
		Clock:            s.clock,
		Logger:           s.logger,
		Callbacks:        s.callbacks,
		ProgressInterval: s.config.ProgressInterval,
	})
}

// SendFile sends data under the given file name. size is used for progress
// reporting only and may be 0.
func (s *Session) SendFile(ctx context.Context, fileName string, data io.Reader, size int64) error {
	return s.newSender().Send(ctx, fileName, data, size)
}

// SendPath opens a local file and sends it under its base name.
func (s *Session) SendPath(ctx context.Context, filename string) error {
	open := s.callbacks.OnFileOpen
	if open == nil {
		open = openLocal
	}

	reader, info, err := open(filename)
	if err != nil {
		return wrapError(ErrIO, "open "+filename, -1, err)
	}
	if c, ok := reader.(io.Closer); ok {
		defer c.Close()
	}

	var size int64
	if info != nil {
		size = info.Size()
	}

	return s.SendFile(ctx, path.Base(filename), reader, size)
}

// openLocal is the default file opener.
func openLocal(filename string) (io.Reader, os.FileInfo, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

// SendFile transfers data to the receiver on ch under fileName with the
// standard protocol settings. It blocks until the transfer completes, fails,
// or ctx is cancelled.
func SendFile(ctx context.Context, ch Channel, data io.Reader, fileName string) error {
	return NewSession(ch).SendFile(ctx, fileName, data, 0)
}

package ymodem

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger interface for YModem protocol logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// LogrusLogger sends protocol logs to a logrus entry.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a logger tagged with component=ymodem.
// A nil entry uses the logrus standard logger.
func NewLogrusLogger(entry *logrus.Entry) *LogrusLogger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogrusLogger{entry: entry.WithField("component", "ymodem")}
}

func (l *LogrusLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *LogrusLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *LogrusLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// FileLogger writes debug-level protocol logs to a file
type FileLogger struct {
	*LogrusLogger
	file *os.File
}

// NewFileLogger creates a logger that appends to a file
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(file)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	return &FileLogger{
		LogrusLogger: NewLogrusLogger(logrus.NewEntry(log)),
		file:         file,
	}, nil
}

func (l *FileLogger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NoopLogger does nothing
type NoopLogger struct{}

func (NoopLogger) Debug(format string, args ...interface{}) {}
func (NoopLogger) Info(format string, args ...interface{})  {}
func (NoopLogger) Error(format string, args ...interface{}) {}

// FormatFrameLog formats a frame for logging with payload truncation
func FormatFrameLog(direction string, f Frame) string {
	msg := fmt.Sprintf("%s %s block=%d (cpl=%02x, size=%d, %s=%x)",
		direction, ControlName(f.Header()), f.Block, f.Complement(), len(f.Payload),
		f.Mode, f.Mode.Trailer(f.Payload))

	if len(f.Payload) > 0 {
		displayLen := len(f.Payload)
		if displayLen > 32 {
			msg += fmt.Sprintf(", data=%q...[truncated]", f.Payload[:32])
		} else {
			msg += fmt.Sprintf(", data=%q", f.Payload[:displayLen])
		}
	}

	return msg
}

// LoggingReader wraps a reader and logs all reads
type LoggingReader struct {
	reader io.Reader
	logger Logger
	name   string
}

func NewLoggingReader(reader io.Reader, logger Logger, name string) *LoggingReader {
	return &LoggingReader{
		reader: reader,
		logger: logger,
		name:   name,
	}
}

func (lr *LoggingReader) Read(p []byte) (int, error) {
	n, err := lr.reader.Read(p)
	if lr.logger != nil && n > 0 {
		// Responses are mostly single control bytes, so log every read
		lr.logger.Debug("%s: Read %d bytes: %q", lr.name, n, p[:n])
	}
	if err != nil && err != io.EOF && lr.logger != nil {
		lr.logger.Error("%s: Read error: %v", lr.name, err)
	}
	return n, err
}

// Close closes the wrapped reader when it supports it.
func (lr *LoggingReader) Close() error {
	if c, ok := lr.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// LoggingWriter wraps a writer and logs all writes
type LoggingWriter struct {
	writer io.Writer
	logger Logger
	name   string
}

func NewLoggingWriter(writer io.Writer, logger Logger, name string) *LoggingWriter {
	return &LoggingWriter{
		writer: writer,
		logger: logger,
		name:   name,
	}
}

func (lw *LoggingWriter) Write(p []byte) (int, error) {
	n, err := lw.writer.Write(p)
	if lw.logger != nil && n > 0 {
		data := p[:n]
		if n > 16 {
			lw.logger.Debug("%s: Wrote %d bytes: %q...[truncated]", lw.name, n, data[:16])
		} else {
			lw.logger.Debug("%s: Wrote %d bytes: %q", lw.name, n, data)
		}
	}
	if err != nil && lw.logger != nil {
		lw.logger.Error("%s: Write error: %v", lw.name, err)
	}
	return n, err
}

// Flush flushes the wrapped writer when it buffers.
func (lw *LoggingWriter) Flush() error {
	if f, ok := lw.writer.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

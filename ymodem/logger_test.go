package ymodem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps formatted lines per level.
type recordingLogger struct {
	debug, info, errors []string
}

func (l *recordingLogger) Debug(format string, args ...interface{}) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func TestLogrusLogger(t *testing.T) {
	t.Parallel()
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := NewLogrusLogger(logrus.NewEntry(base))

	logger.Debug("block %d", 4)
	logger.Info("sent %q", "fw.bin")
	logger.Error("failed: %v", errLinkDown)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, "block 4", entries[0].Message)
	assert.Equal(t, `sent "fw.bin"`, entries[1].Message)
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
	for _, e := range entries {
		assert.Equal(t, "ymodem", e.Data["component"])
	}
}

func TestSenderLogsThroughLogrus(t *testing.T) {
	t.Parallel()
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)

	sender := testSender(ackingReceiver(CRC16), func(cfg *SenderConfig) {
		cfg.Logger = NewLogrusLogger(logrus.NewEntry(base))
	})
	require.NoError(t, sender.Send(context.Background(), "log.bin", bytes.NewReader([]byte("abc")), 3))

	var sawFrame bool
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Sent STX block=1") {
			sawFrame = true
		}
	}
	assert.True(t, sawFrame)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestFileLogger(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ymodem.log")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Debug("debug line %d", 1)
	logger.Info("info line")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "debug line 1")
	assert.Contains(t, string(content), "info line")
	assert.Contains(t, string(content), "component=ymodem")
}

func TestFileLoggerBadPath(t *testing.T) {
	t.Parallel()
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)

	var nilLogger *FileLogger
	assert.NoError(t, nilLogger.Close())
}

func TestFormatFrameLog(t *testing.T) {
	t.Parallel()

	short := Frame{Block: 1, Payload: append([]byte("hi"), make([]byte, ShortBlockSize-2)...), Mode: Sum8}
	msg := FormatFrameLog("Sent", short)
	assert.True(t, strings.HasPrefix(msg, "Sent SOH block=1 (cpl=fe, size=128, checksum=d1)"), msg)
	assert.Contains(t, msg, "[truncated]")

	long := Frame{Block: 2, Payload: bytes.Repeat([]byte{'z'}, LongBlockSize), Mode: CRC16}
	msg = FormatFrameLog("Sent", long)
	assert.Contains(t, msg, "STX block=2 (cpl=fd, size=1024, crc16=")
}

func TestLoggingReaderWriter(t *testing.T) {
	t.Parallel()
	logger := &recordingLogger{}

	r := NewLoggingReader(strings.NewReader("\x06"), logger, "rx")
	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, r.Close())

	var out bytes.Buffer
	w := NewLoggingWriter(&out, logger, "tx")
	_, err = w.Write(bytes.Repeat([]byte{'a'}, 40))
	require.NoError(t, err)
	_, err = w.Write([]byte{EOT})
	require.NoError(t, err)
	assert.NoError(t, w.Flush())

	require.Len(t, logger.debug, 3)
	assert.Equal(t, `rx: Read 1 bytes: "\x06"`, logger.debug[0])
	assert.Contains(t, logger.debug[1], "tx: Wrote 40 bytes")
	assert.Contains(t, logger.debug[1], "[truncated]")
	assert.Equal(t, `tx: Wrote 1 bytes: "\x04"`, logger.debug[2])
	assert.Empty(t, logger.errors)
	assert.Equal(t, 41, out.Len())
}

func TestLoggingReaderReportsErrors(t *testing.T) {
	t.Parallel()
	logger := &recordingLogger{}
	r := NewLoggingReader(&failingReader{err: errLinkDown}, logger, "rx")

	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, errLinkDown)
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "link down")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drunlade/go-ymodem/ymodem"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	verbose  = flag.Bool("v", false, "verbose mode")
	quiet    = flag.Bool("q", false, "quiet mode")
	port     = flag.String("port", "", "serial port to send on (default: stdin/stdout)")
	baud     = flag.Int("baud", 115200, "serial baud rate")
	list     = flag.Bool("list", false, "list serial ports and exit")
	legacy   = flag.Bool("legacy-handshake", false, "read the receiver request twice")
	batchEnd = flag.Bool("batch-end", false, "send the empty block 0 after EOT")
	logFile  = flag.String("log", "", "protocol log file (for debugging)")
	help     = flag.Bool("h", false, "show help")
	version  = flag.Bool("version", false, "show version")
)

const versionString = "gsb version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	configureLogging()
	os.Exit(run())
}

// run does the work of main and returns the exit code, so deferred
// cleanup always happens before the process exits.
func run() int {
	if *list {
		ports, err := ymodem.ListPorts()
		if err != nil {
			logrus.WithError(err).Error("Cannot list serial ports")
			return 1
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return 0
	}

	files := flag.Args()
	if len(files) != 1 {
		fmt.Fprintf(os.Stderr, "%s: exactly one file must be specified\n", os.Args[0])
		showUsage(1)
	}
	filename := files[0]

	info, err := os.Stat(filename)
	if err != nil {
		logrus.WithError(err).WithField("file", filename).Error("Cannot access file")
		return 1
	}
	if info.IsDir() {
		logrus.WithField("file", filename).Error("Not a regular file")
		return 1
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	var protoLogger ymodem.Logger = ymodem.NewLogrusLogger(logrus.NewEntry(logrus.StandardLogger()))
	if *logFile != "" {
		fileLogger, err := ymodem.NewFileLogger(*logFile)
		if err != nil {
			logrus.WithError(err).Error("Cannot open log file")
			return 1
		}
		defer fileLogger.Close()
		protoLogger = fileLogger
	}

	channel, closeChannel, err := openChannel(protoLogger)
	if err != nil {
		logrus.WithError(err).Error("Cannot open channel")
		return 1
	}
	defer closeChannel()

	session := ymodem.NewSession(channel,
		ymodem.WithConfig(&ymodem.Config{
			LegacyHandshake:  *legacy,
			EndOfBatch:       *batchEnd,
			ProgressInterval: 250 * time.Millisecond,
		}),
		ymodem.WithCallbacks(newCallbacks()),
		ymodem.WithLogger(protoLogger),
	)

	if err := session.SendPath(ctx, filename); err != nil {
		if !*quiet {
			logrus.WithError(err).WithField("file", filename).Error("Transfer failed")
		}
		return 1
	}
	return 0
}

func configureLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case *quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case *verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// openChannel opens the serial port or falls back to stdin/stdout, the way
// sb is run from a terminal program.
func openChannel(logger ymodem.Logger) (ymodem.Channel, func(), error) {
	if *port != "" {
		ch, err := ymodem.OpenSerial(*port, *baud)
		if err != nil {
			return nil, nil, err
		}
		logrus.WithFields(logrus.Fields{"port": *port, "baud": *baud}).Info("Serial port open")
		return ch, func() { ch.Close() }, nil
	}

	restore := func() {}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		restore = func() { term.Restore(fd, oldState) }
	}

	var reader io.Reader = os.Stdin
	var writer io.Writer = os.Stdout
	if *verbose {
		reader = ymodem.NewLoggingReader(reader, logger, "stdin")
		writer = ymodem.NewLoggingWriter(writer, logger, "stdout")
	}

	ch := ymodem.NewStreamChannel(reader, writer)
	return ch, restore, nil
}

func newCallbacks() *ymodem.Callbacks {
	return &ymodem.Callbacks{
		OnProgress: func(filename string, transferred, total int64, rate float64) {
			if *quiet || !*verbose {
				return
			}
			percent := float64(0)
			if total > 0 {
				percent = float64(transferred) / float64(total) * 100
			}
			fmt.Fprintf(os.Stderr, "\r%s: %.1f%% (%.0f bytes/s)", filename, percent, rate)
		},
		OnFileStart: func(filename string, size int64) {
			logrus.WithFields(logrus.Fields{"file": filename, "size": size}).Info("Sending")
		},
		OnFileComplete: func(filename string, bytesTransferred int64, duration time.Duration) {
			if *verbose {
				fmt.Fprintln(os.Stderr)
			}
			logrus.WithFields(logrus.Fields{
				"file":     filename,
				"bytes":    bytesTransferred,
				"duration": duration,
			}).Info("Completed")
		},
		OnEvent: func(event ymodem.Event) {
			logrus.WithFields(logrus.Fields{
				"event": event.Type,
				"block": event.Block,
			}).Debug(event.Message)
		},
	}
}

func signalContext(sigChan chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func showUsage(exitcode int) {
	fmt.Fprintf(os.Stderr, `%s - send a file with YMODEM protocol

Usage: %s [options] file

Options:
  -port DEV           serial port to send on (default: stdin/stdout)
  -baud N             serial baud rate (default: 115200)
  -list               list serial ports and exit
  -legacy-handshake   read the receiver request twice
  -batch-end          send the empty block 0 after EOT
  -log FILE           protocol log file for debugging
  -h                  show this help message
  -q                  quiet mode, minimal output
  -v                  verbose mode
  -version            show version

Examples:
  %s firmware.bin                          # Send over the controlling tty
  %s -port /dev/ttyUSB0 -baud 9600 app.bin  # Send to a serial bootloader

`, versionString, os.Args[0], os.Args[0], os.Args[0])
	os.Exit(exitcode)
}

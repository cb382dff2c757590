package ymodem

import (
	"context"
	"io"

	"golang.org/x/crypto/ssh"
)

// ReceiveCommand is the remote command started by SSHSession. lrzsz's rb
// accepts a YModem upload on its stdin and answers on its stdout.
const ReceiveCommand = "rb --ymodem"

// SSHSession wraps an SSH session for YModem uploads.
// It manages stdin/stdout/stderr pipes and provides a high-level API.
type SSHSession struct {
	*Session
	sshSession *ssh.Session
	channel    *StreamChannel
	stdin      io.WriteCloser
	stderr     io.Reader
}

// NewSSHSession creates a YModem session from an SSH session.
func NewSSHSession(sshSession *ssh.Session, opts ...Option) (*SSHSession, error) {
	stdin, err := sshSession.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	stderr, err := sshSession.StderrPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	channel := NewStreamChannel(stdout, stdin)

	return &SSHSession{
		Session:    NewSession(channel, opts...),
		sshSession: sshSession,
		channel:    channel,
		stdin:      stdin,
		stderr:     stderr,
	}, nil
}

// SendFile starts the remote receiver and sends a single file to it.
func (s *SSHSession) SendFile(ctx context.Context, filename string, file io.Reader, size int64) error {
	return s.run(ctx, ReceiveCommand, func() error {
		return s.Session.SendFile(ctx, filename, file, size)
	})
}

// SendPath starts the remote receiver and sends a local file to it.
func (s *SSHSession) SendPath(ctx context.Context, filename string) error {
	return s.run(ctx, ReceiveCommand, func() error {
		return s.Session.SendPath(ctx, filename)
	})
}

// run starts cmd remotely, performs the transfer and waits for cmd to exit.
func (s *SSHSession) run(ctx context.Context, cmd string, transfer func() error) error {
	if err := s.sshSession.Start(cmd); err != nil {
		return err
	}

	// Wait for command to finish in background
	done := make(chan error, 1)
	go func() {
		done <- s.sshSession.Wait()
	}()

	err := transfer()

	// Close stdin to signal completion
	s.stdin.Close()

	select {
	case err2 := <-done:
		if err == nil {
			err = err2
		}
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	return err
}

// Close closes the SSH session and cleans up resources.
func (s *SSHSession) Close() error {
	var errs []error

	if s.stdin != nil {
		if err := s.stdin.Close(); err != nil && err != io.EOF {
			errs = append(errs, err)
		}
	}

	if s.channel != nil {
		s.channel.Close()
	}

	if s.sshSession != nil {
		if err := s.sshSession.Close(); err != nil && err != io.EOF {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0] // Return first error
	}

	return nil
}

// Stderr returns the stderr reader for monitoring remote command output.
func (s *SSHSession) Stderr() io.Reader {
	return s.stderr
}

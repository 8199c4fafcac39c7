// Package session obtains remote-shell connection strings from inside
// running containers.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Marker is the token the shell-sharing helper prints in front of the
// connection endpoint. The text after the marker (trimmed) is the endpoint.
// This is the wire contract with the helper and must not change.
const Marker = "ssh session:"

var (
	// ErrTimeout reports that no endpoint line arrived within the
	// negotiation timeout.
	ErrTimeout = errors.New("timed out waiting for session endpoint")

	// ErrNoSession reports that the helper's output ended before an
	// endpoint line was seen.
	ErrNoSession = errors.New("helper exited without printing a session endpoint")
)

// Execer launches a command inside a container and returns its live output
// stream. The gateway satisfies this.
type Execer interface {
	Exec(ctx context.Context, id string, cmd []string) (io.ReadCloser, error)
}

// Negotiator launches the shell-sharing helper inside a container and
// extracts the connection endpoint it prints. Each negotiation is an
// independent helper launch; the negotiator itself holds no per-container
// state and may be invoked repeatedly against the same container.
type Negotiator struct {
	execer  Execer
	command []string
	timeout time.Duration
}

// New creates a Negotiator that runs the given helper command with the
// given timeout. A nil command defaults to tmate in foreground mode.
func New(execer Execer, command []string, timeout time.Duration) *Negotiator {
	if len(command) == 0 {
		command = []string{"tmate", "-F"}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Negotiator{execer: execer, command: command, timeout: timeout}
}

// Negotiate launches the helper inside the container and returns the
// endpoint from the first line containing the marker. On timeout the
// output stream is closed, which tears down the helper's tty, and
// ErrTimeout is returned.
func (n *Negotiator) Negotiate(ctx context.Context, containerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	stream, err := n.execer.Exec(ctx, containerID, n.command)
	if err != nil {
		return "", fmt.Errorf("failed to launch session helper: %w", err)
	}
	defer stream.Close()

	type result struct {
		endpoint string
		err      error
	}
	done := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(stream)
		for scanner.Scan() {
			if endpoint, ok := extractEndpoint(scanner.Text()); ok {
				done <- result{endpoint: endpoint}
				return
			}
		}
		done <- result{err: ErrNoSession}
	}()

	select {
	case r := <-done:
		return r.endpoint, r.err
	case <-ctx.Done():
		// Closing the stream unblocks the scanner goroutine with EOF.
		stream.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

// extractEndpoint returns the trimmed text after the marker, if present.
func extractEndpoint(line string) (string, bool) {
	idx := strings.Index(line, Marker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(line[idx+len(Marker):]), true
}

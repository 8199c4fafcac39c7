// Package gateway adapts the container engine's lifecycle and inspection
// API for the orchestrator.
package gateway

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that the referenced container (or image) does not
// exist in the runtime. The orchestrator uses this distinction to reconcile
// the instance store against runtime truth.
var ErrNotFound = errors.New("not found in container runtime")

// Limits are the fixed resource caps applied to every sandbox container.
type Limits struct {
	MemoryBytes int64
	CPUQuota    int64
	CPUShares   int64

	// MaxRestarts bounds the engine's automatic on-failure restarts.
	MaxRestarts int
}

// Stats is a point-in-time resource reading for one container. Numeric
// fields are zero when the underlying sample is unavailable; stats are
// advisory and never fail on missing counters.
type Stats struct {
	CPUPercent    float64
	MemUsedBytes  uint64
	MemLimitBytes uint64
	Running       bool
}

// MemPercent returns memory usage as a percentage of the limit, or zero
// when no limit is known.
func (s Stats) MemPercent() float64 {
	if s.MemLimitBytes == 0 {
		return 0
	}
	return float64(s.MemUsedBytes) / float64(s.MemLimitBytes) * 100
}

// Gateway defines the container runtime operations the orchestrator needs.
// Implementations must translate engine-specific "no such container" errors
// into ErrNotFound (wrapped, so errors.Is matches).
type Gateway interface {
	// EnsureImage checks local presence of the image and pulls it on miss.
	EnsureImage(ctx context.Context, ref string) error

	// CreateContainer creates and starts a container from the image with
	// the given caps applied, returning the runtime-assigned id.
	CreateContainer(ctx context.Context, ref string, limits Limits) (string, error)

	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RestartContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error

	// ContainerRunning reports whether the container currently runs.
	ContainerRunning(ctx context.Context, id string) (bool, error)

	// Stats returns a single resource reading for the container.
	Stats(ctx context.Context, id string) (Stats, error)

	// Exec launches a command inside a running container and returns its
	// live output stream. Closing the stream terminates the attachment.
	Exec(ctx context.Context, id string, cmd []string) (io.ReadCloser, error)

	// ContainerCounts returns the number of running and total containers
	// known to the engine.
	ContainerCounts(ctx context.Context) (running, total int, err error)
}

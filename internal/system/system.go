// Package system samples host-level resource usage for the stats endpoint.
package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ContainerCounter reports how many containers the runtime currently knows.
type ContainerCounter interface {
	ContainerCounts(ctx context.Context) (running, total int, err error)
}

// Stats is one sample of host usage plus the runtime's container counts.
type Stats struct {
	CPUPercent        float64
	MemPercent        float64
	MemUsedBytes      uint64
	MemTotalBytes     uint64
	DiskPercent       float64
	RunningContainers int
	TotalContainers   int
}

// Sampler reads host metrics and container counts.
type Sampler struct {
	counter ContainerCounter
	root    string
}

// NewSampler creates a Sampler. Disk usage is measured at the filesystem
// root.
func NewSampler(counter ContainerCounter) *Sampler {
	return &Sampler{counter: counter, root: "/"}
}

// Sample reads a point-in-time host snapshot. CPU percent is measured
// against the previous call, so the first sample after startup may read
// zero.
func (s *Sampler) Sample(ctx context.Context) (Stats, error) {
	var out Stats

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return out, fmt.Errorf("failed to sample cpu: %w", err)
	}
	if len(cpuPercents) > 0 {
		out.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to sample memory: %w", err)
	}
	out.MemPercent = vm.UsedPercent
	out.MemUsedBytes = vm.Used
	out.MemTotalBytes = vm.Total

	du, err := disk.UsageWithContext(ctx, s.root)
	if err != nil {
		return out, fmt.Errorf("failed to sample disk: %w", err)
	}
	out.DiskPercent = du.UsedPercent

	running, total, err := s.counter.ContainerCounts(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to count containers: %w", err)
	}
	out.RunningContainers = running
	out.TotalContainers = total

	return out, nil
}

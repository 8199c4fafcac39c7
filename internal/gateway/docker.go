package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerGateway implements Gateway using the Docker SDK. A single client
// handle is shared across all calls.
type DockerGateway struct {
	client      *client.Client
	stopTimeout int // seconds
}

// NewDockerGateway creates a Docker-backed gateway.
func NewDockerGateway(stopTimeoutSeconds int) (*DockerGateway, error) {
	// Initializes client from standard environment variables (DOCKER_HOST, etc.)
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &DockerGateway{client: cli, stopTimeout: stopTimeoutSeconds}, nil
}

// translate maps the engine's "no such object" errors onto ErrNotFound so
// callers can reconcile without importing docker types.
func translate(action string, err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%s: %w", action, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// EnsureImage implements Gateway.EnsureImage.
func (d *DockerGateway) EnsureImage(ctx context.Context, ref string) error {
	// Check if it exists locally first to save time.
	if _, err := d.client.ImageInspect(ctx, ref); err == nil {
		return nil
	}

	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull completes only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// CreateContainer implements Gateway.CreateContainer. The container is
// created with the fixed caps and a bounded on-failure restart policy,
// then started.
func (d *DockerGateway) CreateContainer(ctx context.Context, ref string, limits Limits) (string, error) {
	containerConfig := &container.Config{
		Image: ref,
		Tty:   true,
	}
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			Memory:    limits.MemoryBytes,
			CPUQuota:  limits.CPUQuota,
			CPUShares: limits.CPUShares,
		},
		RestartPolicy: container.RestartPolicy{
			Name:              container.RestartPolicyOnFailure,
			MaximumRetryCount: limits.MaxRestarts,
		},
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}
	return resp.ID, nil
}

// StartContainer implements Gateway.StartContainer.
func (d *DockerGateway) StartContainer(ctx context.Context, id string) error {
	return translate("failed to start container", d.client.ContainerStart(ctx, id, container.StartOptions{}))
}

// StopContainer implements Gateway.StopContainer.
func (d *DockerGateway) StopContainer(ctx context.Context, id string) error {
	timeout := d.stopTimeout
	return translate("failed to stop container", d.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}))
}

// RestartContainer implements Gateway.RestartContainer.
func (d *DockerGateway) RestartContainer(ctx context.Context, id string) error {
	timeout := d.stopTimeout
	return translate("failed to restart container", d.client.ContainerRestart(ctx, id, container.StopOptions{Timeout: &timeout}))
}

// RemoveContainer implements Gateway.RemoveContainer.
func (d *DockerGateway) RemoveContainer(ctx context.Context, id string) error {
	return translate("failed to remove container", d.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}))
}

// ContainerRunning implements Gateway.ContainerRunning.
func (d *DockerGateway) ContainerRunning(ctx context.Context, id string) (bool, error) {
	inspect, err := d.client.ContainerInspect(ctx, id)
	if err != nil {
		return false, translate("failed to inspect container", err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// Stats implements Gateway.Stats. It takes a single non-streaming sample;
// the daemon supplies both the current and the previous CPU accounting
// window in one response.
func (d *DockerGateway) Stats(ctx context.Context, id string) (Stats, error) {
	running, err := d.ContainerRunning(ctx, id)
	if err != nil {
		return Stats{}, err
	}

	resp, err := d.client.ContainerStats(ctx, id, false)
	if err != nil {
		return Stats{}, translate("failed to read container stats", err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Stats{}, fmt.Errorf("failed to decode container stats: %w", err)
	}

	return Stats{
		CPUPercent:    cpuPercent(&raw),
		MemUsedBytes:  raw.MemoryStats.Usage,
		MemLimitBytes: raw.MemoryStats.Limit,
		Running:       running,
	}, nil
}

// cpuPercent derives a CPU percentage from the two accounting windows of a
// stats sample, normalized by elapsed system CPU time and core count.
// Missing or non-advancing counters yield zero; stats are advisory.
func cpuPercent(raw *container.StatsResponse) float64 {
	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || systemDelta <= 0 {
		return 0
	}

	cores := float64(raw.CPUStats.OnlineCPUs)
	if cores == 0 {
		cores = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if cores == 0 {
		return 0
	}

	return cpuDelta / systemDelta * cores * 100
}

// Exec implements Gateway.Exec. The command is attached to a pseudo-tty so
// its output arrives as a plain byte stream; closing the returned stream
// tears down the attachment (and with it the helper's tty).
func (d *DockerGateway) Exec(ctx context.Context, id string, cmd []string) (io.ReadCloser, error) {
	execResp, err := d.client.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          true,
	})
	if err != nil {
		return nil, translate("failed to create exec", err)
	}

	hijack, err := d.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return nil, translate("failed to attach exec", err)
	}

	return &execStream{hijack: hijack}, nil
}

// ContainerCounts implements Gateway.ContainerCounts.
func (d *DockerGateway) ContainerCounts(ctx context.Context) (int, int, error) {
	containers, err := d.client.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list containers: %w", err)
	}

	running := 0
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}
	return running, len(containers), nil
}

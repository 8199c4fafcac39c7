package gateway

import (
	"testing"

	"github.com/docker/docker/api/types/container"
)

func sample(total, preTotal, system, preSystem uint64, online uint32, percpu []uint64) *container.StatsResponse {
	var raw container.StatsResponse
	raw.CPUStats.CPUUsage.TotalUsage = total
	raw.CPUStats.CPUUsage.PercpuUsage = percpu
	raw.CPUStats.SystemUsage = system
	raw.CPUStats.OnlineCPUs = online
	raw.PreCPUStats.CPUUsage.TotalUsage = preTotal
	raw.PreCPUStats.SystemUsage = preSystem
	return &raw
}

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name string
		raw  *container.StatsResponse
		want float64
	}{
		{
			name: "half of one core across four",
			raw:  sample(1_500_000, 1_000_000, 5_000_000, 1_000_000, 4, nil),
			want: 50,
		},
		{
			name: "falls back to percpu length",
			raw:  sample(2_000_000, 1_000_000, 5_000_000, 1_000_000, 0, []uint64{1, 2}),
			want: 50,
		},
		{
			name: "missing previous window",
			raw:  sample(1_000_000, 0, 2_000_000, 0, 4, nil),
			want: 0,
		},
		{
			name: "counters did not advance",
			raw:  sample(1_000_000, 1_000_000, 2_000_000, 1_000_000, 4, nil),
			want: 0,
		},
		{
			name: "no core count available",
			raw:  sample(1_500_000, 1_000_000, 5_000_000, 1_000_000, 0, nil),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cpuPercent(tt.raw)
			if got != tt.want {
				t.Errorf("cpuPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatsMemPercent(t *testing.T) {
	s := Stats{MemUsedBytes: 512, MemLimitBytes: 2048}
	if got := s.MemPercent(); got != 25 {
		t.Errorf("MemPercent() = %v, want 25", got)
	}

	zero := Stats{MemUsedBytes: 512}
	if got := zero.MemPercent(); got != 0 {
		t.Errorf("MemPercent() with no limit = %v, want 0", got)
	}
}

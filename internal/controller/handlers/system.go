package handlers

import (
	"net/http"

	"sandplane/pkg/api"
)

// SystemStats handles GET /system/stats.
// Host readings come from the OS, container counts from the runtime.
func (h *Handlers) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sampler.Sample(r.Context())
	if err != nil {
		h.httpError(w, "failed to sample system stats", "", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.SystemStatsResponse{
		CPUPercent:        stats.CPUPercent,
		MemPercent:        stats.MemPercent,
		MemUsedBytes:      stats.MemUsedBytes,
		MemTotalBytes:     stats.MemTotalBytes,
		DiskPercent:       stats.DiskPercent,
		RunningContainers: stats.RunningContainers,
		TotalContainers:   stats.TotalContainers,
	})
}

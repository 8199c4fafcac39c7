// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// ImageInfo describes one entry of the image catalog.
type ImageInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	RAM         string `json:"ram"`
	CPU         string `json:"cpu"`
}

// ListImagesResponse is the response body for the catalog listing.
type ListImagesResponse struct {
	Images []ImageInfo `json:"images"`
}

// DeployRequest is the request body for provisioning a new instance.
type DeployRequest struct {
	Image string `json:"image"`
}

// DeployResponse is the response body after a successful deploy.
type DeployResponse struct {
	ID              string    `json:"id"`
	ShortID         string    `json:"short_id"`
	Image           string    `json:"image"`
	SessionEndpoint string    `json:"session_endpoint"`
	CreatedAt       time.Time `json:"created_at"`
}

// InstanceResponse represents a stored instance in API responses.
type InstanceResponse struct {
	ID              string    `json:"id"`
	ShortID         string    `json:"short_id"`
	Owner           string    `json:"owner,omitempty"`
	Image           string    `json:"image"`
	SessionEndpoint string    `json:"session_endpoint,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// InstanceStats carries a point-in-time resource reading for one instance.
type InstanceStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemLimitBytes uint64  `json:"mem_limit_bytes"`
	MemPercent    float64 `json:"mem_percent"`
	Running       bool    `json:"running"`
}

// DescribeResponse merges the stored record with a live stats reading.
type DescribeResponse struct {
	Instance InstanceResponse `json:"instance"`
	Stats    InstanceStats    `json:"stats"`
}

// ListInstancesResponse is the response body for the owner listing.
type ListInstancesResponse struct {
	Instances []InstanceResponse `json:"instances"`
	Quota     int                `json:"quota"`
}

// ListAllInstancesResponse is the admin listing across all owners.
type ListAllInstancesResponse struct {
	Owners map[string][]InstanceResponse `json:"owners"`
	Total  int                           `json:"total"`
}

// LifecycleResponse is the response body for start/stop/restart/remove.
// Warning is set when the container operation succeeded but the follow-up
// session renegotiation did not.
type LifecycleResponse struct {
	ID      string `json:"id"`
	ShortID string `json:"short_id"`
	Status  string `json:"status,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// RegenerateSessionResponse is the response body after regenerating a
// session endpoint.
type RegenerateSessionResponse struct {
	ID              string `json:"id"`
	SessionEndpoint string `json:"session_endpoint"`
}

// SystemStatsResponse reports host resource usage and container counts.
type SystemStatsResponse struct {
	CPUPercent        float64 `json:"cpu_percent"`
	MemPercent        float64 `json:"mem_percent"`
	MemUsedBytes      uint64  `json:"mem_used_bytes"`
	MemTotalBytes     uint64  `json:"mem_total_bytes"`
	DiskPercent       float64 `json:"disk_percent"`
	RunningContainers int     `json:"running_containers"`
	TotalContainers   int     `json:"total_containers"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeQuotaExceeded    = "quota_exceeded"
	CodeUnknownImage     = "unknown_image"
	CodeProvisionFailed  = "provision_failed"
	CodeSessionFailed    = "session_failed"
	CodePermissionDenied = "permission_denied"
	CodeNotFound         = "not_found"
	CodeAlreadyGone      = "already_gone"
	CodeNotRunning       = "not_running"
	CodeAmbiguousRef     = "ambiguous_ref"
	CodeRuntimeError     = "runtime_error"
)

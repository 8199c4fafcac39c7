// Package store contains the persisted instance table for sandplane.
package store

import "time"

// Status is the advisory last-observed runtime state of an instance.
// The runtime is authoritative; this value lags until the next read or
// reconciliation.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// ShortIDLength is the short container-id prefix accepted for lookups.
const ShortIDLength = 12

// Instance is one provisioned sandbox record.
// The JSON field names are the persisted wire format and must not change.
type Instance struct {
	ID              string    `json:"container_id"`
	Image           string    `json:"image"`
	SessionEndpoint string    `json:"ssh_command"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// ShortID returns the short form of the container id.
func (i Instance) ShortID() string {
	if len(i.ID) <= ShortIDLength {
		return i.ID
	}
	return i.ID[:ShortIDLength]
}

// Owned pairs an instance with its owner for lookups that cross owners.
type Owned struct {
	Owner    string
	Instance Instance
}

// Table is the full persisted state: owner id to ordered instance list.
type Table map[string][]Instance

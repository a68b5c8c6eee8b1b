// Package manifest records inspect and deploy operations as JSON history
// files so past uploads can be listed and audited.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpInspect represents an archive inspection.
	OpInspect OperationType = "inspect"
	// OpDeploy represents an upload to the deploy endpoint.
	OpDeploy OperationType = "deploy"
)

// Status is the outcome of a recorded operation.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Archive   ArchiveRecord `json:"archive"`
	Mode      string        `json:"mode"`
	// Entrypoint is the path that was resolved or chosen. Empty means none.
	Entrypoint string   `json:"entrypoint,omitempty"`
	Candidates []string `json:"candidates"`
	Plan       string   `json:"plan,omitempty"`
	AppID      string   `json:"app_id,omitempty"`
	Status     Status   `json:"status"`
	Error      string   `json:"error,omitempty"`
}

// ArchiveRecord identifies the archive an operation ran against.
type ArchiveRecord struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

// Record is the caller-supplied part of an entry.
type Record struct {
	Archive    ArchiveRecord
	Mode       string
	Entrypoint string
	Candidates []string
	Plan       string
	AppID      string
	Err        error
}

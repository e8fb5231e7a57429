package server

import (
	"github.com/sanonone/kektorsnb/pkg/driver"
	"github.com/sanonone/kektorsnb/pkg/snapshot"
)

// OperationInfo describes one supported operation kind.
type OperationInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Update bool   `json:"update"`
}

// StatusResponse is the body of successful administrative calls.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SaveResponse reports a snapshot.
type SaveResponse struct {
	Status   string        `json:"status"`
	Snapshot snapshot.Meta `json:"snapshot"`
}

// LoadRequest starts a bulk load of a dataset directory on the server host.
type LoadRequest struct {
	Root      string `json:"root"`
	BatchSize int    `json:"batch_size,omitempty"`
}

// LoadResult is the result of a completed load task.
type LoadResult struct {
	Counts map[string]int64 `json:"counts"`
}

// WorkloadRequest starts a workload run.
type WorkloadRequest struct {
	Operations []driver.Entry `json:"operations"`
	Workers    int            `json:"workers,omitempty"`
}

// TaskResponse is returned when an asynchronous task is accepted.
type TaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

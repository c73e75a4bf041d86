package model

import "time"

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusExpired   JobStatus = "expired"
)

// JobEvent is broadcast over the websocket hub as a job moves through its
// lifecycle.
type JobEvent struct {
	JobID     string    `json:"jobId"`
	Operation string    `json:"operation"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EnqueueResponse is returned by the return-early request path.
type EnqueueResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

package model

import "time"

// JobStatus is the lifecycle state of an asynchronous report job.
type JobStatus string

// Job statuses.
const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Job tracks one report requested through the start/poll API.
type Job struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Result    *Report   `json:"result,omitempty"`
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
}

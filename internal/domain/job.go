package domain

import "time"

// JobStatus enumerates transform job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// TransformJob is one submitted transform request and its lifecycle.
type TransformJob struct {
	ID        string
	Request   TransformRequest
	Status    JobStatus
	Progress  float64
	ResultRef string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy that shares no mutable state with j.
func (j TransformJob) Clone() TransformJob {
	j.Request = j.Request.Clone()
	return j
}

// JobRecord is the persisted history entry the service keeps per transform.
type JobRecord struct {
	ID               string
	ToolID           string
	Quality          Quality
	IsVIP            bool
	Status           JobStatus
	ResultKey        string
	ErrorMessage     string
	ProcessingTimeMs int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

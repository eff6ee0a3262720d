package model

import "time"

// JobStatus is the lifecycle state of a video generation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents a background video generation job
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	VideoURL    *string    `json:"videoUrl,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// VideoJobPayload contains the data for a video generation job
type VideoJobPayload struct {
	Query string `json:"query"`
	IsPro bool   `json:"isPro"`
}

// GenerateVideoRequest is the body of POST /generate-video
type GenerateVideoRequest struct {
	Query string `json:"query" validate:"required,min=3,max=2000"`
	IsPro bool   `json:"is_pro"`
}

// GenerateVideoResponse acknowledges an accepted job
type GenerateVideoResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is the polling view of a job
type JobStatusResponse struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	VideoURL *string   `json:"videoUrl,omitempty"`
}

// DeleteVideosRequest is the body of POST|DELETE /delete/videos
type DeleteVideosRequest struct {
	Filenames []string `json:"filenames" validate:"required,min=1,dive,required"`
}

// DeleteResult is the per-filename outcome of a delete request
type DeleteResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"` // "success" or "error"
	Message  string `json:"message"`
}

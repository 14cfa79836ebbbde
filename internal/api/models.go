package api

import "github.com/dghosef/vscode-flix/internal/scheduler"

// SubmitJobRequest represents the request body for submitting a job.
type SubmitJobRequest struct {
	Kind string `json:"kind" validate:"required"`
	URI  string `json:"uri,omitempty"`
	Src  string `json:"src,omitempty"`
}

// JobResponse represents the response data for an accepted job.
type JobResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	URI  string `json:"uri,omitempty"`
}

// StatsResponse represents the response data for the queue stats endpoint.
type StatsResponse struct {
	scheduler.Stats

	// Pending is the total outstanding work: both lanes plus the
	// transport's in-flight count.
	Pending int `json:"pending"`
}

package events

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus is the terminal state the worker reported for a job.
type JobStatus string

const (
	JobStatusSuccess JobStatus = "success"
	JobStatusFailure JobStatus = "failure"
)

// JobEvent represents the worker's completion or error report for one
// dispatched job. It carries the identifier assigned at submission time so
// subscribers can correlate it back to their request.
type JobEvent struct {
	// ID is the job identifier assigned by the registry.
	ID string `json:"id"`

	// Kind is the request kind of the originating job.
	Kind string `json:"kind"`

	// Status is the terminal status the worker reported.
	Status JobStatus `json:"status"`

	// Result contains the worker's result payload, when any, as raw JSON.
	Result json.RawMessage `json:"result,omitempty"`

	// Message is the worker's human-readable failure message, when any.
	Message string `json:"message,omitempty"`

	// CompletedAt is the timestamp when the event was observed.
	CompletedAt time.Time `json:"completed_at"`
}

// UnmarshalResult decodes the event result into the provided structure.
func (e *JobEvent) UnmarshalResult(v interface{}) error {
	return json.Unmarshal(e.Result, v)
}

// NewJobEvent creates a JobEvent stamped with the current time.
func NewJobEvent(id, kind string, status JobStatus, result json.RawMessage, message string) *JobEvent {
	return &JobEvent{
		ID:          id,
		Kind:        kind,
		Status:      status,
		Result:      result,
		Message:     message,
		CompletedAt: time.Now(),
	}
}

// Handler defines an interface for components that consume job events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// Emitter defines an interface for components that publish job events.
// This lets the transport report results without direct knowledge of who
// is listening.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *JobEvent) error
}

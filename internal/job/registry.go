package job

import (
	"strconv"
	"sync"
)

// Registry assigns each submitted job a unique identifier and retains it so
// the transport layer's caller can correlate asynchronous completion and
// error events back to the job that caused them.
//
// It is safe for concurrent use: the scheduler registers jobs while the
// transport's reader goroutine removes them as results arrive.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	pending map[string]Enqueued
}

// NewRegistry creates an empty registry. Identifiers start at "1".
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[string]Enqueued),
	}
}

// Register allocates the next identifier, stores the enriched job for later
// correlation and returns it. It never fails.
func (r *Registry) Register(j Job) Enqueued {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	ej := Enqueued{
		Job: j,
		ID:  strconv.FormatUint(r.next, 10),
	}
	r.pending[ej.ID] = ej
	return ej
}

// Lookup returns the job registered under id, if any.
func (r *Registry) Lookup(id string) (Enqueued, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ej, ok := r.pending[id]
	return ej, ok
}

// Remove forgets the job registered under id once its completion or error
// event has been delivered. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, id)
}

// Len returns the number of jobs still awaiting a result.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// Clear forgets every registered job. Used by shutdown: jobs that never
// resolved die with the worker.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = make(map[string]Enqueued)
}

package scheduler

import "github.com/dghosef/vscode-flix/internal/job"

// coalescer briefly collects priority-kind jobs keyed by resource URI
// before they reach the priority lane, so a burst of same-tick mutations
// becomes one dispatch wave and rapid-fire edits to a single resource
// collapse to the latest version.
//
// At most one pending entry exists per URI; a new submission for the same
// URI silently replaces the previous one. Owned by the actor goroutine.
type coalescer struct {
	pending map[string]job.Enqueued
}

func newCoalescer() *coalescer {
	return &coalescer{pending: make(map[string]job.Enqueued)}
}

// put records ej as the single pending job for its URI. It reports whether
// this was the first pending entry since the last flush, in which case the
// caller arms the flush window.
func (c *coalescer) put(ej job.Enqueued) (first bool) {
	first = len(c.pending) == 0
	c.pending[ej.URI] = ej
	return first
}

// flush removes and returns all pending jobs as one batch. Order within
// the batch is unspecified beyond "everything pending at flush time enters
// together".
func (c *coalescer) flush() []job.Enqueued {
	if len(c.pending) == 0 {
		return nil
	}
	batch := make([]job.Enqueued, 0, len(c.pending))
	for _, ej := range c.pending {
		batch = append(batch, ej)
	}
	c.pending = make(map[string]job.Enqueued)
	return batch
}

func (c *coalescer) len() int {
	return len(c.pending)
}

func (c *coalescer) clear() {
	c.pending = make(map[string]job.Enqueued)
}

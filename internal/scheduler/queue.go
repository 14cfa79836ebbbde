package scheduler

import "github.com/dghosef/vscode-flix/internal/job"

// lane identifies one of the two dispatch lanes.
type lane int

const (
	lanePriority lane = iota
	laneNormal
)

func (l lane) String() string {
	if l == lanePriority {
		return "priority"
	}
	return "normal"
}

// dualQueue holds jobs awaiting dispatch in two ordered lanes. Priority-lane
// jobs always preempt normal-lane jobs; within a lane order is FIFO except
// for the check-job head-of-line rule in submitNormal.
//
// Not safe for concurrent use: the scheduler's actor goroutine is the sole
// owner.
type dualQueue struct {
	priority []job.Enqueued
	normal   []job.Enqueued

	// newCheck synthesizes a registered check job. Called when a dequeue
	// empties the priority lane, so a consistency check always follows a
	// burst of mutations.
	newCheck func() job.Enqueued
}

// submitNormal inserts a job into the normal lane. A check job displaces
// any check job already queued and takes the head of the lane; the lane
// therefore never holds more than one check, and it is always frontmost
// among normal-lane jobs. Every other kind appends to the tail.
func (q *dualQueue) submitNormal(ej job.Enqueued) {
	if ej.Kind == job.KindCheck {
		q.removeCheck()
		q.normal = append([]job.Enqueued{ej}, q.normal...)
		return
	}
	q.normal = append(q.normal, ej)
}

// submitPriority appends a flushed coalescer batch to the priority lane.
func (q *dualQueue) submitPriority(batch ...job.Enqueued) {
	q.priority = append(q.priority, batch...)
}

// dequeue pops the next job by priority policy. When popping the last
// priority-lane job it primes a fresh check into the normal lane; the
// head-of-line dedup in submitNormal resolves any check already queued
// there. Returns false when both lanes are empty.
func (q *dualQueue) dequeue() (job.Enqueued, bool) {
	if len(q.priority) > 0 {
		ej := q.priority[0]
		q.priority = q.priority[1:]
		if len(q.priority) == 0 {
			q.submitNormal(q.newCheck())
		}
		return ej, true
	}
	if len(q.normal) > 0 {
		ej := q.normal[0]
		q.normal = q.normal[1:]
		return ej, true
	}
	return job.Enqueued{}, false
}

// drainAll discards the contents of both lanes. Shutdown only.
func (q *dualQueue) drainAll() {
	q.priority = nil
	q.normal = nil
}

// pendingCount is the number of jobs held across both lanes.
func (q *dualQueue) pendingCount() int {
	return len(q.priority) + len(q.normal)
}

func (q *dualQueue) removeCheck() {
	for i, ej := range q.normal {
		if ej.Kind == job.KindCheck {
			q.normal = append(q.normal[:i], q.normal[i+1:]...)
			return
		}
	}
}

package scheduler

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dghosef/vscode-flix/internal/job"
)

// newTestQueue returns a dualQueue whose synthesized check jobs carry ids
// "check-1", "check-2", ...
func newTestQueue() *dualQueue {
	var n int
	return &dualQueue{
		newCheck: func() job.Enqueued {
			n++
			return job.Enqueued{
				Job: job.Job{Kind: job.KindCheck},
				ID:  "check-" + strconv.Itoa(n),
			}
		},
	}
}

func enqueued(id string, kind job.Kind) job.Enqueued {
	return job.Enqueued{Job: job.Job{Kind: kind}, ID: id}
}

func TestSubmitNormalAppends(t *testing.T) {
	q := newTestQueue()

	q.submitNormal(enqueued("1", job.KindVersion))
	q.submitNormal(enqueued("2", job.KindCodelens))

	assert.Equal(t, 2, q.pendingCount())
	assert.Equal(t, "1", q.normal[0].ID)
	assert.Equal(t, "2", q.normal[1].ID)
}

func TestSubmitNormalCheckTakesHead(t *testing.T) {
	q := newTestQueue()

	q.submitNormal(enqueued("1", job.KindVersion))
	q.submitNormal(enqueued("2", job.KindCheck))

	require.Len(t, q.normal, 2)
	assert.Equal(t, job.KindCheck, q.normal[0].Kind)
	assert.Equal(t, "1", q.normal[1].ID)
}

func TestSubmitNormalCheckDedup(t *testing.T) {
	q := newTestQueue()

	q.submitNormal(enqueued("1", job.KindCheck))
	q.submitNormal(enqueued("2", job.KindVersion))
	q.submitNormal(enqueued("3", job.KindCheck))

	// Exactly one check job, at the head, carrying the later submission.
	require.Len(t, q.normal, 2)
	assert.Equal(t, "3", q.normal[0].ID)
	assert.Equal(t, job.KindCheck, q.normal[0].Kind)
	assert.Equal(t, "2", q.normal[1].ID)
}

func TestDequeuePriorityFirst(t *testing.T) {
	q := newTestQueue()

	q.submitNormal(enqueued("n1", job.KindVersion))
	q.submitPriority(enqueued("p1", job.KindAddUri), enqueued("p2", job.KindRemUri))

	first, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "p1", first.ID)

	second, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "p2", second.ID)
}

func TestDequeuePrimesCheckWhenPriorityLaneEmpties(t *testing.T) {
	q := newTestQueue()

	q.submitPriority(enqueued("p1", job.KindAddUri))
	q.submitNormal(enqueued("n1", job.KindVersion))

	_, ok := q.dequeue()
	require.True(t, ok)

	// The synthesized check is the next normal-lane candidate, ahead of
	// the previously queued job.
	next, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, job.KindCheck, next.Kind)
	assert.Equal(t, "check-1", next.ID)

	last, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, "n1", last.ID)
}

func TestDequeueSynthesizedCheckReplacesQueuedCheck(t *testing.T) {
	q := newTestQueue()

	q.submitNormal(enqueued("c-old", job.KindCheck))
	q.submitPriority(enqueued("p1", job.KindAddUri))

	_, ok := q.dequeue()
	require.True(t, ok)

	// The head-of-line dedup resolves the synthesized check against the
	// queued one: a single check remains, the fresher one.
	require.Len(t, q.normal, 1)
	assert.Equal(t, "check-1", q.normal[0].ID)
}

func TestDequeueEmpty(t *testing.T) {
	q := newTestQueue()

	_, ok := q.dequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.pendingCount())
}

func TestDrainAll(t *testing.T) {
	q := newTestQueue()

	q.submitPriority(enqueued("p1", job.KindAddUri))
	q.submitNormal(enqueued("n1", job.KindVersion))
	require.Equal(t, 2, q.pendingCount())

	q.drainAll()
	assert.Equal(t, 0, q.pendingCount())
	_, ok := q.dequeue()
	assert.False(t, ok)
}

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dghosef/vscode-flix/internal/job"
)

// mockTransport records every job handed to it. The inFlight field is set
// by tests that exercise the transport-reported pending count.
type mockTransport struct {
	mu       sync.Mutex
	sent     []job.Enqueued
	inFlight int

	// failKinds makes Send fail for the listed kinds.
	failKinds map[job.Kind]bool
}

func (m *mockTransport) Send(ej job.Enqueued) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failKinds[ej.Kind] {
		return errors.New("connection reset")
	}
	m.sent = append(m.sent, ej)
	return nil
}

func (m *mockTransport) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

func (m *mockTransport) sentJobs() []job.Enqueued {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]job.Enqueued, len(m.sent))
	copy(out, m.sent)
	return out
}

// mockWorker is a switchable readiness source.
type mockWorker struct {
	ready atomic.Bool
}

func (m *mockWorker) Ready() bool {
	return m.ready.Load()
}

// mockLoader serves text and base64 content from maps; anything absent
// fails like a missing file.
type mockLoader struct {
	texts map[string]string
	blobs map[string]string
}

func (m *mockLoader) ReadText(uri string) (string, error) {
	if src, ok := m.texts[uri]; ok {
		return src, nil
	}
	return "", errors.New("no such file")
}

func (m *mockLoader) ReadBase64(uri string) (string, error) {
	if b64, ok := m.blobs[uri]; ok {
		return b64, nil
	}
	return "", errors.New("no such file")
}

// mockNotifier records reported dispatch errors.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *mockNotifier) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type fixture struct {
	sched     *Scheduler
	transport *mockTransport
	worker    *mockWorker
	loader    *mockLoader
	notifier  *mockNotifier
	registry  *job.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		transport: &mockTransport{},
		worker:    &mockWorker{},
		loader: &mockLoader{
			texts: map[string]string{},
			blobs: map[string]string{},
		},
		notifier: &mockNotifier{},
		registry: job.NewRegistry(),
	}

	f.sched = New(
		f.transport,
		f.worker,
		f.loader,
		f.notifier,
		f.registry,
		Config{FlushWindow: 25 * time.Millisecond},
		setupTestLogger(),
	)
	f.sched.Start()
	t.Cleanup(f.sched.Stop)
	return f
}

// waitSent blocks until the transport has seen at least n jobs.
func (f *fixture) waitSent(t *testing.T, n int) []job.Enqueued {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.transport.sentJobs()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return f.transport.sentJobs()
}

// waitPriorityLane blocks until the priority lane holds n jobs, i.e. the
// coalescer flush has happened.
func (f *fixture) waitPriorityLane(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.sched.Stats().PriorityLane == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEnqueueDispatchesWhenWorkerReady(t *testing.T) {
	f := newFixture(t)
	f.worker.ready.Store(true)

	ej := f.sched.Enqueue(job.Job{Kind: job.KindVersion})

	sent := f.waitSent(t, 1)
	assert.Equal(t, ej.ID, sent[0].ID)
	assert.Equal(t, job.KindVersion, sent[0].Kind)
}

func TestWorkerNotReadySuspendsWithoutConsuming(t *testing.T) {
	f := newFixture(t)

	f.sched.Enqueue(job.Job{Kind: job.KindVersion})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, f.transport.sentJobs())

	st := f.sched.Stats()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.NormalLane)

	// The readiness signal resumes dispatch.
	f.worker.ready.Store(true)
	f.sched.OnWorkerReady()
	sent := f.waitSent(t, 1)
	assert.Equal(t, job.KindVersion, sent[0].Kind)
}

func TestPriorityLaneDrainsBeforeNormal(t *testing.T) {
	f := newFixture(t)

	f.sched.Enqueue(job.Job{Kind: job.KindVersion})
	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "def a = 1"})
	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///b.flix", Src: "def b = 2"})

	f.waitPriorityLane(t, 2)
	f.worker.ready.Store(true)
	f.sched.OnWorkerReady()

	sent := f.waitSent(t, 4)
	require.Len(t, sent, 4)

	// Both priority jobs first (batch order unspecified), then the
	// synthesized check, then the normal job.
	assert.True(t, sent[0].Kind.Priority())
	assert.True(t, sent[1].Kind.Priority())
	assert.Equal(t, job.KindCheck, sent[2].Kind)
	assert.Equal(t, job.KindVersion, sent[3].Kind)
}

func TestSameResourceSubmissionsCoalesce(t *testing.T) {
	f := newFixture(t)

	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "v1"})
	later := f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "v2"})

	f.waitPriorityLane(t, 1)
	f.worker.ready.Store(true)
	f.sched.OnWorkerReady()

	sent := f.waitSent(t, 1)
	assert.Equal(t, later.ID, sent[0].ID)
	assert.Equal(t, "v2", sent[0].Src)

	// Only the later submission and the synthesized check ever go out.
	sent = f.waitSent(t, 2)
	require.Len(t, sent, 2)
	assert.Equal(t, job.KindCheck, sent[1].Kind)
}

func TestRapidBurstFlushesAsOneBatch(t *testing.T) {
	f := newFixture(t)

	// addUri(A), addUri(B), addUri(A) before any flush: the lane receives
	// the later A exactly once, plus B.
	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "v1"})
	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///b.flix", Src: "b"})
	laterA := f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "v2"})

	f.waitPriorityLane(t, 2)
	f.worker.ready.Store(true)
	f.sched.OnWorkerReady()

	sent := f.waitSent(t, 3)
	require.Len(t, sent, 3)

	byURI := map[string]job.Enqueued{}
	for _, ej := range sent[:2] {
		byURI[ej.URI] = ej
	}
	require.Contains(t, byURI, "file:///a.flix")
	require.Contains(t, byURI, "file:///b.flix")
	assert.Equal(t, laterA.ID, byURI["file:///a.flix"].ID)
	assert.Equal(t, "v2", byURI["file:///a.flix"].Src)
	assert.Equal(t, job.KindCheck, sent[2].Kind)
}

func TestPendingCountAfterInitialize(t *testing.T) {
	f := newFixture(t)

	f.sched.InitializeQueues([]job.Job{
		{Kind: job.KindAddUri, URI: "file:///a.flix", Src: "a"},
		{Kind: job.KindAddUri, URI: "file:///b.flix", Src: "b"},
		{Kind: job.KindVersion},
	})

	// Worker never became ready: nothing dispatched, everything pending.
	assert.Equal(t, 3, f.sched.PendingCount())
	assert.Empty(t, f.transport.sentJobs())
}

func TestPendingCountIncludesTransportInFlight(t *testing.T) {
	f := newFixture(t)

	f.sched.InitializeQueues([]job.Job{{Kind: job.KindVersion}})
	f.transport.mu.Lock()
	f.transport.inFlight = 2
	f.transport.mu.Unlock()

	assert.Equal(t, 3, f.sched.PendingCount())
}

func TestSinglePumpCycleDispatchesWholeBacklog(t *testing.T) {
	f := newFixture(t)
	f.worker.ready.Store(true)

	f.sched.InitializeQueues([]job.Job{
		{Kind: job.KindVersion},
		{Kind: job.KindCodelens},
		{Kind: job.KindHover},
	})

	sent := f.waitSent(t, 3)
	require.Len(t, sent, 3)

	// One bulk load, one pump start: redundant wake-ups during the cycle
	// must not start a second one.
	assert.Equal(t, uint64(1), f.sched.Stats().PumpStarts)

	// An idle, empty scheduler ignores readiness signals entirely.
	f.sched.OnWorkerReady()
	f.sched.OnWorkerReady()
	assert.Equal(t, uint64(1), f.sched.Stats().PumpStarts)

	// New work starts exactly one more cycle.
	f.sched.Enqueue(job.Job{Kind: job.KindVersion})
	f.waitSent(t, 4)
	assert.Equal(t, uint64(2), f.sched.Stats().PumpStarts)
}

func TestLoadFailureSkipsJobAndContinues(t *testing.T) {
	f := newFixture(t)
	f.loader.texts["file:///good.flix"] = "def ok = 1"

	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///missing.flix"})
	f.sched.Enqueue(job.Job{Kind: job.KindAddUri, URI: "file:///good.flix"})

	f.waitPriorityLane(t, 2)
	f.worker.ready.Store(true)
	f.sched.OnWorkerReady()

	// The failed job is skipped, not retried; the good one goes out with
	// its loaded source, followed by the synthesized check.
	sent := f.waitSent(t, 2)
	require.Len(t, sent, 2)
	assert.Equal(t, "file:///good.flix", sent[0].URI)
	assert.Equal(t, "def ok = 1", sent[0].Src)
	assert.Equal(t, job.KindCheck, sent[1].Kind)

	messages := f.notifier.all()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "file:///missing.flix")
}

func TestSendFailureSkipsJobAndContinues(t *testing.T) {
	f := newFixture(t)
	f.worker.ready.Store(true)
	f.transport.failKinds = map[job.Kind]bool{job.KindCodelens: true}

	f.sched.Enqueue(job.Job{Kind: job.KindCodelens})
	f.sched.Enqueue(job.Job{Kind: job.KindVersion})

	sent := f.waitSent(t, 1)
	assert.Equal(t, job.KindVersion, sent[0].Kind)

	messages := f.notifier.all()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], string(job.KindCodelens))
}

func TestTerminateBypassesQueues(t *testing.T) {
	f := newFixture(t)

	// Three jobs queued behind a worker that never became ready.
	f.sched.InitializeQueues([]job.Job{
		{Kind: job.KindVersion},
		{Kind: job.KindCodelens},
		{Kind: job.KindHover},
	})
	require.Equal(t, 3, f.sched.PendingCount())

	terminated := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		terminated <- f.sched.Terminate(ctx)
	}()

	// The shutdown job goes straight to the transport, ahead of all
	// queued work.
	sent := f.waitSent(t, 1)
	require.Len(t, sent, 1)
	assert.Equal(t, job.ShutdownID, sent[0].ID)
	assert.Equal(t, job.KindShutdown, sent[0].Kind)

	// Completion signals for other ids are ignored by the coordinator.
	f.sched.OnJobDone("42")
	select {
	case <-terminated:
		t.Fatal("terminate returned before the shutdown completion signal")
	case <-time.After(50 * time.Millisecond):
	}

	f.sched.OnJobDone(job.ShutdownID)
	require.NoError(t, <-terminated)

	assert.Equal(t, 0, f.sched.PendingCount())
	assert.Equal(t, 0, f.registry.Len())
}

func TestTerminateHonorsContext(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := f.sched.Terminate(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

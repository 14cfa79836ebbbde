// Package scheduler mediates between callers submitting compiler requests
// and the single long-running worker process behind one serialized
// transport. It owns the priority coalescer, the dual dispatch lanes, the
// single-flight dispatch pump and the shutdown coordinator.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dghosef/vscode-flix/internal/job"
)

// Transport delivers enqueued jobs to the worker process. Send is
// fire-and-forget from the scheduler's point of view: completion and error
// events come back asynchronously through the transport's own reader and
// never steer the dispatch loop, except for the shutdown identifier.
type Transport interface {
	// Send hands one job to the worker.
	Send(ej job.Enqueued) error

	// InFlight is the number of sent jobs the worker has not yet resolved.
	InFlight() int
}

// Readiness reports whether the worker can accept work. Checked at the top
// of every dispatch attempt; never polled while idle.
type Readiness interface {
	Ready() bool
}

// Loader supplies resource content for jobs submitted without an inline
// payload.
type Loader interface {
	// ReadText returns the raw text of the resource at uri.
	ReadText(uri string) (string, error)

	// ReadBase64 returns the resource's bytes base64-encoded.
	ReadBase64(uri string) (string, error)
}

// Notifier is the one-way sink for human-readable dispatch errors. The
// scheduler never retries a failed job; it reports and moves on.
type Notifier interface {
	Notify(message string)
}

// Config holds tunables for the scheduler.
type Config struct {
	// FlushWindow is how long the coalescer holds the first pending
	// priority job before flushing everything collected so far into the
	// priority lane as one batch.
	FlushWindow time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		FlushWindow: 5 * time.Millisecond,
	}
}

// Stats is a point-in-time snapshot of scheduler state, exposed for the
// debug API and for tests.
type Stats struct {
	PriorityLane int    `json:"priority_lane"`
	NormalLane   int    `json:"normal_lane"`
	InFlight     int    `json:"in_flight"`
	Running      bool   `json:"running"`
	PumpStarts   uint64 `json:"pump_starts"`
}

// Scheduler owns all queue state. A single actor goroutine executes every
// state transition; public methods deliver their work to it as messages,
// so submissions can never interleave inside a dequeue-and-dispatch step.
type Scheduler struct {
	transport Transport
	worker    Readiness
	loader    Loader
	notifier  Notifier
	registry  *job.Registry
	config    Config
	logger    *slog.Logger

	cmds chan func()
	quit chan struct{}

	// shutdownDone is signaled by OnJobDone when the worker resolves the
	// shutdown job.
	shutdownDone chan struct{}

	// State below is owned by the run goroutine.
	queue      *dualQueue
	pending    *coalescer
	flushTimer *time.Timer
	running    bool
	pumpStarts uint64
}

// New creates a scheduler. Call Start before submitting work.
func New(
	transport Transport,
	worker Readiness,
	loader Loader,
	notifier Notifier,
	registry *job.Registry,
	config Config,
	logger *slog.Logger,
) *Scheduler {
	if config.FlushWindow <= 0 {
		config.FlushWindow = DefaultConfig().FlushWindow
	}

	s := &Scheduler{
		transport:    transport,
		worker:       worker,
		loader:       loader,
		notifier:     notifier,
		registry:     registry,
		config:       config,
		logger:       logger,
		cmds:         make(chan func()),
		quit:         make(chan struct{}),
		shutdownDone: make(chan struct{}, 1),
		pending:      newCoalescer(),
	}

	s.queue = &dualQueue{
		newCheck: func() job.Enqueued {
			return s.registry.Register(job.Job{Kind: job.KindCheck})
		},
	}

	// Created stopped; armed when the coalescer goes non-empty.
	s.flushTimer = time.NewTimer(config.FlushWindow)
	if !s.flushTimer.Stop() {
		<-s.flushTimer.C
	}

	return s
}

// Start launches the actor goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop ends the actor goroutine. Pending jobs are left in place; Stop is
// for process teardown after Terminate, not a drain.
func (s *Scheduler) Stop() {
	close(s.quit)
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.quit:
			return
		case fn := <-s.cmds:
			fn()
		case <-s.flushTimer.C:
			s.flushPending()
		}
	}
}

// do runs fn on the actor goroutine and waits for it to complete.
func (s *Scheduler) do(fn func()) {
	done := make(chan struct{})
	select {
	case s.cmds <- func() {
		fn()
		close(done)
	}:
		<-done
	case <-s.quit:
	}
}

// Enqueue registers the job and routes it to the coalescer or the normal
// lane. It returns the enriched job immediately; dispatch happens whenever
// the worker is ready.
func (s *Scheduler) Enqueue(j job.Job) job.Enqueued {
	ej := s.registry.Register(j)
	s.do(func() { s.submit(ej) })
	return ej
}

// InitializeQueues resets the running state and bulk-loads jobs at startup.
// Priority jobs enter the priority lane directly: they already form one
// batch, so the coalescer's flush window would only delay them.
func (s *Scheduler) InitializeQueues(jobs []job.Job) {
	s.do(func() {
		s.running = false
		for _, j := range jobs {
			ej := s.registry.Register(j)
			if ej.Kind.Priority() {
				s.queue.submitPriority(ej)
			} else {
				s.queue.submitNormal(ej)
			}
		}
		s.logger.Info("queues initialized", "job_count", len(jobs))
		s.requestPump()
	})
}

// PendingCount is the number of jobs held in both lanes plus the
// transport's own in-flight count.
func (s *Scheduler) PendingCount() int {
	var queued int
	s.do(func() { queued = s.queue.pendingCount() })
	return queued + s.transport.InFlight()
}

// Stats returns a snapshot of the scheduler's state.
func (s *Scheduler) Stats() Stats {
	var st Stats
	s.do(func() {
		st = Stats{
			PriorityLane: len(s.queue.priority),
			NormalLane:   len(s.queue.normal),
			Running:      s.running,
			PumpStarts:   s.pumpStarts,
		}
	})
	st.InFlight = s.transport.InFlight()
	return st
}

// OnWorkerReady is the transport's hook for "worker became ready" events.
// It restarts the pump if any jobs are waiting.
func (s *Scheduler) OnWorkerReady() {
	s.do(func() {
		if s.queue.pendingCount() > 0 {
			s.requestPump()
		}
	})
}

// OnJobDone is the transport's per-identifier completion hook. The
// scheduler's control flow only cares about the shutdown identifier;
// everything else is correlated by the registry's caller.
func (s *Scheduler) OnJobDone(id string) {
	if id != job.ShutdownID {
		return
	}
	select {
	case s.shutdownDone <- struct{}{}:
	default:
	}
}

// Terminate sends the distinguished shutdown job straight to the transport,
// bypassing both lanes, then blocks until the worker's completion signal
// for that identifier arrives and all queue state has been cleared. There
// is no retry; the caller bounds the wait through ctx.
func (s *Scheduler) Terminate(ctx context.Context) error {
	ej := job.Enqueued{
		Job: job.Job{Kind: job.KindShutdown},
		ID:  job.ShutdownID,
	}
	if err := s.transport.Send(ej); err != nil {
		return fmt.Errorf("failed to send shutdown job: %w", err)
	}

	s.logger.Info("shutdown job sent, waiting for worker")

	select {
	case <-s.shutdownDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.do(s.clearAll)
	return nil
}

// submit routes one registered job. Actor goroutine only.
func (s *Scheduler) submit(ej job.Enqueued) {
	if ej.Kind.Priority() {
		if first := s.pending.put(ej); first {
			s.flushTimer.Reset(s.config.FlushWindow)
		}
		s.logger.Debug("holding priority job for coalescing",
			"job_id", ej.ID,
			"kind", string(ej.Kind),
			"uri", ej.URI,
			"pending", s.pending.len())
		return
	}

	s.queue.submitNormal(ej)
	s.logger.Debug("job queued",
		"job_id", ej.ID,
		"kind", string(ej.Kind),
		"lane", laneNormal.String())
	s.requestPump()
}

// flushPending moves everything the coalescer holds into the priority lane
// as one batch. Actor goroutine only.
func (s *Scheduler) flushPending() {
	batch := s.pending.flush()
	if len(batch) == 0 {
		return
	}
	s.queue.submitPriority(batch...)
	s.logger.Debug("flushed priority batch",
		"batch_size", len(batch),
		"lane", lanePriority.String())
	s.requestPump()
}

// requestPump starts a dispatch cycle unless one is already active.
// Redundant wake-ups coalesce into the running cycle. Actor goroutine only.
func (s *Scheduler) requestPump() {
	if s.running {
		return
	}
	s.running = true
	s.pumpStarts++
	s.pump()
}

// pump is one dispatch cycle: while the worker is ready, pull the next job
// by priority policy, load any missing payload and hand it to the
// transport. It does not wait for job results, only for the worker's
// readiness to accept work. Actor goroutine only.
func (s *Scheduler) pump() {
	for {
		if !s.worker.Ready() {
			// Suspend without consuming a job. The next readiness signal
			// or submission starts a fresh cycle.
			s.running = false
			return
		}

		ej, ok := s.queue.dequeue()
		if !ok {
			s.running = false
			return
		}

		if err := s.loadPayload(&ej); err != nil {
			s.notifier.Notify(err.Error())
			s.logger.Error("skipping job, payload load failed",
				"job_id", ej.ID,
				"kind", string(ej.Kind),
				"uri", ej.URI,
				"error", err)
			continue
		}

		if err := s.transport.Send(ej); err != nil {
			s.notifier.Notify(fmt.Sprintf("failed to send %s job for %s: %v", ej.Kind, ej.URI, err))
			s.logger.Error("skipping job, send failed",
				"job_id", ej.ID,
				"kind", string(ej.Kind),
				"error", err)
			continue
		}

		s.logger.Debug("job dispatched",
			"job_id", ej.ID,
			"kind", string(ej.Kind))
	}
}

// loadPayload fills in the inline content for kinds that require one but
// were submitted without it.
func (s *Scheduler) loadPayload(ej *job.Enqueued) error {
	switch {
	case ej.Kind.NeedsText() && ej.Src == "":
		src, err := s.loader.ReadText(ej.URI)
		if err != nil {
			return fmt.Errorf("failed to read source %s: %w", ej.URI, err)
		}
		ej.Src = src
	case ej.Kind.NeedsBase64() && ej.Base64 == "":
		b64, err := s.loader.ReadBase64(ej.URI)
		if err != nil {
			return fmt.Errorf("failed to read package %s: %w", ej.URI, err)
		}
		ej.Base64 = b64
	}
	return nil
}

// clearAll wipes both lanes, the coalescing map, the running flag and the
// registry. Actor goroutine only; shutdown only.
func (s *Scheduler) clearAll() {
	s.queue.drainAll()
	s.pending.clear()
	if !s.flushTimer.Stop() {
		select {
		case <-s.flushTimer.C:
		default:
		}
	}
	s.running = false
	s.registry.Clear()
	s.logger.Info("queue state cleared")
}

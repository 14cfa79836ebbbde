// Package transport carries jobs to the compiler process over its single
// serialized socket connection and turns the worker's asynchronous
// messages back into readiness signals and job events.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dghosef/vscode-flix/internal/events"
	"github.com/dghosef/vscode-flix/internal/job"
)

// maxMessageSize bounds a single worker message. Check results for large
// projects run to megabytes.
const maxMessageSize = 16 * 1024 * 1024

// Hooks are the scheduler's entry points, invoked from the reader
// goroutine. Either may be nil.
type Hooks struct {
	// WorkerReady fires whenever the worker reports itself ready.
	WorkerReady func()

	// JobDone fires with the job identifier of every completion or error
	// event.
	JobDone func(id string)
}

// workerMessage is the envelope the worker writes, one JSON object per
// line.
type workerMessage struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SocketTransport sends jobs as newline-delimited JSON over a net.Conn and
// consumes the worker's event stream on a reader goroutine. It implements
// the scheduler's Transport and Readiness interfaces.
type SocketTransport struct {
	conn     net.Conn
	registry *job.Registry
	emitter  events.Emitter
	hooks    Hooks
	logger   *slog.Logger

	// writeMu serializes job writes onto the single connection.
	writeMu sync.Mutex

	mu       sync.Mutex
	inFlight map[string]struct{}

	ready  atomic.Bool
	closed atomic.Bool
}

// Dial connects to the worker at addr. Call Start once the hooks' targets
// exist.
func Dial(
	addr string,
	timeout time.Duration,
	registry *job.Registry,
	emitter events.Emitter,
	logger *slog.Logger,
) (*SocketTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to worker at %s: %w", addr, err)
	}
	return New(conn, registry, emitter, logger), nil
}

// New wraps an established connection. The reader goroutine does not run
// until Start, so the scheduler the hooks point at can be built after the
// transport it depends on.
func New(
	conn net.Conn,
	registry *job.Registry,
	emitter events.Emitter,
	logger *slog.Logger,
) *SocketTransport {
	return &SocketTransport{
		conn:     conn,
		registry: registry,
		emitter:  emitter,
		logger:   logger.With("component", "socket_transport"),
		inFlight: make(map[string]struct{}),
	}
}

// Start attaches the scheduler hooks and launches the reader goroutine.
func (t *SocketTransport) Start(hooks Hooks) {
	t.hooks = hooks
	go t.readLoop()
}

// Send writes one job to the worker as a single JSON line and records it
// as in-flight. Fire-and-forget: the result arrives later on the reader
// goroutine.
func (t *SocketTransport) Send(ej job.Enqueued) error {
	data, err := json.Marshal(ej)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", ej.ID, err)
	}
	data = append(data, '\n')

	// Recorded before the write: the worker may answer before Write
	// returns, and the reader must find the id in flight.
	t.mu.Lock()
	t.inFlight[ej.ID] = struct{}{}
	t.mu.Unlock()

	t.writeMu.Lock()
	_, err = t.conn.Write(data)
	t.writeMu.Unlock()
	if err != nil {
		t.mu.Lock()
		delete(t.inFlight, ej.ID)
		t.mu.Unlock()
		return fmt.Errorf("failed to write job %s: %w", ej.ID, err)
	}

	t.logger.Debug("job sent",
		"job_id", ej.ID,
		"kind", string(ej.Kind))
	return nil
}

// InFlight is the number of sent jobs the worker has not yet resolved.
func (t *SocketTransport) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}

// Ready reports whether the worker has announced readiness for work.
func (t *SocketTransport) Ready() bool {
	return t.ready.Load()
}

// Close tears down the connection; the reader goroutine exits on the
// resulting read error.
func (t *SocketTransport) Close() error {
	t.closed.Store(true)
	t.ready.Store(false)
	return t.conn.Close()
}

func (t *SocketTransport) readLoop() {
	scanner := bufio.NewScanner(t.conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg workerMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			t.logger.Error("discarding undecodable worker message", "error", err)
			continue
		}
		t.handle(msg)
	}

	if err := scanner.Err(); err != nil && !t.closed.Load() {
		t.logger.Error("worker connection lost", "error", err)
	}
	t.ready.Store(false)
}

func (t *SocketTransport) handle(msg workerMessage) {
	switch msg.Status {
	case "ready":
		t.ready.Store(true)
		t.logger.Debug("worker reported ready")
		if t.hooks.WorkerReady != nil {
			t.hooks.WorkerReady()
		}

	case "success", "failure":
		t.resolve(msg)

	default:
		t.logger.Warn("unknown worker message status",
			"status", msg.Status,
			"job_id", msg.ID)
	}
}

// resolve retires one in-flight job: it leaves the in-flight set and the
// registry, becomes a JobEvent for subscribers, and reaches the scheduler
// through the JobDone hook. Observing the shutdown identifier clears the
// whole in-flight set, since the worker is gone.
func (t *SocketTransport) resolve(msg workerMessage) {
	t.mu.Lock()
	delete(t.inFlight, msg.ID)
	if msg.ID == job.ShutdownID {
		t.inFlight = make(map[string]struct{})
	}
	t.mu.Unlock()

	kind := string(job.KindShutdown)
	if msg.ID != job.ShutdownID {
		kind = ""
		if ej, ok := t.registry.Lookup(msg.ID); ok {
			kind = string(ej.Kind)
		}
		t.registry.Remove(msg.ID)
	}

	status := events.JobStatusSuccess
	if msg.Status == "failure" {
		status = events.JobStatusFailure
	}

	event := events.NewJobEvent(msg.ID, kind, status, msg.Result, msg.Message)
	if err := t.emitter.EmitEvent(context.Background(), event); err != nil {
		t.logger.Error("failed to emit job event",
			"job_id", msg.ID,
			"error", err)
	}

	if t.hooks.JobDone != nil {
		t.hooks.JobDone(msg.ID)
	}
}

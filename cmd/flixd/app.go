package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dghosef/vscode-flix/internal/api"
	"github.com/dghosef/vscode-flix/internal/config"
	"github.com/dghosef/vscode-flix/internal/events"
	"github.com/dghosef/vscode-flix/internal/job"
	"github.com/dghosef/vscode-flix/internal/loader"
	"github.com/dghosef/vscode-flix/internal/platform/logger"
	"github.com/dghosef/vscode-flix/internal/scheduler"
	"github.com/dghosef/vscode-flix/internal/transport"
)

// shutdownTimeout bounds the wait for the worker to acknowledge the
// shutdown job and for the debug server to drain.
const shutdownTimeout = 10 * time.Second

// application holds the wired components of the running daemon.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	registry  *job.Registry
	emitter   *events.InMemoryEmitter
	transport *transport.SocketTransport
	sched     *scheduler.Scheduler
	server    *http.Server
}

// slogNotifier surfaces dispatch errors through the structured log. A
// richer host registers an event handler on the emitter instead.
type slogNotifier struct {
	logger *slog.Logger
}

func (n *slogNotifier) Notify(message string) {
	n.logger.Error("dispatch error", "message", message)
}

// newApplication loads configuration and wires every component together:
// registry, emitter, socket transport, scheduler and the debug server.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_addr", cfg.Worker.Addr)

	registry := job.NewRegistry()
	emitter := events.NewInMemoryEmitter(log)

	tr, err := transport.Dial(cfg.Worker.Addr, cfg.Worker.ConnectTimeout, registry, emitter, log)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(
		tr,
		tr,
		loader.NewFileLoader(),
		&slogNotifier{logger: log},
		registry,
		scheduler.Config{FlushWindow: cfg.Queue.FlushWindow},
		log,
	)
	sched.Start()

	// The reader only starts once the scheduler the hooks target exists.
	tr.Start(transport.Hooks{
		WorkerReady: sched.OnWorkerReady,
		JobDone:     sched.OnJobDone,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(sched, log),
	}

	return &application{
		config:    cfg,
		logger:    log,
		registry:  registry,
		emitter:   emitter,
		transport: tr,
		sched:     sched,
		server:    server,
	}, nil
}

// runServe is the serve command body: wire everything, run until a signal
// arrives, then shut down in order.
func runServe(ctx context.Context) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	return app.run(ctx)
}

func (app *application) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("debug server listening", "addr", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("debug server failed: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	return app.shutdown()
}

// shutdown terminates the worker first, so queued state is cleared before
// the transport goes away, then drains the debug server.
func (app *application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.sched.Terminate(ctx); err != nil {
		app.logger.Error("worker did not acknowledge shutdown", "error", err)
	}
	app.sched.Stop()

	if err := app.transport.Close(); err != nil {
		app.logger.Error("failed to close worker connection", "error", err)
	}

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down debug server: %w", err)
	}

	app.logger.Info("shutdown complete")
	return nil
}

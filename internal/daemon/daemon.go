package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"dualsub/internal/config"
	"dualsub/internal/deps"
	"dualsub/internal/logging"
	"dualsub/internal/orchestrator"
	"dualsub/internal/tasks"
)

// stopTimeout bounds how long Stop waits for running pipelines to unwind.
const stopTimeout = 30 * time.Second

// Daemon owns the background download service and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *tasks.Store
	orch   *orchestrator.Orchestrator

	api      *apiServer
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	TaskDBPath   string
	LockFilePath string
	LibraryDir   string
	TaskCounts   map[tasks.Status]int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *tasks.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "dualsubd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers interrupted tasks, resumes
// pending ones, and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dualsub daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if missing := deps.MissingRequired(deps.CheckBinaries(deps.Required(d.cfg))); len(missing) > 0 {
		d.logger.Warn("required external tools are missing",
			logging.String("binaries", strings.Join(missing, ", ")),
		)
	}

	restored, err := d.orch.RecoverTasks(d.ctx)
	if err != nil {
		d.releaseStart()
		return fmt.Errorf("recover tasks: %w", err)
	}
	if restored > 0 {
		d.logger.Info("recovered interrupted tasks", logging.Int64("count", restored))
	}
	if err := d.orch.ResumePending(d.ctx); err != nil {
		d.releaseStart()
		return fmt.Errorf("resume pending tasks: %w", err)
	}

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseStart()
		return fmt.Errorf("build api server: %w", err)
	}
	if server != nil {
		if err := server.start(d.ctx); err != nil {
			d.releaseStart()
			return err
		}
	}
	d.api = server

	d.running.Store(true)
	d.logger.Info("dualsub daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	_ = d.lock.Unlock()
}

// Stop shuts down the API, interrupts running downloads, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := d.orch.Stop(stopCtx); err != nil {
		d.logger.Warn("orchestrator did not stop cleanly", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("dualsub daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the address the HTTP API is listening on, or empty when
// the API is not running.
func (d *Daemon) APIAddr() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		TaskDBPath:   d.store.Path(),
		LockFilePath: d.lockPath,
		LibraryDir:   d.cfg.Paths.LibraryDir,
		Dependencies: deps.CheckBinaries(deps.Required(d.cfg)),
	}
	counts, err := d.orch.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to load task stats", logging.Error(err))
	} else {
		status.TaskCounts = counts
	}
	return status
}

// Submit registers a download for the URL and starts it when it lands in
// pending. Deduplicated, already-completed, and resolve-failed submissions
// return their record without starting anything.
func (d *Daemon) Submit(ctx context.Context, url string) (*tasks.Task, error) {
	task, err := d.orch.CreateTask(ctx, url)
	if err != nil {
		return nil, err
	}
	if task.Status == tasks.StatusPending {
		if err := d.orch.StartTask(ctx, task.ID); err != nil {
			var stateErr *orchestrator.InvalidStateError
			if !errors.As(err, &stateErr) {
				return task, err
			}
			// Lost a start race; the task is already moving.
		}
		if fresh, err := d.orch.GetTask(ctx, task.ID); err == nil && fresh != nil {
			task = fresh
		}
	}
	return task, nil
}

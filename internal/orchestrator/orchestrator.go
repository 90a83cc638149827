package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dualsub/internal/config"
	"dualsub/internal/logging"
	"dualsub/internal/media"
	"dualsub/internal/mux"
	"dualsub/internal/services"
	"dualsub/internal/tasks"
)

// Embedder is the slice of the mux package the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, req mux.Request) (string, error)
}

// Orchestrator owns the download task lifecycle: creation with
// deduplication, admission through a concurrency cap, the download and
// subtitle pipeline, retry with backoff, cancellation, and crash recovery.
type Orchestrator struct {
	cfg      *config.Config
	store    *tasks.Store
	fetcher  media.Fetcher
	embedder Embedder
	logger   *slog.Logger

	sem         chan struct{}
	backoffBase time.Duration

	mu      sync.Mutex
	running map[string]*runningTask
	wg      sync.WaitGroup
}

type runningTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithFetcher injects a media fetcher (used in tests).
func WithFetcher(f media.Fetcher) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.fetcher = f
		}
	}
}

// WithEmbedder injects a subtitle embedder (used in tests).
func WithEmbedder(e Embedder) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.embedder = e
		}
	}
}

// WithBackoffBase overrides the retry backoff base delay (used in tests).
func WithBackoffBase(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.backoffBase = d
		}
	}
}

// New constructs an orchestrator. Without options it builds the real yt-dlp
// fetcher and ffmpeg embedder from configuration.
func New(cfg *config.Config, store *tasks.Store, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	maxConcurrent := cfg.Downloads.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	o := &Orchestrator{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "orchestrator"),
		sem:         make(chan struct{}, maxConcurrent),
		backoffBase: time.Second,
		running:     make(map[string]*runningTask),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		languages := []string{cfg.Subtitles.PrimaryLanguage, cfg.Subtitles.SecondaryLanguage}
		client, err := media.New(
			cfg.Downloads.YtdlpBinary,
			cfg.Downloads.ResolveTimeoutSeconds,
			cfg.Downloads.FetchTimeoutSeconds,
			languages,
		)
		if err != nil {
			return nil, fmt.Errorf("build fetcher: %w", err)
		}
		o.fetcher = client
	}
	if o.embedder == nil {
		o.embedder = mux.NewEmbedder(cfg.Subtitles.FFmpegBinary, logger)
	}
	return o, nil
}

// CreateTask registers a download task for the URL. Submissions always leave
// a persisted record behind: duplicates return the existing record, resolve
// failures persist a failed record, and already-downloaded content persists a
// synthesized completed record.
func (o *Orchestrator) CreateTask(ctx context.Context, url string) (*tasks.Task, error) {
	active, err := o.store.ActiveByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("check active tasks: %w", err)
	}
	if active != nil {
		o.logger.Info("reusing active task",
			logging.String(logging.FieldTaskID, active.ID),
			logging.String(logging.FieldURL, url),
		)
		return active, nil
	}

	info, resolveErr := o.fetcher.ResolveIdentity(ctx, url)
	if resolveErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		task := &tasks.Task{
			ID:            uuid.NewString(),
			URL:           url,
			Status:        tasks.StatusFailed,
			ErrorMessage:  resolveErr.Error(),
			StatusMessage: "Failed to resolve video",
		}
		if err := o.store.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("persist failed task: %w", err)
		}
		o.logger.Warn("task creation failed at resolve",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String(logging.FieldURL, url),
			logging.Error(resolveErr),
		)
		return task, nil
	}

	if info.Title != "" {
		completed, err := o.store.CompletedByTitle(ctx, info.Title)
		if err != nil {
			return nil, fmt.Errorf("check completed tasks: %w", err)
		}
		if completed != nil {
			o.logger.Info("reusing completed task",
				logging.String(logging.FieldTaskID, completed.ID),
				logging.String("title", info.Title),
			)
			return completed, nil
		}
	}

	if path, size, ok := o.existingOutput(info.ID); ok {
		now := time.Now().UTC()
		task := &tasks.Task{
			ID:              uuid.NewString(),
			URL:             url,
			VideoID:         info.ID,
			Title:           info.Title,
			Status:          tasks.StatusCompleted,
			Progress:        100,
			StatusMessage:   "File already downloaded",
			FilePath:        path,
			DurationSeconds: info.DurationSeconds,
			DownloadedBytes: size,
			TotalBytes:      size,
			CompletedAt:     &now,
		}
		if err := o.store.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("persist synthesized task: %w", err)
		}
		o.logger.Info("file already on disk, synthesized completed task",
			logging.String(logging.FieldTaskID, task.ID),
			logging.String("file_path", path),
		)
		return task, nil
	}

	task := &tasks.Task{
		ID:            uuid.NewString(),
		URL:           url,
		VideoID:       info.ID,
		Title:         info.Title,
		Status:        tasks.StatusPending,
		StatusMessage: "Queued",
	}
	task.DurationSeconds = info.DurationSeconds
	if err := o.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}
	o.logger.Info("task created",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldURL, url),
		logging.String("title", info.Title),
	)
	return task, nil
}

// StartTask transitions a pending task to downloading and launches its
// pipeline. Only pending tasks may start; anything else returns
// InvalidStateError.
func (o *Orchestrator) StartTask(ctx context.Context, id string) error {
	task, err := o.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return services.Wrap(services.ErrNotFound, "orchestrator", "start", fmt.Sprintf("task %s not found", id), nil)
	}
	if task.Status != tasks.StatusPending {
		return &InvalidStateError{TaskID: id, Status: task.Status, Op: "start"}
	}

	now := time.Now().UTC()
	patch := tasks.NewPatch().
		WithStatus(tasks.StatusDownloading).
		WithStartedAt(now).
		WithStatusMessage("Waiting for download slot").
		WithErrorMessage("")
	// Conditional update keeps the pending check atomic; a concurrent starter
	// loses the race here instead of launching a second pipeline.
	claimed, err := o.store.ApplyIfStatus(ctx, id, patch, tasks.StatusPending)
	if err != nil {
		return fmt.Errorf("mark downloading: %w", err)
	}
	if !claimed {
		current, err := o.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if current == nil {
			return services.Wrap(services.ErrNotFound, "orchestrator", "start", fmt.Sprintf("task %s not found", id), nil)
		}
		return &InvalidStateError{TaskID: id, Status: current.Status, Op: "start"}
	}
	task.Status = tasks.StatusDownloading
	task.StartedAt = &now

	runCtx, cancel := context.WithCancel(context.Background())
	entry := &runningTask{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	o.running[id] = entry
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(entry.done)
		defer func() {
			o.mu.Lock()
			delete(o.running, id)
			o.mu.Unlock()
		}()
		o.runTask(runCtx, task)
	}()

	o.logger.Info("task started",
		logging.String(logging.FieldTaskID, id),
		logging.String(logging.FieldURL, task.URL),
	)
	return nil
}

// CancelTask cancels a pending or downloading task. It reports false when
// the task does not exist or is already terminal. For running tasks it
// interrupts the pipeline and waits for it to unwind before finalizing.
func (o *Orchestrator) CancelTask(ctx context.Context, id string) (bool, error) {
	task, err := o.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load task: %w", err)
	}
	if task == nil || !task.Status.IsActive() {
		return false, nil
	}

	o.mu.Lock()
	entry := o.running[id]
	o.mu.Unlock()

	if entry != nil {
		entry.cancel()
		select {
		case <-entry.done:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	now := time.Now().UTC()
	patch := tasks.NewPatch().
		WithStatus(tasks.StatusCancelled).
		WithStatusMessage(tasks.CancelledMessage).
		WithCompletedAt(now)
	// The pipeline may have reached a terminal state while we waited; only a
	// still-active row is finalized as cancelled.
	cancelled, err := o.store.ApplyIfStatus(ctx, id, patch, tasks.StatusPending, tasks.StatusDownloading)
	if err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	if !cancelled {
		return false, nil
	}
	o.cleanupStaging(task)
	o.logger.Info("task cancelled", logging.String(logging.FieldTaskID, id))
	return true, nil
}

// GetTask returns the current persisted state of a task, or nil.
func (o *Orchestrator) GetTask(ctx context.Context, id string) (*tasks.Task, error) {
	return o.store.Get(ctx, id)
}

// ListTasks returns tasks filtered by the given statuses (all when empty).
func (o *Orchestrator) ListTasks(ctx context.Context, statuses ...tasks.Status) ([]*tasks.Task, error) {
	return o.store.List(ctx, statuses...)
}

// Stats returns task counts grouped by status.
func (o *Orchestrator) Stats(ctx context.Context) (map[tasks.Status]int, error) {
	return o.store.Stats(ctx)
}

// RecoverTasks re-admits tasks stranded in downloading by a previous
// process. They return to pending with a restored note.
func (o *Orchestrator) RecoverTasks(ctx context.Context) (int64, error) {
	count, err := o.store.ResetStuckDownloading(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		o.logger.Info("restored interrupted tasks", logging.Int64("count", count))
	}
	return count, nil
}

// ResumePending starts every pending task. Used after crash recovery.
func (o *Orchestrator) ResumePending(ctx context.Context) error {
	pending, err := o.store.List(ctx, tasks.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	for _, task := range pending {
		if err := o.StartTask(ctx, task.ID); err != nil {
			o.logger.Warn("failed to resume task",
				logging.String(logging.FieldTaskID, task.ID),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Stop interrupts all running pipelines and waits for them to unwind.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	for _, entry := range o.running {
		entry.cancel()
	}
	o.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) existingOutput(videoID string) (string, int64, bool) {
	if videoID == "" {
		return "", 0, false
	}
	for _, name := range []string{media.SubbedFileName(videoID), media.VideoFileName(videoID)} {
		path := filepath.Join(o.cfg.Paths.LibraryDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, info.Size(), true
		}
	}
	return "", 0, false
}

func (o *Orchestrator) cleanupStaging(task *tasks.Task) {
	dir := o.stagingDir(task)
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn("failed to clean staging directory",
			logging.String(logging.FieldTaskID, task.ID),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) stagingDir(task *tasks.Task) string {
	if o.cfg.Paths.StagingDir == "" {
		return ""
	}
	return filepath.Join(o.cfg.Paths.StagingDir, task.ID)
}

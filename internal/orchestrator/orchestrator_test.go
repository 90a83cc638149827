package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dualsub/internal/config"
	"dualsub/internal/logging"
	"dualsub/internal/media"
	"dualsub/internal/mux"
	"dualsub/internal/orchestrator"
	"dualsub/internal/services"
	"dualsub/internal/subtitle"
	"dualsub/internal/tasks"
	"dualsub/internal/testsupport"
)

const primaryVTT = `WEBVTT

00:00:00.000 --> 00:00:02.000
你好世界

00:00:02.000 --> 00:00:04.000
再见
`

const secondaryVTT = `WEBVTT

00:00:00.100 --> 00:00:02.100
Hello world

00:00:02.100 --> 00:00:04.100
Goodbye
`

type fakeFetcher struct {
	mu           sync.Mutex
	info         media.VideoInfo
	resolveErr   error
	fetchErrs    []error
	fetchCalls   int32
	active       int32
	maxActive    int32
	started      chan struct{}
	startedOnce  sync.Once
	languages    []string
	hold         bool
	attemptTimes []time.Time
}

func newFakeFetcher(videoID, title string) *fakeFetcher {
	return &fakeFetcher{
		info:      media.VideoInfo{ID: videoID, Title: title, DurationSeconds: 4},
		started:   make(chan struct{}),
		languages: []string{"zh-CN", "en"},
	}
}

func (f *fakeFetcher) ResolveIdentity(ctx context.Context, url string) (media.VideoInfo, error) {
	if f.resolveErr != nil {
		return media.VideoInfo{}, f.resolveErr
	}
	return f.info, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, videoID, destDir string, progress func(media.Progress)) (media.FetchResult, error) {
	atomic.AddInt32(&f.fetchCalls, 1)
	current := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		prev := atomic.LoadInt32(&f.maxActive)
		if current <= prev || atomic.CompareAndSwapInt32(&f.maxActive, prev, current) {
			break
		}
	}
	f.startedOnce.Do(func() { close(f.started) })

	if f.hold {
		<-ctx.Done()
		return media.FetchResult{}, ctx.Err()
	}

	f.mu.Lock()
	f.attemptTimes = append(f.attemptTimes, time.Now())
	var err error
	if len(f.fetchErrs) > 0 {
		err = f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return media.FetchResult{}, err
	}

	if progress != nil {
		progress(media.Progress{Percent: 50, DownloadedBytes: 512, TotalBytes: 1024, Speed: 256, ETASeconds: 2})
		progress(media.Progress{Percent: 100, DownloadedBytes: 1024, TotalBytes: 1024, Speed: 256})
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return media.FetchResult{}, err
	}
	videoPath := filepath.Join(destDir, media.VideoFileName(videoID))
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		return media.FetchResult{}, err
	}
	sidecars := make(map[string]string)
	for _, lang := range f.languages {
		content := secondaryVTT
		if lang == "zh-CN" {
			content = primaryVTT
		}
		path := filepath.Join(destDir, videoID+"."+lang+".vtt")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return media.FetchResult{}, err
		}
		sidecars[lang] = path
	}
	return media.FetchResult{VideoPath: videoPath, Subtitles: sidecars}, nil
}

type fakeEmbedder struct {
	calls int32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, req mux.Request) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(req.OutputPath, []byte("subbed"), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, fetcher media.Fetcher, embedder orchestrator.Embedder) (*orchestrator.Orchestrator, *tasks.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	orch, err := orchestrator.New(cfg, store, logging.NewNop(),
		orchestrator.WithFetcher(fetcher),
		orchestrator.WithEmbedder(embedder),
		orchestrator.WithBackoffBase(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Stop(ctx)
	})
	return orch, store
}

func waitForStatus(t *testing.T, store *tasks.Store, id string, want tasks.Status) *tasks.Task {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		task, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if task != nil && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	task, _ := store.Get(context.Background(), id)
	t.Fatalf("task %s never reached %q, last: %+v", id, want, task)
	return nil
}

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestCreateTaskDeduplicatesActiveURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, _ := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	first, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	second, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected dedup to reuse task %s, got %s", first.ID, second.ID)
	}
}

func TestCreateTaskPersistsFailureOnResolveError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("", "")
	fetcher.resolveErr = services.Wrap(services.ErrNotFound, "media", "resolve", "video unavailable", nil)
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})

	task, err := orch.CreateTask(context.Background(), testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != tasks.StatusFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
	if task.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}

	stored, err := store.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored == nil || stored.Status != tasks.StatusFailed {
		t.Fatalf("failed task not persisted: %+v", stored)
	}
}

func TestCreateTaskReusesCompletedTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	done := testsupport.NewTask(t, store, "https://www.youtube.com/watch?v=other000001")
	if _, err := store.Apply(ctx, done.ID, tasks.NewPatch().
		WithStatus(tasks.StatusCompleted).
		WithTitle("Demo")); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != done.ID {
		t.Fatalf("expected completed task reuse, got %s", task.ID)
	}
}

func TestCreateTaskSynthesizesForExistingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, _ := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})

	existing := filepath.Join(cfg.Paths.LibraryDir, media.VideoFileName("dQw4w9WgXcQ"))
	testsupport.WriteFile(t, existing, 2048)

	task, err := orch.CreateTask(context.Background(), testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != tasks.StatusCompleted {
		t.Fatalf("status = %q, want completed", task.Status)
	}
	if task.Progress != 100 || task.FilePath != existing {
		t.Fatalf("unexpected synthesized task: %+v", task)
	}
	if task.TotalBytes != 2048 {
		t.Fatalf("total bytes = %d", task.TotalBytes)
	}
}

func TestStartTaskRequiresPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	task := testsupport.NewTask(t, store, testURL)
	if _, err := store.Apply(ctx, task.ID, tasks.NewPatch().WithStatus(tasks.StatusCompleted)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	err := orch.StartTask(ctx, task.ID)
	var invalid *orchestrator.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if invalid.Status != tasks.StatusCompleted {
		t.Fatalf("error status = %q", invalid.Status)
	}

	if err := orch.StartTask(ctx, "no-such-task"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestStartTaskConcurrentStartsOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.hold = true
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	const starters = 8
	var wg sync.WaitGroup
	var successes int32
	losses := make(chan error, starters)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := orch.StartTask(ctx, task.ID); err != nil {
				losses <- err
				return
			}
			atomic.AddInt32(&successes, 1)
		}()
	}
	wg.Wait()
	close(losses)

	if got := atomic.LoadInt32(&successes); got != 1 {
		t.Fatalf("successful starts = %d, want exactly 1", got)
	}
	for err := range losses {
		var invalid *orchestrator.InvalidStateError
		if !errors.As(err, &invalid) {
			t.Fatalf("loser error = %v, want InvalidStateError", err)
		}
	}
	if got := atomic.LoadInt32(&fetcher.fetchCalls); got > 1 {
		t.Fatalf("fetch launched %d times", got)
	}

	<-fetcher.started
	ok, err := orch.CancelTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if !ok {
		t.Fatal("expected cancellation to succeed")
	}
	waitForStatus(t, store, task.ID, tasks.StatusCancelled)
}

func TestPipelineCompletesWithArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	embedder := &fakeEmbedder{}
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), embedder)
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusCompleted)
	if final.Progress != 100 {
		t.Fatalf("progress = %d", final.Progress)
	}
	if final.CompletedAt == nil || final.StartedAt == nil {
		t.Fatal("expected started_at and completed_at stamped")
	}

	videoPath := filepath.Join(cfg.Paths.LibraryDir, media.VideoFileName("dQw4w9WgXcQ"))
	if final.FilePath != videoPath {
		t.Fatalf("file path = %q", final.FilePath)
	}
	if _, err := os.Stat(videoPath); err != nil {
		t.Fatalf("video missing from library: %v", err)
	}

	srtPath := filepath.Join(cfg.Paths.LibraryDir, media.BilingualSRTName("dQw4w9WgXcQ"))
	data, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("bilingual srt missing: %v", err)
	}
	segments := subtitle.Parse(string(data))
	if len(segments) != 2 {
		t.Fatalf("bilingual srt has %d cues", len(segments))
	}
	if segments[0].Text != "你好世界 Hello world" {
		t.Fatalf("first cue = %q", segments[0].Text)
	}

	if atomic.LoadInt32(&embedder.calls) != 1 {
		t.Fatalf("embedder calls = %d", embedder.calls)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LibraryDir, media.SubbedFileName("dQw4w9WgXcQ"))); err != nil {
		t.Fatalf("subbed copy missing: %v", err)
	}

	if entries, err := os.ReadDir(filepath.Join(cfg.Paths.StagingDir, task.ID)); err == nil {
		t.Fatalf("staging not cleaned: %d entries", len(entries))
	}
}

func TestPipelineMissingSecondaryLanguageCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.languages = []string{"zh-CN"}
	embedder := &fakeEmbedder{}
	orch, store := newTestOrchestrator(t, cfg, fetcher, embedder)
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusCompleted)
	if !strings.Contains(final.StatusMessage, "Missing subtitle languages") {
		t.Fatalf("status message = %q", final.StatusMessage)
	}
	if atomic.LoadInt32(&embedder.calls) != 0 {
		t.Fatal("embedder must not run without an aligned track")
	}
}

func TestPipelineMuxFailureIsNonFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	embedder := &fakeEmbedder{err: services.Wrap(services.ErrExternalTool, "mux", "embed", "boom", nil)}
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), embedder)
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusCompleted)
	if !strings.Contains(final.StatusMessage, "Subtitle embedding failed") {
		t.Fatalf("status message = %q", final.StatusMessage)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %d", final.Progress)
	}
}

func TestRetryTransientThenSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.fetchErrs = []error{
		services.Wrap(services.ErrTransient, "media", "fetch", "reset", nil),
		services.Wrap(services.ErrTimeout, "media", "fetch", "slow", nil),
	}
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusCompleted)
	if final.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", final.RetryCount)
	}
	if got := atomic.LoadInt32(&fetcher.fetchCalls); got != 3 {
		t.Fatalf("fetch calls = %d, want 3", got)
	}
}

func TestRetryBackoffIntervalsScale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.fetchErrs = []error{
		services.Wrap(services.ErrTransient, "media", "fetch", "one", nil),
		services.Wrap(services.ErrTransient, "media", "fetch", "two", nil),
	}
	store := testsupport.MustOpenStore(t, cfg)
	base := 60 * time.Millisecond
	orch, err := orchestrator.New(cfg, store, logging.NewNop(),
		orchestrator.WithFetcher(fetcher),
		orchestrator.WithEmbedder(&fakeEmbedder{}),
		orchestrator.WithBackoffBase(base),
	)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Stop(ctx)
	})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	waitForStatus(t, store, task.ID, tasks.StatusCompleted)

	fetcher.mu.Lock()
	attempts := append([]time.Time(nil), fetcher.attemptTimes...)
	fetcher.mu.Unlock()
	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}
	// First retry waits at least the base delay, the second at least double.
	if gap := attempts[1].Sub(attempts[0]); gap < base {
		t.Fatalf("first retry after %v, want >= %v", gap, base)
	}
	if gap := attempts[2].Sub(attempts[1]); gap < 2*base {
		t.Fatalf("second retry after %v, want >= %v", gap, 2*base)
	}
}

func TestPermanentErrorFailsWithoutRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.fetchErrs = []error{
		services.Wrap(services.ErrNotFound, "media", "fetch", "gone", nil),
	}
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusFailed)
	if final.ErrorMessage == "" {
		t.Fatal("expected error message")
	}
	if got := atomic.LoadInt32(&fetcher.fetchCalls); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestRetriesExhaustedFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Downloads.MaxRetries = 2
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.fetchErrs = []error{
		services.Wrap(services.ErrTransient, "media", "fetch", "one", nil),
		services.Wrap(services.ErrTransient, "media", "fetch", "two", nil),
		services.Wrap(services.ErrTransient, "media", "fetch", "three", nil),
	}
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusFailed)
	if final.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", final.RetryCount)
	}
	if got := atomic.LoadInt32(&fetcher.fetchCalls); got != 3 {
		t.Fatalf("fetch calls = %d, want 3", got)
	}
}

func TestCancelRunningTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := newFakeFetcher("dQw4w9WgXcQ", "Demo")
	fetcher.hold = true
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := orch.StartTask(ctx, task.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	<-fetcher.started

	ok, err := orch.CancelTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if !ok {
		t.Fatal("expected cancellation to succeed")
	}

	final := waitForStatus(t, store, task.ID, tasks.StatusCancelled)
	if final.StatusMessage != tasks.CancelledMessage {
		t.Fatalf("status message = %q", final.StatusMessage)
	}
}

func TestCancelPendingTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	task, err := orch.CreateTask(ctx, testURL)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	ok, err := orch.CancelTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if !ok {
		t.Fatal("expected pending task to cancel")
	}
	waitForStatus(t, store, task.ID, tasks.StatusCancelled)
}

func TestCancelTerminalTaskReturnsFalse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	task := testsupport.NewTask(t, store, testURL)
	if _, err := store.Apply(ctx, task.ID, tasks.NewPatch().WithStatus(tasks.StatusCompleted)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	ok, err := orch.CancelTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if ok {
		t.Fatal("terminal task must not cancel")
	}

	ok, err = orch.CancelTask(ctx, "ghost")
	if err != nil || ok {
		t.Fatalf("missing task: ok=%v err=%v", ok, err)
	}
}

func TestRecoverTasksResetsDownloading(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, store := newTestOrchestrator(t, cfg, newFakeFetcher("dQw4w9WgXcQ", "Demo"), &fakeEmbedder{})
	ctx := context.Background()

	task := testsupport.NewTask(t, store, testURL)
	if _, err := store.Apply(ctx, task.ID, tasks.NewPatch().
		WithStatus(tasks.StatusDownloading).
		WithProgress(42)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	count, err := orch.RecoverTasks(ctx)
	if err != nil {
		t.Fatalf("RecoverTasks: %v", err)
	}
	if count != 1 {
		t.Fatalf("recovered = %d", count)
	}
	restored := waitForStatus(t, store, task.ID, tasks.StatusPending)
	if restored.StatusMessage != tasks.RestoredMessage {
		t.Fatalf("status message = %q", restored.StatusMessage)
	}
}

func TestConcurrencyCapLimitsActiveFetches(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1))
	fetcher := newFakeFetcher("", "")
	orch, store := newTestOrchestrator(t, cfg, fetcher, &fakeEmbedder{})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", i)
		fetcher.info = media.VideoInfo{ID: fmt.Sprintf("vid%08d", i), Title: fmt.Sprintf("Demo %d", i)}
		task, err := orch.CreateTask(ctx, url)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		if err := orch.StartTask(ctx, task.ID); err != nil {
			t.Fatalf("StartTask: %v", err)
		}
		ids = append(ids, task.ID)
	}

	for _, id := range ids {
		waitForStatus(t, store, id, tasks.StatusCompleted)
	}
	if max := atomic.LoadInt32(&fetcher.maxActive); max != 1 {
		t.Fatalf("max concurrent fetches = %d, want 1", max)
	}
}

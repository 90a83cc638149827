package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dualsub/internal/logging"
	"dualsub/internal/media"
	"dualsub/internal/mux"
	"dualsub/internal/services"
	"dualsub/internal/subtitle"
	"dualsub/internal/tasks"
)

// Pipeline progress checkpoints. Fetch progress is scaled into the band
// below checkpointDownloaded.
const (
	checkpointDownloaded = 60
	checkpointParsed     = 70
	checkpointAligned    = 85
	checkpointDone       = 100
)

func (o *Orchestrator) runTask(ctx context.Context, task *tasks.Task) {
	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		// Cancelled while waiting for a slot; the canceller finalizes.
		return
	}
	defer func() { <-o.sem }()

	maxRetries := o.cfg.Downloads.MaxRetries
	for {
		err := o.pipeline(ctx, task)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			// Cancellation unwinds without failing the task.
			return
		}
		if !services.IsRetryable(err) {
			o.fail(task, err)
			return
		}
		if task.RetryCount >= maxRetries {
			o.fail(task, fmt.Errorf("retries exhausted after %d attempts: %w", task.RetryCount+1, err))
			return
		}

		task.RetryCount++
		delay := o.backoffBase << (task.RetryCount - 1)
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithRetryCount(task.RetryCount).
			WithProgress(0).
			WithStatusMessage(fmt.Sprintf("Retrying (%d/%d)", task.RetryCount, maxRetries)))
		o.logger.Warn("task attempt failed, retrying",
			logging.String(logging.FieldTaskID, task.ID),
			logging.Int("retry_count", task.RetryCount),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (o *Orchestrator) pipeline(ctx context.Context, task *tasks.Task) error {
	logger := o.logger.With(logging.String(logging.FieldTaskID, task.ID))

	if task.VideoID == "" {
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithProgress(0).
			WithStatusMessage("Resolving metadata"))
		info, err := o.fetcher.ResolveIdentity(ctx, task.URL)
		if err != nil {
			return err
		}
		task.VideoID = info.ID
		task.Title = info.Title
		task.DurationSeconds = info.DurationSeconds
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithTitle(info.Title).
			WithDurationSeconds(info.DurationSeconds))
	}

	o.apply(ctx, task.ID, tasks.NewPatch().
		WithProgress(0).
		WithStatusMessage("Downloading video"))

	stagingDir := o.stagingDir(task)
	lastPersisted := -1
	result, err := o.fetcher.Fetch(ctx, task.URL, task.VideoID, stagingDir, func(p media.Progress) {
		overall := int(p.Percent * checkpointDownloaded / 100)
		if overall == lastPersisted {
			return
		}
		lastPersisted = overall
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithProgress(overall).
			WithDownloadedBytes(p.DownloadedBytes).
			WithTotalBytes(p.TotalBytes).
			WithDownloadSpeed(p.Speed).
			WithETASeconds(p.ETASeconds))
	})
	if err != nil {
		return err
	}
	o.apply(ctx, task.ID, tasks.NewPatch().
		WithProgress(checkpointDownloaded).
		WithStatusMessage("Download complete").
		WithETASeconds(0))
	logger.Info("media downloaded", logging.String("video_path", result.VideoPath))

	primaryLang := o.cfg.Subtitles.PrimaryLanguage
	secondaryLang := o.cfg.Subtitles.SecondaryLanguage
	primaryPath := findSidecar(result.Subtitles, primaryLang)
	secondaryPath := findSidecar(result.Subtitles, secondaryLang)

	var note string
	var srtStaging string
	if primaryPath == "" || secondaryPath == "" {
		note = missingLanguagesNote(primaryLang, secondaryLang, primaryPath, secondaryPath)
		logger.Warn("subtitle pair incomplete, skipping alignment",
			logging.String("detail", note),
		)
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithProgress(checkpointParsed).
			WithStatusMessage(note))
	} else {
		primarySegments, err := subtitle.ParseFile(primaryPath)
		if err != nil {
			return services.Wrap(services.ErrTransient, "orchestrator", "parse subtitles", "unreadable primary subtitle file", err)
		}
		secondarySegments, err := subtitle.ParseFile(secondaryPath)
		if err != nil {
			return services.Wrap(services.ErrTransient, "orchestrator", "parse subtitles", "unreadable secondary subtitle file", err)
		}
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithProgress(checkpointParsed).
			WithStatusMessage("Subtitles parsed"))

		if len(primarySegments) == 0 {
			note = "Primary subtitle track is empty"
			logger.Warn("primary subtitle track empty, skipping alignment")
		} else {
			aligner := subtitle.NewAligner(o.cfg.Subtitles.SyncTolerance)
			merged := aligner.Align(primarySegments, secondarySegments)
			srtStaging = filepath.Join(stagingDir, media.BilingualSRTName(task.VideoID))
			if err := subtitle.WriteSRT(srtStaging, merged); err != nil {
				return services.Wrap(services.ErrTransient, "orchestrator", "write subtitles", "failed to write bilingual subtitle file", err)
			}
			logger.Info("bilingual subtitles aligned",
				logging.Int("segments", len(merged)),
			)
		}
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithProgress(checkpointAligned).
			WithStatusMessage("Subtitles aligned"))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	libraryVideo := filepath.Join(o.cfg.Paths.LibraryDir, media.VideoFileName(task.VideoID))
	if err := moveFile(result.VideoPath, libraryVideo); err != nil {
		return services.Wrap(services.ErrTransient, "orchestrator", "store media", "failed to move video into library", err)
	}
	var librarySRT string
	if srtStaging != "" {
		librarySRT = filepath.Join(o.cfg.Paths.LibraryDir, media.BilingualSRTName(task.VideoID))
		if err := moveFile(srtStaging, librarySRT); err != nil {
			return services.Wrap(services.ErrTransient, "orchestrator", "store media", "failed to move subtitles into library", err)
		}
	}

	if librarySRT != "" && o.cfg.Subtitles.Embed {
		o.apply(ctx, task.ID, tasks.NewPatch().
			WithStatusMessage("Embedding subtitles"))
		subbedPath := filepath.Join(o.cfg.Paths.LibraryDir, media.SubbedFileName(task.VideoID))
		if _, err := o.embedder.Embed(ctx, mux.Request{
			VideoPath:    libraryVideo,
			SubtitlePath: librarySRT,
			OutputPath:   subbedPath,
			Language:     primaryLang,
		}); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Embedding is best-effort; the media and sidecar SRT survive.
			note = "Subtitle embedding failed"
			logger.Warn("ffmpeg embed failed", logging.Error(err))
		} else {
			logger.Info("subtitles embedded", logging.String("output", subbedPath))
		}
	}

	o.cleanupStaging(task)

	message := "Completed"
	if note != "" {
		message = "Completed: " + note
	}
	now := time.Now().UTC()
	o.applyFinal(task.ID, tasks.NewPatch().
		WithStatus(tasks.StatusCompleted).
		WithProgress(checkpointDone).
		WithStatusMessage(message).
		WithFilePath(libraryVideo).
		WithCompletedAt(now))
	logger.Info("task completed",
		logging.String(logging.FieldStatus, string(tasks.StatusCompleted)),
		logging.String("file_path", libraryVideo),
	)
	return nil
}

func (o *Orchestrator) fail(task *tasks.Task, cause error) {
	now := time.Now().UTC()
	o.applyFinal(task.ID, tasks.NewPatch().
		WithStatus(tasks.StatusFailed).
		WithStatusMessage("Download failed").
		WithErrorMessage(cause.Error()).
		WithCompletedAt(now))
	o.cleanupStaging(task)
	o.logger.Error("task failed",
		logging.String(logging.FieldTaskID, task.ID),
		logging.Error(cause),
	)
}

// apply persists a patch, logging rather than failing on store errors so
// progress reporting never kills a pipeline. Only incremental updates may be
// dropped; terminal transitions go through applyFinal.
func (o *Orchestrator) apply(ctx context.Context, id string, patch *tasks.Patch) {
	if _, err := o.store.Apply(ctx, id, patch); err != nil && ctx.Err() == nil {
		o.logger.Warn("failed to persist task update",
			logging.String(logging.FieldTaskID, id),
			logging.Error(err),
		)
	}
}

// applyFinal persists a terminal-state patch, retrying on transient store
// errors. A dropped terminal write would strand the task in downloading, so
// this never gives up silently.
func (o *Orchestrator) applyFinal(id string, patch *tasks.Patch) {
	const attempts = 5
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if _, err = o.store.Apply(context.Background(), id, patch); err == nil {
			return
		}
		o.logger.Warn("retrying terminal task update",
			logging.String(logging.FieldTaskID, id),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	o.logger.Error("failed to persist terminal task state",
		logging.String(logging.FieldTaskID, id),
		logging.Error(err),
	)
}

func findSidecar(sidecars map[string]string, lang string) string {
	if path, ok := sidecars[lang]; ok {
		return path
	}
	for candidate, path := range sidecars {
		if subtitle.MatchesLanguage(candidate, lang) {
			return path
		}
	}
	return ""
}

func missingLanguagesNote(primaryLang, secondaryLang, primaryPath, secondaryPath string) string {
	var missing []string
	if primaryPath == "" {
		missing = append(missing, subtitle.LanguageName(primaryLang))
	}
	if secondaryPath == "" {
		missing = append(missing, subtitle.LanguageName(secondaryLang))
	}
	return "Missing subtitle languages: " + strings.Join(missing, ", ")
}

func moveFile(src, dest string) error {
	if src == dest {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to copy.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return os.Remove(src)
}

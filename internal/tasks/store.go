package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dualsub/internal/config"
)

// Store manages task persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the task database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "tasks.db")
	// Pragmas ride on the DSN so every pooled connection gets them; a plain
	// db.Exec would configure only whichever connection served it.
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new task record. CreatedAt and LastUpdated are stamped when
// unset.
func (s *Store) Create(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task is nil")
	}
	if strings.TrimSpace(task.ID) == "" {
		return errors.New("task id required")
	}
	if strings.TrimSpace(task.URL) == "" {
		return errors.New("task url required")
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.LastUpdated = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tasks (
            task_id, url, video_id, title, status, progress, status_message,
            error_message, retry_count, file_path, duration_seconds,
            downloaded_bytes, total_bytes, download_speed, eta_seconds,
            created_at, started_at, completed_at, last_updated
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.URL,
		nullableString(task.VideoID),
		nullableString(task.Title),
		task.Status,
		task.Progress,
		nullableString(task.StatusMessage),
		nullableString(task.ErrorMessage),
		task.RetryCount,
		nullableString(task.FilePath),
		task.DurationSeconds,
		task.DownloadedBytes,
		task.TotalBytes,
		task.DownloadSpeed,
		task.ETASeconds,
		task.CreatedAt.Format(time.RFC3339Nano),
		nullableTime(task.StartedAt),
		nullableTime(task.CompletedAt),
		task.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get fetches a task by identifier. Returns nil when not found.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Apply persists a partial update to a task and stamps last_updated. Returns
// false when the task does not exist.
func (s *Store) Apply(ctx context.Context, id string, patch *Patch) (bool, error) {
	return s.apply(ctx, id, patch, nil)
}

// ApplyIfStatus persists a partial update only while the task is in one of
// the given statuses. Returns false when the task is missing or has moved to
// a status outside the set; state-machine transitions use this to keep
// check-then-act updates atomic.
func (s *Store) ApplyIfStatus(ctx context.Context, id string, patch *Patch, allowed ...Status) (bool, error) {
	if len(allowed) == 0 {
		return false, errors.New("at least one allowed status required")
	}
	return s.apply(ctx, id, patch, allowed)
}

func (s *Store) apply(ctx context.Context, id string, patch *Patch, allowed []Status) (bool, error) {
	if patch.IsEmpty() {
		return false, errors.New("empty patch")
	}

	assignments := make([]string, 0, 16)
	args := make([]any, 0, 16)
	set := func(column string, value any) {
		assignments = append(assignments, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", nullableString(*patch.Title))
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Progress != nil {
		set("progress", *patch.Progress)
	}
	if patch.StatusMessage != nil {
		set("status_message", nullableString(*patch.StatusMessage))
	}
	if patch.ErrorMessage != nil {
		set("error_message", nullableString(*patch.ErrorMessage))
	}
	if patch.RetryCount != nil {
		set("retry_count", *patch.RetryCount)
	}
	if patch.FilePath != nil {
		set("file_path", nullableString(*patch.FilePath))
	}
	if patch.DurationSeconds != nil {
		set("duration_seconds", *patch.DurationSeconds)
	}
	if patch.DownloadedBytes != nil {
		set("downloaded_bytes", *patch.DownloadedBytes)
	}
	if patch.TotalBytes != nil {
		set("total_bytes", *patch.TotalBytes)
	}
	if patch.DownloadSpeed != nil {
		set("download_speed", *patch.DownloadSpeed)
	}
	if patch.ETASeconds != nil {
		set("eta_seconds", *patch.ETASeconds)
	}
	if patch.StartedAt != nil {
		set("started_at", patch.StartedAt.UTC().Format(time.RFC3339Nano))
	}
	if patch.CompletedAt != nil {
		set("completed_at", patch.CompletedAt.UTC().Format(time.RFC3339Nano))
	}
	set("last_updated", time.Now().UTC().Format(time.RFC3339Nano))

	args = append(args, id)
	query := `UPDATE tasks SET ` + strings.Join(assignments, ", ") + ` WHERE task_id = ?`
	if len(allowed) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(allowed)) + `)`
		for _, status := range allowed {
			args = append(args, status)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("apply patch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns tasks filtered by status set (or all tasks when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var items []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

// ActiveByURL returns the oldest pending or downloading task for a URL.
func (s *Store) ActiveByURL(ctx context.Context, url string) (*Task, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE url = ? AND status IN (?, ?) ORDER BY created_at LIMIT 1`,
		url, StatusPending, StatusDownloading,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active by url: %w", err)
	}
	return task, nil
}

// CompletedByTitle returns the oldest completed task with the given title.
func (s *Store) CompletedByTitle(ctx context.Context, title string) (*Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE title = ? AND status = ? ORDER BY created_at LIMIT 1`,
		title, StatusCompleted,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("completed by title: %w", err)
	}
	return task, nil
}

// ResetStuckDownloading re-admits tasks left in downloading by a previous
// process. They return to pending for a fresh attempt.
func (s *Store) ResetStuckDownloading(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks
         SET status = ?, progress = 0, status_message = ?, last_updated = ?
         WHERE status = ?`,
		StatusPending,
		RestoredMessage,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusDownloading,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck tasks: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Remove deletes a task by identifier. Deletion is an administrative
// operation; the pipeline itself never removes records.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const taskColumns = "task_id, url, video_id, title, status, progress, status_message, error_message, retry_count, file_path, duration_seconds, downloaded_bytes, total_bytes, download_speed, eta_seconds, created_at, started_at, completed_at, last_updated"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           string
		url          string
		videoID      sql.NullString
		title        sql.NullString
		statusStr    string
		progress     sql.NullInt64
		statusMsg    sql.NullString
		errorMsg     sql.NullString
		retryCount   sql.NullInt64
		filePath     sql.NullString
		duration     sql.NullFloat64
		downloaded   sql.NullInt64
		total        sql.NullInt64
		speed        sql.NullFloat64
		eta          sql.NullInt64
		createdRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&videoID,
		&title,
		&statusStr,
		&progress,
		&statusMsg,
		&errorMsg,
		&retryCount,
		&filePath,
		&duration,
		&downloaded,
		&total,
		&speed,
		&eta,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		URL:             url,
		VideoID:         videoID.String,
		Title:           title.String,
		Status:          Status(statusStr),
		Progress:        int(progress.Int64),
		StatusMessage:   statusMsg.String,
		ErrorMessage:    errorMsg.String,
		RetryCount:      int(retryCount.Int64),
		FilePath:        filePath.String,
		DurationSeconds: duration.Float64,
		DownloadedBytes: downloaded.Int64,
		TotalBytes:      total.Int64,
		DownloadSpeed:   speed.Float64,
		ETASeconds:      int(eta.Int64),
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.LastUpdated = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			task.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

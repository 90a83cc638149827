package api

import (
	"time"

	"dualsub/internal/tasks"
)

// FromTask converts a persisted task record to its API representation.
func FromTask(task *tasks.Task) Task {
	if task == nil {
		return Task{}
	}
	dto := Task{
		ID:              task.ID,
		URL:             task.URL,
		VideoID:         task.VideoID,
		Title:           task.Title,
		Status:          string(task.Status),
		Progress:        task.Progress,
		StatusMessage:   task.StatusMessage,
		ErrorMessage:    task.ErrorMessage,
		RetryCount:      task.RetryCount,
		FilePath:        task.FilePath,
		DurationSeconds: task.DurationSeconds,
		DownloadedBytes: task.DownloadedBytes,
		TotalBytes:      task.TotalBytes,
		DownloadSpeed:   task.DownloadSpeed,
		ETASeconds:      task.ETASeconds,
	}
	dto.CreatedAt = formatTime(task.CreatedAt)
	dto.LastUpdated = formatTime(task.LastUpdated)
	if task.StartedAt != nil {
		dto.StartedAt = formatTime(*task.StartedAt)
	}
	if task.CompletedAt != nil {
		dto.CompletedAt = formatTime(*task.CompletedAt)
	}
	return dto
}

// FromTasks converts a slice of task records into API DTOs.
func FromTasks(records []*tasks.Task) []Task {
	if len(records) == 0 {
		return nil
	}
	out := make([]Task, 0, len(records))
	for _, task := range records {
		out = append(out, FromTask(task))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

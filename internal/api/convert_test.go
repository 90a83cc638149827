package api

import (
	"testing"
	"time"

	"dualsub/internal/tasks"
)

func TestFromTaskMapsFields(t *testing.T) {
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	record := &tasks.Task{
		ID:              "task-1",
		URL:             "https://www.youtube.com/watch?v=abc123DEF45",
		VideoID:         "abc123DEF45",
		Title:           "Example",
		Status:          tasks.StatusCompleted,
		Progress:        100,
		StatusMessage:   "Completed",
		FilePath:        "/library/abc123DEF45.mp4",
		DurationSeconds: 212.5,
		DownloadedBytes: 2048,
		TotalBytes:      2048,
		CreatedAt:       started,
		StartedAt:       &started,
		CompletedAt:     &completed,
		LastUpdated:     completed,
	}

	dto := FromTask(record)
	if dto.ID != record.ID || dto.Status != "completed" || dto.Progress != 100 {
		t.Fatalf("unexpected conversion: %+v", dto)
	}
	if dto.StartedAt != "2025-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected startedAt: %q", dto.StartedAt)
	}
	if dto.CompletedAt != "2025-03-14T09:28:23.000Z" {
		t.Fatalf("unexpected completedAt: %q", dto.CompletedAt)
	}
	if dto.DurationSeconds != 212.5 || dto.TotalBytes != 2048 {
		t.Fatalf("unexpected media fields: %+v", dto)
	}
}

func TestFromTaskNilAndZeroTimes(t *testing.T) {
	if dto := FromTask(nil); dto.ID != "" {
		t.Fatalf("expected zero DTO for nil task, got %+v", dto)
	}
	dto := FromTask(&tasks.Task{ID: "task-2", URL: "u", Status: tasks.StatusPending})
	if dto.CreatedAt != "" || dto.StartedAt != "" || dto.CompletedAt != "" {
		t.Fatalf("zero times should render empty, got %+v", dto)
	}
}

func TestFromTasksEmpty(t *testing.T) {
	if out := FromTasks(nil); out != nil {
		t.Fatalf("expected nil for empty input, got %+v", out)
	}
}

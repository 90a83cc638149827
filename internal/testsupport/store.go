package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"dualsub/internal/config"
	"dualsub/internal/tasks"
)

// MustOpenStore opens a tasks.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tasks.Store {
	t.Helper()

	store, err := tasks.Open(cfg)
	if err != nil {
		t.Fatalf("tasks.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a pending task for tests using the provided store.
func NewTask(t testing.TB, store *tasks.Store, url string) *tasks.Task {
	t.Helper()

	task := &tasks.Task{
		ID:     uuid.NewString(),
		URL:    url,
		Status: tasks.StatusPending,
	}
	if err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return task
}

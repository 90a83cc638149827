package orchestrator

import (
	"fmt"

	"dualsub/internal/tasks"
)

// InvalidStateError reports an operation attempted against a task whose
// status does not permit it.
type InvalidStateError struct {
	TaskID string
	Status tasks.Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("task %s cannot %s from status %q", e.TaskID, e.Op, e.Status)
}

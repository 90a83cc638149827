package tasks

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a download task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// RestoredMessage is the status message set when a task is re-admitted after a
// daemon restart.
const RestoredMessage = "Restored after service restart"

// CancelledMessage is the status message set when a user cancels a task.
const CancelledMessage = "Cancelled by user"

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActive reports whether the status admits further work.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusDownloading
}

// IsTerminal reports whether no transition out of the status is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task represents a download task persisted in SQLite. Field names and the
// status values are the wire contract for status-polling clients.
type Task struct {
	ID              string
	URL             string
	VideoID         string
	Title           string
	Status          Status
	Progress        int
	StatusMessage   string
	ErrorMessage    string
	RetryCount      int
	FilePath        string
	DurationSeconds float64
	DownloadedBytes int64
	TotalBytes      int64
	DownloadSpeed   float64
	ETASeconds      int
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	LastUpdated     time.Time
}

// IsActive reports whether the task admits further work.
func (t *Task) IsActive() bool {
	return t != nil && t.Status.IsActive()
}

// Patch describes a partial task update. Nil fields are left untouched; the
// store stamps last_updated on every apply.
type Patch struct {
	Title           *string
	Status          *Status
	Progress        *int
	StatusMessage   *string
	ErrorMessage    *string
	RetryCount      *int
	FilePath        *string
	DurationSeconds *float64
	DownloadedBytes *int64
	TotalBytes      *int64
	DownloadSpeed   *float64
	ETASeconds      *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// NewPatch returns an empty patch ready for chaining.
func NewPatch() *Patch { return &Patch{} }

func (p *Patch) WithTitle(title string) *Patch { p.Title = &title; return p }

func (p *Patch) WithStatus(status Status) *Patch { p.Status = &status; return p }

func (p *Patch) WithProgress(progress int) *Patch { p.Progress = &progress; return p }

func (p *Patch) WithStatusMessage(message string) *Patch { p.StatusMessage = &message; return p }

func (p *Patch) WithErrorMessage(message string) *Patch { p.ErrorMessage = &message; return p }

func (p *Patch) WithRetryCount(count int) *Patch { p.RetryCount = &count; return p }

func (p *Patch) WithFilePath(path string) *Patch { p.FilePath = &path; return p }

func (p *Patch) WithDurationSeconds(seconds float64) *Patch { p.DurationSeconds = &seconds; return p }

func (p *Patch) WithDownloadedBytes(n int64) *Patch { p.DownloadedBytes = &n; return p }

func (p *Patch) WithTotalBytes(n int64) *Patch { p.TotalBytes = &n; return p }

func (p *Patch) WithDownloadSpeed(bytesPerSecond float64) *Patch {
	p.DownloadSpeed = &bytesPerSecond
	return p
}

func (p *Patch) WithETASeconds(seconds int) *Patch { p.ETASeconds = &seconds; return p }

func (p *Patch) WithStartedAt(at time.Time) *Patch { p.StartedAt = &at; return p }

func (p *Patch) WithCompletedAt(at time.Time) *Patch { p.CompletedAt = &at; return p }

// IsEmpty reports whether the patch carries no field changes.
func (p *Patch) IsEmpty() bool {
	return p == nil || *p == Patch{}
}

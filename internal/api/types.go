package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a download task in a transport-friendly format.
type Task struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	VideoID         string  `json:"videoId,omitempty"`
	Title           string  `json:"title,omitempty"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	StatusMessage   string  `json:"statusMessage,omitempty"`
	ErrorMessage    string  `json:"errorMessage,omitempty"`
	RetryCount      int     `json:"retryCount,omitempty"`
	FilePath        string  `json:"filePath,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	DownloadedBytes int64   `json:"downloadedBytes,omitempty"`
	TotalBytes      int64   `json:"totalBytes,omitempty"`
	DownloadSpeed   float64 `json:"downloadSpeed,omitempty"`
	ETASeconds      int     `json:"etaSeconds,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	StartedAt       string  `json:"startedAt,omitempty"`
	CompletedAt     string  `json:"completedAt,omitempty"`
	LastUpdated     string  `json:"lastUpdated,omitempty"`
}

// Video describes a completed download in the library catalog.
type Video struct {
	TaskID          string  `json:"taskId"`
	VideoID         string  `json:"videoId,omitempty"`
	Title           string  `json:"title,omitempty"`
	URL             string  `json:"url"`
	FilePath        string  `json:"filePath,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	SizeBytes       int64   `json:"sizeBytes,omitempty"`
	SubtitlePath    string  `json:"subtitlePath,omitempty"`
	SubbedPath      string  `json:"subbedPath,omitempty"`
	HasSubtitles    bool    `json:"hasSubtitles"`
	CompletedAt     string  `json:"completedAt,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	TaskDBPath   string             `json:"taskDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LibraryDir   string             `json:"libraryDir"`
	TaskCounts   map[string]int     `json:"taskCounts"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// CreateTaskRequest is the body for POST /api/tasks.
type CreateTaskRequest struct {
	URL string `json:"url"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// TaskListResponse wraps a collection of tasks.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// CancelResponse reports the outcome of a cancellation request.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
	Task      Task `json:"task"`
}

// VideoListResponse wraps the library catalog.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"dualsub/internal/api"
	"dualsub/internal/config"
	"dualsub/internal/media"
	"dualsub/internal/tasks"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/tasks", srv.handleTasks)
	mux.HandleFunc("/api/tasks/", srv.handleTaskItem)
	mux.HandleFunc("/api/videos", srv.handleVideos)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(status.TaskCounts))
	for key, value := range status.TaskCounts {
		counts[string(key)] = value
	}
	dependencies := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		TaskDBPath:   status.TaskDBPath,
		LockFilePath: status.LockFilePath,
		LibraryDir:   status.LibraryDir,
		TaskCounts:   counts,
		Dependencies: dependencies,
	})
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTasks(w, r)
	case http.MethodPost:
		s.createTask(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listTasks(w http.ResponseWriter, r *http.Request) {
	var statuses []tasks.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := tasks.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	records, err := s.daemon.orch.ListTasks(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(records)})
}

func (s *apiServer) createTask(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if !media.ValidateURL(url) {
		s.writeError(w, http.StatusBadRequest, "invalid YouTube URL")
		return
	}

	task, err := s.daemon.Submit(r.Context(), url)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *apiServer) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		task, err := s.daemon.orch.GetTask(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if task == nil {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
	case http.MethodDelete:
		cancelled, err := s.daemon.orch.CancelTask(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		task, err := s.daemon.orch.GetTask(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if task == nil {
			s.writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.CancelResponse{Cancelled: cancelled, Task: api.FromTask(task)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.daemon.orch.ListTasks(r.Context(), tasks.StatusCompleted)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	videos := make([]api.Video, 0, len(records))
	for _, task := range records {
		videos = append(videos, s.videoFromTask(task))
	}
	s.writeJSON(w, http.StatusOK, api.VideoListResponse{Videos: videos})
}

// videoFromTask builds a catalog entry, checking the library on disk for the
// bilingual SRT and subtitle-embedded variants.
func (s *apiServer) videoFromTask(task *tasks.Task) api.Video {
	dto := api.FromTask(task)
	video := api.Video{
		TaskID:          dto.ID,
		VideoID:         dto.VideoID,
		Title:           dto.Title,
		URL:             dto.URL,
		FilePath:        dto.FilePath,
		DurationSeconds: dto.DurationSeconds,
		CompletedAt:     dto.CompletedAt,
	}
	if video.FilePath != "" {
		if info, err := os.Stat(video.FilePath); err == nil && !info.IsDir() {
			video.SizeBytes = info.Size()
		}
	}
	if task.VideoID == "" {
		return video
	}
	libraryDir := s.daemon.cfg.Paths.LibraryDir
	srtPath := filepath.Join(libraryDir, media.BilingualSRTName(task.VideoID))
	if _, err := os.Stat(srtPath); err == nil {
		video.SubtitlePath = srtPath
		video.HasSubtitles = true
	}
	subbedPath := filepath.Join(libraryDir, media.SubbedFileName(task.VideoID))
	if _, err := os.Stat(subbedPath); err == nil {
		video.SubbedPath = subbedPath
		video.HasSubtitles = true
	}
	return video
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

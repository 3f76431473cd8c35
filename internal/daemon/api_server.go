package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/fileutil"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
	"videoforge/internal/services"
)

const (
	bannerText = "Video Forge Backend is Running!"
	// multipartOverhead covers form boundaries and headers around the file part.
	multipartOverhead = 1 << 20
)

type apiServer struct {
	bind     string
	token    string
	logger   *slog.Logger
	daemon   *Daemon
	media    *api.MediaService
	queueSvc *api.QueueService
	router   *gin.Engine

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:     bind,
		token:    strings.TrimSpace(cfg.API.Token),
		logger:   logging.NewComponentLogger(logger, "api"),
		daemon:   d,
		media:    d.media,
		queueSvc: d.queueSvc,
	}
	srv.router = srv.routes()
	return srv
}

func (s *apiServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMiddleware(s.logger))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, bannerText)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := r.Group("/")
	protected.Use(authMiddleware(s.token))
	{
		protected.POST("/upload", s.handleUpload)
		protected.POST("/process", s.handleProcess)
		protected.GET("/videos", s.handleListVideos)
		protected.GET("/videos/:id", s.handleGetVideo)
		protected.GET("/download/:taskId", s.handleDownload)
		protected.DELETE("/tasks/:taskId", s.handleDeleteTask)
		protected.DELETE("/clear", s.handleClear)

		protected.GET("/api/status", s.handleStatus)
		protected.GET("/api/tasks", s.handleListTasks)
		protected.GET("/api/tasks/:taskId", s.handleGetTask)
	}
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the api.bind address"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleUpload(c *gin.Context) {
	if limit := s.media.MaxUploadSize(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}
	header, err := c.FormFile("video")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(c, services.Wrap(services.ErrValidation, "upload", "read form",
				"File exceeds the upload limit", fileutil.ErrTooLarge))
			return
		}
		s.respondError(c, services.Wrap(services.ErrValidation, "upload", "read form", "No video file provided", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, services.Wrap(services.ErrTransient, "upload", "open part", "Failed to upload video", err))
		return
	}
	defer file.Close()

	video, err := s.media.Upload(c.Request.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *apiServer) handleProcess(c *gin.Context) {
	var req api.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, services.Wrap(services.ErrValidation, "process", "decode body", "Invalid request body", err))
		return
	}
	tasks, err := s.media.CreateTasks(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *apiServer) handleListVideos(c *gin.Context) {
	videos, err := s.media.ListVideos(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

func (s *apiServer) handleGetVideo(c *gin.Context) {
	video, err := s.media.Video(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *apiServer) handleDownload(c *gin.Context) {
	download, err := s.media.DownloadPath(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.FileAttachment(download.Path, download.Filename)
}

func (s *apiServer) handleDeleteTask(c *gin.Context) {
	if err := s.media.DeleteTask(c.Request.Context(), c.Param("taskId")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Task deleted successfully"})
}

func (s *apiServer) handleClear(c *gin.Context) {
	result, err := s.media.Clear(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *apiServer) handleStatus(c *gin.Context) {
	status := s.daemon.Status(c.Request.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		APIBind:      status.APIBind,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, payload)
}

func (s *apiServer) handleListTasks(c *gin.Context) {
	var statuses []queue.Status
	for _, value := range c.QueryArray("status") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.respondError(c, services.Wrap(services.ErrValidation, "tasks", "list",
				fmt.Sprintf("Unknown status %q", value), nil))
			return
		}
		statuses = append(statuses, status)
	}
	tasks, err := s.queueSvc.List(c.Request.Context(), statuses...)
	if err != nil {
		s.respondError(c, services.Wrap(services.ErrTransient, "tasks", "list", "Failed to list tasks", err))
		return
	}
	if tasks == nil {
		tasks = []api.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *apiServer) handleGetTask(c *gin.Context) {
	task, err := s.queueSvc.Describe(c.Request.Context(), strings.TrimSpace(c.Param("taskId")))
	if err != nil {
		s.respondError(c, services.Wrap(services.ErrTransient, "tasks", "get", "Failed to load task", err))
		return
	}
	if task == nil {
		s.respondError(c, services.Wrap(services.ErrNotFound, "tasks", "get", "Task not found", nil))
		return
	}
	c.JSON(http.StatusOK, task)
}

// respondError writes {"error": message} with a status derived from the
// error classification.
func (s *apiServer) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), "request failed", "request_failed",
			logging.String("path", c.Request.URL.Path),
			logging.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: services.Message(err)})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, fileutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

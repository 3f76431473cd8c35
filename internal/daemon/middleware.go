package daemon

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"videoforge/internal/logging"
	"videoforge/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestMiddleware tags every request with an ID, echoes it back in the
// response headers and logs the outcome once the handler chain returns.
func requestMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case status >= 500:
			level = slog.LevelError
		case c.FullPath() != "/health":
			level = slog.LevelInfo
		}
		logging.WithContext(c.Request.Context(), logger).Log(c.Request.Context(), level, "http request",
			logging.Args(
				logging.String("method", c.Request.Method),
				logging.String("path", c.Request.URL.Path),
				logging.Int("status", status),
				logging.Duration("latency", time.Since(start)),
				logging.Int("bytes", c.Writer.Size()),
				logging.String(logging.FieldEventType, "http_request"),
			)...,
		)
	}
}

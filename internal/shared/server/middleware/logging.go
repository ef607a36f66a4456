package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"session_id":  SessionIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if reportID := c.GetString("reportId"); reportID != "" {
			fields["report_id"] = reportID
		}
		if stage := c.GetString("failedStage"); stage != "" {
			fields["failed_stage"] = stage
		}
		telemetry.Info("request.complete", fields)
	}
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/services/health"
	"medreport-backend/internal/session"
	"medreport-backend/internal/shared/config"
	"medreport-backend/internal/shared/metrics"
	"medreport-backend/internal/shared/server/middleware"
	"medreport-backend/internal/shared/server/respond"
)

const rateLimitGroupUpload = "UPLOAD"

type RouterDeps struct {
	Config              config.Config
	ReportsHandler      *reports.Handler
	NotificationHandler *notifications.Handler
	ChatHandler         *chat.Handler
	SessionHandler      *session.Handler
	Health              *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		if !status.OK {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.JSON(c, http.StatusOK, status)
	})

	protected := api.Group("",
		middleware.Auth(),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)
	if deps.ReportsHandler != nil {
		deps.ReportsHandler.RegisterRoutes(protected)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterRoutes(protected)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(protected)
	}
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(protected)
	}

	return r
}

// rateLimitConfig gives uploads their own, slower bucket; everything else
// shares a generous default.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	uploadsPerMinute := cfg.UploadsPerMinute
	if uploadsPerMinute <= 0 {
		uploadsPerMinute = 6
	}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			rateLimitGroupUpload: {Rate: uploadsPerMinute / 60, Burst: max(int(uploadsPerMinute/2), 1)},
			"DEFAULT":            {Rate: 10, Burst: 30},
		},
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/reports" {
				return rateLimitGroupUpload
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/server/respond"
)

const (
	sessionIDKey    = "sessionId"
	sessionIDHeader = "X-Session-Id"
)

// Visible ASCII only, so ids are safe as log fields and Redis key material.
var validSessionID = regexp.MustCompile(`^[\x21-\x7e]{1,128}$`)

// Auth stands in for a login: each request names its session in the
// X-Session-Id header and every read and write is scoped to that value.
// Preflight requests pass through without one.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		sessionID := strings.TrimSpace(c.GetHeader(sessionIDHeader))
		switch {
		case sessionID == "":
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing session", nil)
			return
		case !validSessionID.MatchString(sessionID):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid session id", gin.H{"header": sessionIDHeader})
			return
		}

		c.Set(sessionIDKey, sessionID)
		c.Next()
	}
}

// SessionIDFromContext returns the session id set by Auth, or "".
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/telemetry"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated", incoming: ""},
		{name: "client id kept", incoming: "abc-123", keep: true},
		{name: "unsafe id replaced", incoming: "bad id\nforged=1"},
		{name: "too long replaced", incoming: strings.Repeat("a", 65)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var fromCtx string
			router := gin.New()
			router.Use(RequestID())
			router.GET("/x", func(c *gin.Context) {
				fromCtx = telemetry.RequestID(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.incoming != "" {
				req.Header.Set("X-Request-Id", tc.incoming)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if got == "" || got != fromCtx {
				t.Fatalf("header %q and context %q should match and be set", got, fromCtx)
			}
			if tc.keep && got != tc.incoming {
				t.Fatalf("expected client id %q, got %q", tc.incoming, got)
			}
			if !tc.keep && got == tc.incoming {
				t.Fatalf("expected a generated id, got %q", got)
			}
		})
	}
}

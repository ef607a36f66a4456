package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"medreport-backend/internal/shared/server/respond"
	"medreport-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsStandardError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body respond.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "internal" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if id := resp.Header().Get("X-Request-Id"); id == "" || body.Error.RequestID != id {
		t.Fatalf("expected request id in header and body, got %q / %q", id, body.Error.RequestID)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"http.panic"`)) {
		t.Fatalf("expected panic log, got %s", buf.String())
	}
}

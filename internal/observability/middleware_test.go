package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestMiddlewareLogsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	r := gin.New()
	r.Use(Middleware("groupctl", logger))
	r.GET("/capabilities", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/capabilities", "/health", "/broken"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := buf.String()
	if !strings.Contains(out, `"path":"/capabilities"`) {
		t.Fatalf("expected capabilities request logged: %s", out)
	}
	if strings.Contains(out, `"path":"/health"`) {
		t.Fatalf("health probe should be logged at debug only: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"status":500`) {
		t.Fatalf("expected error-level line for 500: %s", out)
	}
}

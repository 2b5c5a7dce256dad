package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestMiddleware_RequestIDAndSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "production")

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/v1/campaigns", func(c *gin.Context) {
		c.Set("organization_id", "org1")
		FromGin(c).Info("handler ran")
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "rid-1", w.Header().Get("X-Request-Id"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "handler ran", got[0]["msg"])
	assert.Equal(t, "rid-1", got[0]["request_id"])
	assert.Equal(t, "request", got[1]["msg"])
	assert.Equal(t, "org1", got[1]["organization_id"])
	assert.Equal(t, "voiceagent-api", got[1]["service"])
}

func TestFromContextFallsBack(t *testing.T) {
	assert.NotNil(t, From(context.Background()))

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "dev")
	From(With(context.Background(), l)).Debug("debug visible in dev")
	assert.Contains(t, buf.String(), "debug visible in dev")
}

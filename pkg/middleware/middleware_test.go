package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"wayfarer/pkg/metrics"
)

func newEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceIDMiddleware(), RequestLogger(log, m), CORSMiddleware())
	r.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("trace_id"))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestTraceIDIsMintedOrReused(t *testing.T) {
	r := newEngine(zap.NewNop(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	minted := w.Header().Get(TraceHeader)
	_, err := uuid.Parse(minted)
	require.NoError(t, err)
	assert.Equal(t, minted, w.Body.String())

	incoming := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(TraceHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(TraceHeader))

	req = httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(TraceHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(TraceHeader))
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(zap.NewNop(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/items/1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), TraceHeader)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(zap.New(core), metrics.New())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/items/:id", entries[0].ContextMap()["route"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "unmatched", entries[1].ContextMap()["route"])
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.NotEmpty(t, entries[2].ContextMap()["trace_id"])
}

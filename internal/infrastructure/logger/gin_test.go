package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Next()
	})
	engine.Use(RequestLogger(log))
	engine.Use(Recovery(log))
	return engine
}

func TestRequestLogger_PropagatesIDsIntoRequestContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	engine := newTestEngine(zap.New(core))

	var seenRequestID string
	engine.POST("/sales", func(c *gin.Context) {
		seenRequestID = GetRequestID(c.Request.Context())
		c.Set(GinTransactionIDKey, "tx-9")
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	// Downstream code sees the same correlation id the middleware logged.
	assert.Equal(t, "req-1", seenRequestID)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tx-9", fields["transaction_id"])
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
}

func TestRequestLogger_WarnsOnClientErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	engine := newTestEngine(zap.New(core))

	engine.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestRecovery_LogsPanicAndAnswersEnvelope(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	engine := newTestEngine(zap.New(core))

	engine.GET("/boom", func(c *gin.Context) {
		panic("kaput")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
}

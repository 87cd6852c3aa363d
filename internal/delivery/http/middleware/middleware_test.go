package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]string

func (v stubVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(stubVerifier{"good": "u1"})
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})

	tests := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{"bearer header", "/me", "Bearer good", http.StatusOK, "u1"},
		{"raw header", "/me", "good", http.StatusOK, "u1"},
		{"query token", "/me?token=good", "", http.StatusOK, "u1"},
		{"missing", "/me", "", http.StatusUnauthorized, ""},
		{"invalid", "/me", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestBackendModeHeader(t *testing.T) {
	breaker := health.NewBreaker(time.Minute, zap.NewNop())
	r := gin.New()
	r.Use(BackendMode(breaker))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, health.ModeLive, w.Header().Get(BackendModeHeader))

	breaker.Trip(domain.ErrBackendUnavailable)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, health.ModeSimulated, w.Header().Get(BackendModeHeader))
}

func TestRateLimit(t *testing.T) {
	mw, err := RateLimit("2-M")
	require.NoError(t, err)

	r := gin.New()
	r.POST("/sos", func(c *gin.Context) { c.Set("user_id", c.Query("u")) }, mw, func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	send := func(user string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sos?u="+user, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusCreated, send("a"))
	assert.Equal(t, http.StatusCreated, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusCreated, send("b"))

	_, err = RateLimit("lots")
	assert.Error(t, err)
}

func TestMetricsAndLoggerPassThrough(t *testing.T) {
	r := gin.New()
	r.Use(Metrics(), RequestLogger(zap.NewNop()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

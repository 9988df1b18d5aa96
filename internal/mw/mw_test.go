package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(NewIPRateLimiter(rate.Limit(1), 2)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiter_Evict(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(10 * time.Minute)
	l.Allow("b")

	assert.Equal(t, 1, l.Evict(5*time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestRequestIDAndLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
		assert.EqualValues(t, http.StatusInternalServerError, entries[0].ContextMap()["status"])
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/fail", nil)
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

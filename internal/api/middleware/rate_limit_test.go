package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/wzlab/deal_go_server/config"
)

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func setupRateLimitRouter(l Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(l), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimit_Allowed(t *testing.T) {
	r := setupRateLimitRouter(allowAllLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRateLimit_Denied(t *testing.T) {
	r := setupRateLimitRouter(denyAllLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":1004`)
}

func TestSlidingWindowLimiter(t *testing.T) {
	l := NewSlidingWindowLimiter(config.RateLimitConfig{Requests: 3, WindowSeconds: 60})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))

	// 不同 key 互不影响
	assert.True(t, l.Allow("b"))
}

func TestSlidingWindowLimiter_EvictsIdleKeys(t *testing.T) {
	l := &slidingWindowLimiter{
		requests:  3,
		window:    time.Millisecond,
		hits:      make(map[string][]time.Time),
		lastSweep: time.Now(),
	}

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("client-"+strconv.Itoa(i)))
	}
	assert.Len(t, l.hits, 100)

	// 窗口过后的下一次调用应回收所有过期 key
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Allow("fresh"))
	assert.Len(t, l.hits, 1)
}

package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wzlab/deal_go_server/config"
	"github.com/wzlab/deal_go_server/internal/pkg/response"
)

// Limiter 限流策略，可注入便于测试替换
type Limiter interface {
	Allow(key string) bool
}

// slidingWindowLimiter 进程内滑动窗口限流
type slidingWindowLimiter struct {
	mu        sync.Mutex
	requests  int
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewSlidingWindowLimiter 创建滑动窗口限流器
func NewSlidingWindowLimiter(cfg config.RateLimitConfig) Limiter {
	requests := cfg.Requests
	if requests <= 0 {
		requests = 60
	}
	windowSeconds := cfg.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return &slidingWindowLimiter{
		requests:  requests,
		window:    time.Duration(windowSeconds) * time.Second,
		hits:      make(map[string][]time.Time),
		lastSweep: time.Now(),
	}
}

// sweep 回收窗口内已无记录的 key，防止 map 随客户端数量无限增长
func (l *slidingWindowLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		expired := true
		for _, hit := range hits {
			if hit.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(l.hits, key)
		}
	}
}

func (l *slidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := l.hits[key][:0]
	for _, hit := range l.hits[key] {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}

	if len(kept) >= l.requests {
		l.hits[key] = kept
		return false
	}

	l.hits[key] = append(kept, now)
	return true
}

// RateLimit 限流中间件，已登录用户按用户限流，匿名请求按 IP 限流
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			key = "user:" + strconv.FormatInt(userID, 10)
		}

		if !limiter.Allow(key) {
			response.Error(c, response.CodeQuotaExceeded, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

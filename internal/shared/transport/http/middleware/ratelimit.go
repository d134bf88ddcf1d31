package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/transport/http/dto"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按玩家（未登录则按 IP）做令牌桶限流。
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*limiterEntry
	now     func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Allow 同时顺带清理长时间不活跃的桶。
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e := r.entries[key]
	if e == nil {
		e = &limiterEntry{lim: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	if len(r.entries) > 1024 {
		for k, v := range r.entries {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(r.entries, k)
			}
		}
	}
	return e.lim.AllowN(now, 1)
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if pid, ok := PlayerIDFrom(c); ok {
			key = "player:" + pid.String()
		}
		if !r.Allow(key) {
			c.AbortWithStatusJSON(dto.StatusOf(transport.RateLimited), dto.Error(transport.RateLimited, "操作太频繁"))
			return
		}
		c.Next()
	}
}

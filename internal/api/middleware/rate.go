package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines per-client rate limiting. The daemon's
// env-driven defaults live in the config package.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

const (
	// maxVisitors caps the bucket table; the daemon fronts a handful
	// of local clients, so hitting this means address churn, not load.
	maxVisitors = 1024
	// visitorTTL is how long an idle bucket survives before eviction.
	visitorTTL = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorTable holds one token bucket per client IP, bounded by
// evicting idle buckets whenever the table would outgrow maxVisitors.
type visitorTable struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func newVisitorTable(cfg RateLimitConfig) *visitorTable {
	return &visitorTable{
		cfg:      cfg,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// allow reports whether a request from ip may proceed.
func (t *visitorTable) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[ip]
	if !ok {
		if len(t.visitors) >= maxVisitors {
			t.evict()
		}
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst),
		}
		t.visitors[ip] = v
	}
	v.lastSeen = t.now()
	return v.limiter.Allow()
}

// evict drops every bucket idle past visitorTTL; when none is, the
// least recently seen one goes so the table never outgrows the cap.
// Callers hold t.mu.
func (t *visitorTable) evict() {
	cutoff := t.now().Add(-visitorTTL)
	var oldestIP string
	var oldestSeen time.Time
	for ip, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, ip)
			continue
		}
		if oldestIP == "" || v.lastSeen.Before(oldestSeen) {
			oldestIP, oldestSeen = ip, v.lastSeen
		}
	}
	if len(t.visitors) >= maxVisitors && oldestIP != "" {
		delete(t.visitors, oldestIP)
	}
}

// RateLimit rejects requests beyond each client's token bucket with
// 429. One client exhausting its bucket never throttles another.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	table := newVisitorTable(cfg)

	return func(c *gin.Context) {
		if !table.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

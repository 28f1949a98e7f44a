package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"netgate/pkg/errors"
	"netgate/pkg/metrics"
)

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per webhook source address. The
// inventory system is normally the only client, so the map stays tiny;
// the sweep exists for deployments where events arrive through a fleet of
// relays with churning addresses.
type clientLimiters struct {
	mu      sync.RWMutex
	clients map[string]*clientLimiter
	cfg     RateLimitConfig
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	l := &clientLimiters{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
	}
	go l.sweep()
	return l
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.RLock()
	client, ok := l.clients[ip]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		client, ok = l.clients[ip]
		if !ok {
			client = &clientLimiter{
				limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst),
			}
			l.clients[ip] = client
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	client.lastSeen = time.Now()
	l.mu.Unlock()

	return client.limiter
}

func (l *clientLimiters) sweep() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.sweepOnce()
	}
}

func (l *clientLimiters) sweepOnce() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.cfg.MaxAge)
	for ip, client := range l.clients {
		if client.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// RateLimitMiddleware limits webhook requests per client IP. A webhook storm
// from a misconfigured inventory system must not translate into a validation
// storm against remote services.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(config)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		limiter := limiters.get(clientIP)

		if !limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Limit", formatRate(config.RPS))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(errors.ToHTTPStatus(errors.ErrRateLimited), errors.ToErrorResponse(errors.ErrRateLimited))
			c.Abort()
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		c.Header("X-RateLimit-Limit", formatRate(config.RPS))
		remaining := limiter.Burst() - int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func formatRate(rps float64) string {
	return strconv.Itoa(int(rps))
}

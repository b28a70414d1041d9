package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an IP's limiter survives without traffic.
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds a map of IP addresses to their rate limiters.
type rateLimiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newRateLimiterStore(perMinute int) *rateLimiterStore {
	if perMinute <= 0 {
		perMinute = 120
	}
	return &rateLimiterStore{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/4, 1),
	}
}

// getLimiter returns the rate limiter for a given IP, creating one if it doesn't exist.
func (s *rateLimiterStore) getLimiter(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *rateLimiterStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > idleLimiterTTL {
			delete(s.visitors, ip)
		}
	}
}

// RateLimitMiddleware limits requests per IP address. The rejection still
// carries a response string for the voice agent.
func RateLimitMiddleware(perMinute int, response string) gin.HandlerFunc {
	store := newRateLimiterStore(perMinute)
	var requests int
	var mu sync.Mutex
	return func(c *gin.Context) {
		now := time.Now()
		mu.Lock()
		requests++
		if requests%1000 == 0 {
			store.sweep(now)
		}
		mu.Unlock()

		ip := getClientIP(c)
		if !store.getLimiter(ip, now).Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"response": response,
				"success":  false,
				"error":    "rate_limited",
			})
			return
		}
		c.Next()
	}
}

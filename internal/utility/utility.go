package utility

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// GetRealIP is a helper function to get the user's real IP address
// It checks proxy headers (like from ngrok) first.
func GetRealIP(c echo.Context) string {
	// 1. Check X-Forwarded-For first
	// This header can be a list: "client, proxy1, proxy2"
	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// 2. Check X-Real-IP
	if xRealIP := c.Request().Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	// 3. Fall back to the direct peer
	return c.RealIP()
}

// IPRateLimiter hands out one token bucket per client IP. Buckets for IPs not
// seen recently are dropped once more than maxIPs are tracked.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

func NewIPRateLimiter(rps float64, burst, maxIPs int) (*IPRateLimiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](maxIPs)
	if err != nil {
		return nil, fmt.Errorf("failed to create limiter cache: %w", err)
	}
	return &IPRateLimiter{buckets: buckets, limit: rate.Limit(rps), burst: burst}, nil
}

// CheckIPRateLimit consumes one token for ip.
func (l *IPRateLimiter) CheckIPRateLimit(ip string) error {
	l.mu.Lock()
	lim, ok := l.buckets.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(ip, lim)
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("too many attempts, please try again later")
	}
	return nil
}

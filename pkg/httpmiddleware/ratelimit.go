package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc returns the identity a request is counted against.
type KeyFunc func(*http.Request) string

// Limiter is a sliding-window request counter keyed by caller identity. The
// previous window's count is weighted by how much of it still overlaps the
// sliding window.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*counter
}

type counter struct {
	start time.Time
	prev  float64
	curr  float64
}

// Decision is the outcome of Limiter.Allow.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// NewLimiter allows max requests per window for each key.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, windows: make(map[string]*counter)}
}

// Allow counts a request for key at now if it fits in the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.windows[key]
	if !ok {
		c = &counter{start: now.Truncate(l.window)}
		l.windows[key] = c
	}
	if elapsed := now.Sub(c.start); elapsed >= l.window {
		if elapsed >= 2*l.window {
			c.prev = 0
		} else {
			c.prev = c.curr
		}
		c.curr = 0
		c.start = now.Truncate(l.window)
	}

	overlap := 1 - now.Sub(c.start).Seconds()/l.window.Seconds()
	used := c.prev*max(overlap, 0) + c.curr
	d := Decision{Reset: c.start.Add(l.window)}
	if used >= float64(l.max) {
		return d
	}

	c.curr++
	d.Allowed = true
	d.Remaining = max(int(float64(l.max)-used-1), 0)
	return d
}

// Sweep drops keys idle for two windows.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.windows {
		if now.Sub(c.start) >= 2*l.window {
			delete(l.windows, key)
		}
	}
}

// Run sweeps idle keys every two windows until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// RateLimit rejects requests over the limit with 429. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset. A nil key
// function counts requests per client IP.
func RateLimit(l *Limiter, key KeyFunc) Middleware {
	if key == nil {
		key = ClientIP
	}
	limit := strconv.Itoa(l.max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			d := l.Allow(key(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				retry := math.Ceil(max(d.Reset.Sub(now), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(retry)))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"code":429,"message":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// host in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

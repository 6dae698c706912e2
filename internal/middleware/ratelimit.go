package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is a per-process fixed window limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()

	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.windowStart) >= rl.window {
		rl.visitors[key] = &visitor{count: 1, windowStart: now}
		return true, nil
	}

	// Counted requests never move the window.
	v.count++
	return v.count <= rl.limit, nil
}

// Close stops the cleanup goroutine.
func (rl *MemoryLimiter) Close() {
	close(rl.stop)
}

func (rl *MemoryLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.windowStart) >= rl.window {
			delete(rl.visitors, key)
		}
	}
}

// RateLimit rejects callers over the limit with 429. The key is the remote
// address, so chi's RealIP should run first. Limiter errors let the request
// through.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("client", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP already reduced it to a bare address.
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calum/gatehouse/pkg/config"
	"github.com/google/uuid"
)

// Limiter counts requests per key over a fixed window. Each key rolls
// its window independently; stale keys are reaped in the background.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*requestWindow

	stop     chan struct{}
	stopOnce sync.Once
}

type requestWindow struct {
	start time.Time
	count int
}

func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	l := &Limiter{
		limit:   cfg.Requests,
		window:  window,
		windows: make(map[string]*requestWindow),
		stop:    make(chan struct{}),
	}
	go l.reap()
	return l
}

// Stop ends the background reaper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) reap() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, w := range l.windows {
				if now.Sub(w.start) >= l.window {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow records one request for key and reports whether it fits in the
// current window, the remaining quota, and when the window resets.
func (l *Limiter) Allow(key string) (ok bool, remaining int, reset time.Time) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.window {
		w = &requestWindow{start: now}
		l.windows[key] = w
	}
	reset = w.start.Add(l.window)

	if w.count >= l.limit {
		return false, 0, reset
	}
	w.count++
	return true, l.limit - w.count, reset
}

// Middleware throttles requests, choosing the counting key with keyFn.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, reset := l.Allow(keyFn(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles by client IP.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	return NewLimiter(cfg).Middleware(ClientIPKey)
}

// RateLimitByUser throttles authenticated traffic by user id, falling
// back to the client IP when no user is on the context.
func RateLimitByUser(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	return NewLimiter(cfg).Middleware(func(r *http.Request) string {
		if id := GetUserID(r.Context()); id != uuid.Nil {
			return "user:" + id.String()
		}
		return "ip:" + ClientIPKey(r)
	})
}

// ClientIPKey resolves the caller's address, trusting proxy headers
// when present.
func ClientIPKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter rate-limits requests per client IP. It guards the routes
// that fan out to the rate-limited upstream services, so one noisy client
// cannot starve background work of the shared registry budget.
type ClientLimiter struct {
	every time.Duration
	burst int
	idle  time.Duration

	mu      sync.Mutex
	clients map[string]*clientEntry
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows each client one request per every, with bursts up
// to burst. Clients idle for longer than idle are forgotten by Run.
func NewClientLimiter(every time.Duration, burst int, idle time.Duration) *ClientLimiter {
	return &ClientLimiter{
		every:   every,
		burst:   burst,
		idle:    idle,
		clients: make(map[string]*clientEntry),
	}
}

// Middleware rejects over-budget requests with 429.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r), time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run evicts idle clients until ctx is cancelled.
func (l *ClientLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

func (l *ClientLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.clients[ip]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.clients[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.clients, ip)
		}
	}
}

// clientIP returns the peer address, honouring X-Forwarded-For and
// X-Real-Ip only when the peer is a private-network proxy.
func clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isPrivateIP(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	return peer
}

func isPrivateIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

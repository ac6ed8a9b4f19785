package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter allows n events per window for each client address.
type IPLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	window  time.Duration
	clients map[string]*ipEntry
	now     func() time.Time
}

type ipEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewIPLimiter(n int, window time.Duration) *IPLimiter {
	return &IPLimiter{
		every:   rate.Every(window / time.Duration(n)),
		burst:   n,
		window:  window,
		clients: make(map[string]*ipEntry),
		now:     time.Now,
	}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.clients[ip]
	if !ok {
		e = &ipEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[ip] = e
	}
	e.seen = now
	l.sweep(now)
	return e.lim.AllowN(now, 1)
}

// sweep forgets clients idle for longer than two windows; their limiter
// would be full again anyway.
func (l *IPLimiter) sweep(now time.Time) {
	if len(l.clients) < 1024 {
		return
	}
	for ip, e := range l.clients {
		if now.Sub(e.seen) > 2*l.window {
			delete(l.clients, ip)
		}
	}
}

// Limit rejects requests over the budget with 429.
func (l *IPLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// internal/middleware/ratelimit.go
//
// Per-client token bucket.
//
// Context
// -------
// Each client IP (requestinfo.ClientIP, the peer address unless RealIP
// rewrote it) gets its own `rate.Limiter`.  Entries unseen for ten
// minutes are dropped by a janitor goroutine so the map cannot grow
// without bound.  Over-limit requests get 429 with a small JSON body and
// are counted in `contact_rejected_total{reason="rate_limited"}`.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yanizio/folio/internal/metrics"
	"github.com/yanizio/folio/internal/requestinfo"
)

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = 5 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client

	quit chan struct{}
	once sync.Once
}

// NewRateLimiter allows rps sustained requests with bursts of burst.  It
// starts the janitor; call Stop on shutdown.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*client),
		quit:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Allow takes a token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(requestinfo.ClientIP(r).String()) {
			metrics.RejectedTotal.WithLabelValues("rate_limited").Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the janitor.
func (rl *RateLimiter) Stop() { rl.once.Do(func() { close(rl.quit) }) }

func (rl *RateLimiter) janitor() {
	t := time.NewTicker(limiterSweep)
	defer t.Stop()
	for {
		select {
		case <-rl.quit:
			return
		case now := <-t.C:
			rl.sweep(now)
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > limiterIdle {
			delete(rl.clients, ip)
		}
	}
}

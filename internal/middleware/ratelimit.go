package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/eventhub/internal/auth"
	"golang.org/x/time/rate"
)

// LimiterConfig configures a token bucket per key.
type LimiterConfig struct {
	RPS     float64       // steady-state refill rate
	Burst   int           // bucket size
	IdleTTL time.Duration // buckets unused this long are dropped
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one in-memory token bucket per caller. Authenticated
// requests are keyed by user ID and anonymous ones by client IP, so a user
// hopping between addresses shares one budget.
type RateLimiter struct {
	conf LimiterConfig
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*keyLimiter

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter starts a background sweeper for idle buckets; call Stop to
// end it.
func NewRateLimiter(conf LimiterConfig) *RateLimiter {
	if conf.IdleTTL <= 0 {
		conf.IdleTTL = 10 * time.Minute
	}
	rl := &RateLimiter{
		conf:    conf,
		now:     time.Now,
		buckets: make(map[string]*keyLimiter),
		stop:    make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(conf.IdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-rl.stop:
				return
			}
		}
	}()

	return rl
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.conf.IdleTTL {
			delete(rl.buckets, k)
		}
	}
}

// allow takes one token from key's bucket.
func (rl *RateLimiter) allow(key string) bool {
	now := rl.now()
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &keyLimiter{limiter: rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Middleware answers 429 with a Retry-After header once the caller's bucket
// is empty. Mount it after auth.RequireAuth so the user ID is available.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(keyFor(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests, try again shortly"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func keyFor(r *http.Request) string {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

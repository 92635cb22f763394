package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// KeyFunc derives the bucket key of a request.
type KeyFunc func(r *http.Request) string

// KeyByIP keys buckets by client IP.
func KeyByIP(r *http.Request) string { return realIP(r) }

// KeyByUser keys buckets by resolved user id and falls back to the client IP.
// It must run after IdentityFromHeaders.
func KeyByUser(r *http.Request) string {
	if id := IdentityFromContext(r.Context()); id.Resolved() {
		return "user:" + id.UserID
	}
	return "ip:" + realIP(r)
}

// maxBuckets bounds memory; new keys are refused once it is reached.
const maxBuckets = 100_000

// RateLimiter is token bucket middleware with one bucket per key.
type RateLimiter struct {
	rate  float64 // tokens per second
	burst float64
	key   KeyFunc
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// refill adds the tokens earned since the bucket was last seen.
func (b *bucket) refill(now time.Time, rate, burst float64) {
	b.tokens = math.Min(burst, b.tokens+now.Sub(b.seen).Seconds()*rate)
	b.seen = now
}

// NewRateLimiter allows rate requests per second per client IP with bursts of
// up to burst requests.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   float64(burst),
		key:     KeyByIP,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithKey replaces the bucket key function.
func (rl *RateLimiter) WithKey(fn KeyFunc) *RateLimiter {
	rl.key = fn
	return rl
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.allow(rl.key(r))

		h := w.Header()
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Second).Unix(), 10))
		if !ok {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow takes one token from the bucket of key. It returns the tokens left
// and, when refused, the seconds until the next token.
func (rl *RateLimiter) allow(key string) (remaining int, wait float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, found := rl.buckets[key]
	switch {
	case found:
		b.refill(now, rl.rate, rl.burst)
	case len(rl.buckets) >= maxBuckets:
		return 0, 1 / rl.rate, false
	default:
		b = &bucket{tokens: rl.burst, seen: now}
		rl.buckets[key] = b
	}

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup removes buckets idle for longer than maxIdle every interval
// until the returned stop function is called.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for key, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Len returns the number of tracked buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// realIP returns the host of RemoteAddr. Forwarding headers are ignored
// because clients can forge them.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

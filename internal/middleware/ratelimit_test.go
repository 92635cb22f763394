package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// limited wraps rl around a 200 handler behind identity resolution and
// returns a function that sends one request from addr as user.
func limited(rl *RateLimiter) func(addr, user string) *httptest.ResponseRecorder {
	h := IdentityFromHeaders(rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	return func(addr, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", http.NoBody)
		req.RemoteAddr = addr
		if user != "" {
			req.Header.Set("X-User-ID", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
}

func frozen(rl *RateLimiter) *time.Time {
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	frozen(rl)
	send := limited(rl)

	for i := range 5 {
		rec := send("192.168.1.1:5000", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(4-i) {
			t.Fatalf("request %d: remaining %q", i+1, got)
		}
	}

	rec := send("192.168.1.1:5000", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("missing X-RateLimit-Reset")
	}
}

func TestRateLimiterKeys(t *testing.T) {
	tests := []struct {
		name   string
		key    KeyFunc
		first  [2]string // addr, user
		second [2]string
		want   int // status of second after first exhausted its bucket
	}{
		{"ip buckets are separate", KeyByIP, [2]string{"10.0.0.1:1", ""}, [2]string{"10.0.0.2:1", ""}, http.StatusOK},
		{"same ip shares a bucket", KeyByIP, [2]string{"10.0.0.1:1", "alice"}, [2]string{"10.0.0.1:2", "bob"}, http.StatusTooManyRequests},
		{"users behind one ip", KeyByUser, [2]string{"10.0.0.9:1", "alice"}, [2]string{"10.0.0.9:1", "bob"}, http.StatusOK},
		{"same user shares a bucket", KeyByUser, [2]string{"10.0.0.1:1", "alice"}, [2]string{"10.0.0.2:1", "alice"}, http.StatusTooManyRequests},
		{"anonymous falls back to ip", KeyByUser, [2]string{"10.0.0.1:1", ""}, [2]string{"10.0.0.1:2", ""}, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(1, 1).WithKey(tt.key)
			frozen(rl)
			send := limited(rl)

			if rec := send(tt.first[0], tt.first[1]); rec.Code != http.StatusOK {
				t.Fatalf("first request: %d", rec.Code)
			}
			if rec := send(tt.second[0], tt.second[1]); rec.Code != tt.want {
				t.Fatalf("second request: %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimiterRefillAndCleanup(t *testing.T) {
	rl := NewRateLimiter(2, 2)
	now := frozen(rl)

	for range 2 {
		if _, _, ok := rl.allow("k"); !ok {
			t.Fatal("burst must pass")
		}
	}
	if _, wait, ok := rl.allow("k"); ok || wait != 0.5 {
		t.Fatalf("ok=%v wait=%v, want refused with 0.5s wait", ok, wait)
	}

	*now = now.Add(10 * time.Second)
	if remaining, _, ok := rl.allow("k"); !ok || remaining != 1 {
		t.Fatalf("ok=%v remaining=%d; refill must cap at burst", ok, remaining)
	}

	*now = now.Add(time.Hour)
	rl.cleanup(time.Minute)
	if rl.Len() != 0 {
		t.Fatalf("expected idle bucket removed, got %d", rl.Len())
	}
}

func TestRateLimiterStopCleanupTwice(t *testing.T) {
	stop := NewRateLimiter(1, 1).StartCleanup(time.Millisecond, time.Minute)
	stop()
	stop()
}

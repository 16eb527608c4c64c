package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowBurst(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("1.2.3.4", "/api/expenses"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, wait := rl.Allow("1.2.3.4", "/api/expenses")
	if ok {
		t.Errorf("fourth request should be limited")
	}
	if wait <= 0 || wait > 20*time.Second {
		t.Errorf("wait = %v, want about 20s", wait)
	}
	if ok, _ := rl.Allow("5.6.7.8", "/api/expenses"); !ok {
		t.Errorf("other clients have their own bucket")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v, want 1 hit and 2 clients", m)
	}
}

func TestLimiter_AuthBucket(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 600, AuthPerMinute: 8})
	defer rl.Stop()

	// burst is a quarter of the per-minute allowance
	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("ip", "/api/login"); !ok {
			t.Fatalf("login %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow("ip", "/ui/login"); ok {
		t.Errorf("third login attempt should be limited")
	}
	if ok, _ := rl.Allow("ip", "/api/expenses"); !ok {
		t.Errorf("non-auth routes keep the general bucket")
	}
}

func TestLimiter_ExemptPaths(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Allow("ip", "/static/app.js"); !ok {
			t.Fatalf("static assets are not limited")
		}
	}
	if rl.ActiveClients() != 0 {
		t.Errorf("exempt paths should not create buckets")
	}
}

func TestLimiter_IdleBucketsExpire(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10, IdleAfter: time.Millisecond})
	defer rl.Stop()

	rl.Allow("1.1.1.1", "/")
	time.Sleep(5 * time.Millisecond)
	rl.buckets.CleanExpired()

	if rl.ActiveClients() != 0 {
		t.Errorf("ActiveClients() = %d, want 0", rl.ActiveClients())
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{20 * time.Second, 20},
		{20*time.Second + time.Millisecond, 21},
	}
	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.wait); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tt.wait, got, tt.want)
		}
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

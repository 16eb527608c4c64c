package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"expensetracker/internal/cache"
)

// authPaths get the stricter credential bucket.
var authPaths = []string{"/api/login", "/api/register", "/api/auth/", "/ui/login", "/ui/signup"}

// exemptPaths are never limited.
var exemptPaths = []string{"/static/", "/healthz", "/readyz"}

// Config sizes the buckets.
type Config struct {
	RequestsPerMinute int
	Burst             int
	// AuthPerMinute limits login and signup attempts per IP. Defaults to a
	// sixth of RequestsPerMinute, at least 5.
	AuthPerMinute   int
	MaxClients      int
	IdleAfter       time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		MaxClients:        10000,
		IdleAfter:         10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// Limiter keeps token buckets per client IP in a bounded LRU. Buckets idle
// for longer than IdleAfter expire.
type Limiter struct {
	mu        sync.Mutex
	buckets   *cache.LRUCache[*rate.Limiter]
	general   rate.Limit
	burst     int
	auth      rate.Limit
	authBurst int
	hits      atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.AuthPerMinute <= 0 {
		cfg.AuthPerMinute = max(cfg.RequestsPerMinute/6, 5)
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		buckets:   cache.NewLRUCache[*rate.Limiter](cfg.MaxClients, cfg.IdleAfter),
		general:   perMinute(cfg.RequestsPerMinute),
		burst:     cfg.Burst,
		auth:      perMinute(cfg.AuthPerMinute),
		authBurst: max(cfg.AuthPerMinute/4, 1),
		stop:      make(chan struct{}),
	}
	go rl.sweep(cfg.CleanupInterval)
	return rl
}

func perMinute(n int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(n))
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// bucket returns the limiter for key, creating it on first use. Every use
// renews the idle timer.
func (rl *Limiter) bucket(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(limit, burst)
	}
	rl.buckets.Set(key, lim)
	return lim
}

// Allow spends one token for a request to path from clientIP. When the
// request is refused it returns the wait until the next token.
func (rl *Limiter) Allow(clientIP, path string) (bool, time.Duration) {
	if hasPrefix(path, exemptPaths) {
		return true, 0
	}

	now := time.Now()
	limiters := []*rate.Limiter{rl.bucket("all|"+clientIP, rl.general, rl.burst)}
	if hasPrefix(path, authPaths) {
		limiters = append(limiters, rl.bucket("auth|"+clientIP, rl.auth, rl.authBurst))
	}

	for _, lim := range limiters {
		if lim.AllowN(now, 1) {
			continue
		}
		rl.hits.Add(1)
		res := lim.ReserveN(now, 1)
		wait := res.DelayFrom(now)
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

func (rl *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.buckets.CleanExpired()
		case <-rl.stop:
			return
		}
	}
}

// ActiveClients returns the number of live buckets.
func (rl *Limiter) ActiveClients() int {
	return rl.buckets.Size()
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// RetryAfterSeconds rounds wait up to whole seconds, at least 1.
func RetryAfterSeconds(wait time.Duration) int {
	return max(int(math.Ceil(wait.Seconds())), 1)
}

// Middleware refuses limited requests through onLimit, or with a plain 429
// when onLimit is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.Allow(extractIP(r), r.URL.Path)
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			if onLimit != nil {
				onLimit(w, r, wait)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(wait)))
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

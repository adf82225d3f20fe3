package restapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"transitdecode.org/hafas/internal/app"
	"transitdecode.org/hafas/internal/models"
)

const (
	noKey            = "__no_key__"
	limiterIdleAfter = 10 * time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware provides per-API-key rate limiting
type RateLimitMiddleware struct {
	limiters    map[string]*keyLimiter
	mu          sync.Mutex
	rateLimit   rate.Limit
	burstSize   int
	cleanupTick *time.Ticker
	done        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
// ratePerSecond requests are allowed per interval and key, which is also the
// burst size. Zero blocks every request; a negative rate disables limiting.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration) *RateLimitMiddleware {
	var rateLimit rate.Limit
	burst := ratePerSecond
	switch {
	case ratePerSecond < 0:
		rateLimit = rate.Inf
		burst = 0
	case ratePerSecond == 0:
		rateLimit = 0
	default:
		rateLimit = rate.Every(interval / time.Duration(ratePerSecond))
	}

	middleware := &RateLimitMiddleware{
		limiters:    make(map[string]*keyLimiter),
		rateLimit:   rateLimit,
		burstSize:   burst,
		cleanupTick: time.NewTicker(5 * time.Minute),
		done:        make(chan struct{}),
	}

	go middleware.cleanup()

	return middleware
}

// getLimiter gets or creates a rate limiter for the given API key
func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[apiKey]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
		rl.limiters[apiKey] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Handler wraps next with the per-key limit.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := app.RequestAPIKey(r)
		if apiKey == "" {
			apiKey = noKey
		}

		if !rl.getLimiter(apiKey).Allow() {
			rl.sendRateLimitExceeded(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendRateLimitExceeded sends a 429 Too Many Requests response
func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retryAfter := time.Second
	switch rl.rateLimit {
	case 0:
		retryAfter = time.Hour
	case rate.Inf:
	default:
		if every := time.Duration(float64(time.Second) / float64(rl.rateLimit)); every > retryAfter {
			retryAfter = every
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(models.NewResponse(http.StatusTooManyRequests, nil,
		"Rate limit exceeded. Please try again later."))
}

// cleanup drops limiters of keys that have been idle for a while.
func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.done:
			return
		case now := <-rl.cleanupTick.C:
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if now.Sub(entry.lastSeen) > limiterIdleAfter {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTick.Stop()
		close(rl.done)
	})
}

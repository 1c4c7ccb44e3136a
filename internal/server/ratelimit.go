package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a sliding-window limiter keyed by client IP. It guards the
// upload route only; preflights pass through.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string][]time.Time
	rate     int
	window   time.Duration
	now      func() time.Time
	lastGC   time.Time
}

func newRateLimiter(rate int, window time.Duration, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		visitors: make(map[string][]time.Time),
		rate:     rate,
		window:   window,
		now:      now,
	}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !rl.allow(clientIP(r)) {
			setUploadCORS(w)
			w.Header().Set("Retry-After", retryAfter(rl.window))
			writeJSON(w, http.StatusTooManyRequests, msgBody{Msg: "too many uploads, try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	// Drop idle visitors at most once per window.
	if now.Sub(rl.lastGC) > rl.window {
		for k, reqs := range rl.visitors {
			if len(reqs) == 0 || !reqs[len(reqs)-1].After(cutoff) {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	reqs := rl.visitors[ip]
	kept := reqs[:0]
	for _, t := range reqs {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.rate {
		rl.visitors[ip] = kept
		return false
	}
	rl.visitors[ip] = append(kept, now)
	return true
}

func retryAfter(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

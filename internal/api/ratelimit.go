package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// webhookLimiter hands out a token-bucket limiter per webhook id so a noisy
// integration cannot starve the others.
type webhookLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// newWebhookLimiter creates a per-webhook limiter. rps <= 0 disables limiting.
func newWebhookLimiter(rps float64, burst int) *webhookLimiter {
	return &webhookLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a delivery for the webhook may proceed now.
func (wl *webhookLimiter) Allow(webhookID string) bool {
	if wl.rps <= 0 {
		return true
	}

	wl.mu.Lock()
	limiter, ok := wl.limiters[webhookID]
	if !ok {
		limiter = rate.NewLimiter(wl.rps, wl.burst)
		wl.limiters[webhookID] = limiter
	}
	wl.mu.Unlock()

	return limiter.Allow()
}

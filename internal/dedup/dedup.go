// Package dedup detects replayed webhook deliveries. External systems retry
// aggressively; a delivery that already processed inside the window is
// acknowledged without re-correlating its events.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow is how long a delivery fingerprint is remembered.
const DefaultWindow = 5 * time.Minute

// Deduper reports whether a delivery was already seen.
type Deduper interface {
	// Seen marks the delivery and reports whether it was already marked
	// inside the window.
	Seen(ctx context.Context, webhookID, rawData string) (bool, error)
}

// fingerprint builds the dedup key from the webhook id and raw payload.
func fingerprint(webhookID, rawData string) string {
	sum := sha256.Sum256([]byte(webhookID + "\x00" + rawData))
	return "webhook-delivery:" + webhookID + ":" + hex.EncodeToString(sum[:])
}

// Redis is a Deduper backed by Redis SET NX with expiry. Safe across service
// replicas.
type Redis struct {
	client *redis.Client
	window time.Duration
}

// NewRedis creates a Redis-backed deduper with the default window.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, window: DefaultWindow}
}

// SetWindow overrides the dedup window.
func (r *Redis) SetWindow(window time.Duration) {
	r.window = window
}

func (r *Redis) Seen(ctx context.Context, webhookID, rawData string) (bool, error) {
	key := fingerprint(webhookID, rawData)
	set, err := r.client.SetNX(ctx, key, 1, r.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery: %w", err)
	}
	// SETNX succeeded means the fingerprint was new.
	return !set, nil
}

// NoOp is a Deduper that never reports a replay. Used when dedup is disabled;
// duplicates then cost duplicate work, not correctness.
type NoOp struct{}

var _ Deduper = NoOp{}

func (NoOp) Seen(ctx context.Context, webhookID, rawData string) (bool, error) {
	return false, nil
}

// Tolerant wraps a Deduper and degrades to "not seen" on backend errors, so a
// Redis outage never blocks ingestion.
type Tolerant struct {
	Inner Deduper
}

func (t Tolerant) Seen(ctx context.Context, webhookID, rawData string) (bool, error) {
	seen, err := t.Inner.Seen(ctx, webhookID, rawData)
	if err != nil {
		slog.Warn("Delivery dedup unavailable, processing anyway", "webhook_id", webhookID, "error", err)
		return false, nil
	}
	return seen, nil
}

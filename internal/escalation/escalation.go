// Package escalation resolves the escalation policy attached to a project's
// alert configuration. Lookups go through a short-TTL read-through cache since
// policies change rarely relative to event volume.
package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jean1042/monitoring/internal/cache"
)

// PolicyInfo is the escalation policy view the correlator needs when creating
// an alert: which policy to escalate on, how many repeats, and whether a
// RECOVERY event may auto-resolve.
type PolicyInfo struct {
	EscalationPolicyID string `json:"escalation_policy_id"`
	RepeatCount        int    `json:"repeat_count"`
	AutoRecovery       bool   `json:"auto_recovery"`
}

// ConfigStore looks up project alert configurations.
type ConfigStore interface {
	// GetProjectAlertConfig returns the policy info for the project.
	// Returns ErrNotFound if the project has no alert configuration.
	GetProjectAlertConfig(ctx context.Context, projectID, domainID string) (*PolicyInfo, error)
}

// ErrNotFound is returned when a project has no alert configuration.
// An alert cannot be created without an escalation policy, so this surfaces
// to the ingestion caller.
var ErrNotFound = errors.New("project alert config not found")

// DefaultTTL is how long a resolved policy stays cached. A policy edit becomes
// visible to new lookups only after expiry; that staleness window is accepted.
const DefaultTTL = 300 * time.Second

// Resolver is the read-through escalation policy cache. The cache is a pure
// accelerator: any Cache implementation, including cache.NoOp, yields the same
// results.
type Resolver struct {
	store ConfigStore
	cache cache.Cache
	ttl   time.Duration
}

// NewResolver creates a resolver with the default 300-second TTL.
func NewResolver(store ConfigStore, c cache.Cache) *Resolver {
	return &Resolver{
		store: store,
		cache: c,
		ttl:   DefaultTTL,
	}
}

// SetTTL overrides the cache TTL.
func (r *Resolver) SetTTL(ttl time.Duration) {
	r.ttl = ttl
}

func cacheKey(projectID, domainID string) string {
	return fmt.Sprintf("escalation-policy-info:%s:%s", domainID, projectID)
}

// Resolve returns the escalation policy info for (projectID, domainID),
// serving from cache when a fresh entry exists.
func (r *Resolver) Resolve(ctx context.Context, projectID, domainID string) (*PolicyInfo, error) {
	key := cacheKey(projectID, domainID)

	if data, ok, err := r.cache.Get(ctx, key); err != nil {
		// Cache trouble only costs a store round trip.
		slog.Warn("Escalation policy cache read failed", "key", key, "error", err)
	} else if ok {
		var info PolicyInfo
		if err := json.Unmarshal(data, &info); err == nil {
			return &info, nil
		}
		slog.Warn("Discarding undecodable escalation policy cache entry", "key", key)
	}

	info, err := r.store.GetProjectAlertConfig(ctx, projectID, domainID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(info); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			slog.Warn("Escalation policy cache write failed", "key", key, "error", err)
		}
	}

	return info, nil
}

// IsAutoRecovery reports whether RECOVERY events may auto-resolve open alerts
// for the project. Served from the same cached entry as Resolve.
func (r *Resolver) IsAutoRecovery(ctx context.Context, projectID, domainID string) (bool, error) {
	info, err := r.Resolve(ctx, projectID, domainID)
	if err != nil {
		return false, err
	}
	return info.AutoRecovery, nil
}

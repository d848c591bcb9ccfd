// Package webhook provides the read-only webhook descriptor view and the
// authorization gate checked before any event is processed.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
)

// State is the enabled/disabled state of a webhook.
type State string

const (
	StateEnabled  State = "ENABLED"
	StateDisabled State = "DISABLED"
)

// Descriptor is the read-only view of a webhook record used by ingestion.
// Webhook CRUD is owned by the record store; this service only reads.
type Descriptor struct {
	WebhookID     string
	Name          string
	ProjectID     string
	DomainID      string
	State         State
	AccessKey     string
	PluginID      string
	PluginVersion string
	PluginOptions map[string]string
}

// Store looks up webhook records.
type Store interface {
	// GetWebhook returns the descriptor for the given webhook id.
	// Returns ErrNotFound if no such webhook exists.
	GetWebhook(ctx context.Context, webhookID string) (*Descriptor, error)
}

// ErrNotFound is returned when a webhook record does not exist.
var ErrNotFound = errors.New("webhook not found")

// ErrPermissionDenied is returned when the supplied access key does not match.
var ErrPermissionDenied = errors.New("permission denied")

// DisabledError is returned when the webhook exists but is disabled.
type DisabledError struct {
	WebhookID string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("webhook %s is disabled", e.WebhookID)
}

// Gate validates inbound webhook deliveries before any event is parsed.
type Gate struct {
	store Store
}

// NewGate creates a gate backed by the given webhook store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Authorize resolves the webhook descriptor and checks the supplied access key
// and the webhook state. Read-only; no side effects.
//
// Access keys act as bearer secrets, so comparison is constant-time.
func (g *Gate) Authorize(ctx context.Context, webhookID, accessKey string) (*Descriptor, error) {
	desc, err := g.store.GetWebhook(ctx, webhookID)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(accessKey), []byte(desc.AccessKey)) != 1 {
		slog.Warn("Webhook access key mismatch", "webhook_id", webhookID)
		return nil, ErrPermissionDenied
	}

	if desc.State == StateDisabled {
		return nil, &DisabledError{WebhookID: desc.WebhookID}
	}

	return desc, nil
}

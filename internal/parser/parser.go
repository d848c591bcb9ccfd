// Package parser adapts the external webhook plugin runtime into normalized
// events. Parsing never fails: any plugin error degrades to a single synthetic
// CRITICAL error event so every delivery leaves a diagnosable record.
package parser

import (
	"context"
	"log/slog"
	"time"

	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/webhook"
)

// RawResult is one record as returned by the plugin runtime. Plugins are
// untrusted; any field may be absent.
type RawResult struct {
	EventKey    string `json:"event_key"`
	EventType   string `json:"event_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	ResourceID  string `json:"resource_id"`
	OccurredAt  string `json:"occurred_at"` // RFC 3339, optional
}

// PluginRuntime executes a webhook parsing plugin. Implementations live
// outside this core; only the call contract is fixed here.
type PluginRuntime interface {
	// Initialize prepares the plugin identified by id and version for the domain.
	Initialize(ctx context.Context, pluginID, pluginVersion, domainID string) error

	// ParseEvent turns a raw webhook payload into zero or more result records.
	ParseEvent(ctx context.Context, options map[string]string, rawData string) ([]RawResult, error)
}

// DefaultPluginTimeout bounds a single plugin invocation. A timeout is treated
// as a parse failure, not an ingestion failure.
const DefaultPluginTimeout = 30 * time.Second

// Adapter invokes the plugin runtime and normalizes its output.
type Adapter struct {
	runtime PluginRuntime
	timeout time.Duration
	now     func() time.Time
}

// NewAdapter creates an adapter with the default plugin timeout.
func NewAdapter(runtime PluginRuntime) *Adapter {
	return &Adapter{
		runtime: runtime,
		timeout: DefaultPluginTimeout,
		now:     time.Now,
	}
}

// SetTimeout overrides the plugin invocation timeout.
func (a *Adapter) SetTimeout(timeout time.Duration) {
	a.timeout = timeout
}

// Parse runs the webhook's plugin over the raw payload and returns normalized
// events in plugin order. On any runtime error it returns exactly one
// synthetic error event instead of propagating the failure.
func (a *Adapter) Parse(ctx context.Context, desc *webhook.Descriptor, rawData string) []events.Event {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := a.invoke(ctx, desc, rawData)
	if err != nil {
		slog.Error("Event parsing failed",
			"webhook_id", desc.WebhookID,
			"plugin_id", desc.PluginID,
			"error", err,
		)
		return []events.Event{a.errorEvent(desc.Name, err)}
	}

	normalized := make([]events.Event, 0, len(results))
	for _, result := range results {
		normalized = append(normalized, a.normalize(result))
	}
	return normalized
}

func (a *Adapter) invoke(ctx context.Context, desc *webhook.Descriptor, rawData string) ([]RawResult, error) {
	if err := a.runtime.Initialize(ctx, desc.PluginID, desc.PluginVersion, desc.DomainID); err != nil {
		return nil, err
	}
	return a.runtime.ParseEvent(ctx, desc.PluginOptions, rawData)
}

// normalize fills best-effort defaults for absent fields. A record with no
// event key gets a generated one and correlates as a one-off problem.
func (a *Adapter) normalize(result RawResult) events.Event {
	event := events.Event{
		EventKey:    result.EventKey,
		EventType:   events.EventType(result.EventType),
		Title:       result.Title,
		Description: result.Description,
		Severity:    events.Severity(result.Severity),
		ResourceID:  result.ResourceID,
	}

	if event.EventKey == "" {
		event.EventKey = events.GenerateID("event-key")
	}
	if event.EventType == "" {
		event.EventType = events.EventTypeError
	}

	event.OccurredAt = a.parseOccurredAt(result.OccurredAt)
	return event
}

// parseOccurredAt parses the plugin-supplied timestamp, falling back to
// ingestion time when absent or unparseable.
func (a *Adapter) parseOccurredAt(value string) time.Time {
	if value == "" {
		return a.now().UTC()
	}
	occurredAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		slog.Warn("Unparseable occurred_at, using ingestion time", "occurred_at", value)
		return a.now().UTC()
	}
	return occurredAt.UTC()
}

// errorEvent builds the synthetic event recorded when parsing fails.
func (a *Adapter) errorEvent(webhookName string, parseErr error) events.Event {
	return events.Event{
		EventKey:    events.GenerateID("error"),
		EventType:   events.EventTypeError,
		Title:       "Webhook Event Parsing Error - " + webhookName,
		Description: parseErr.Error(),
		Severity:    events.SeverityCritical,
		OccurredAt:  a.now().UTC(),
	}
}

// Package ingest orchestrates one webhook delivery end to end: authorization,
// parsing, and per-event correlation.
package ingest

import (
	"context"
	"log/slog"

	"github.com/jean1042/monitoring/internal/correlator"
	"github.com/jean1042/monitoring/internal/dedup"
	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/parser"
	"github.com/jean1042/monitoring/internal/webhook"
)

// EventResult is the outcome for one normalized event in a delivery.
// Exactly one of Event and Err is set, except for dropped health events where
// both are nil.
type EventResult struct {
	Event *events.Event
	Err   error
}

// Service processes webhook deliveries. Events within one delivery are
// correlated strictly in parser order; a failure on one event does not abort
// the rest of the batch.
type Service struct {
	gate       *webhook.Gate
	adapter    *parser.Adapter
	correlator *correlator.Correlator
	deduper    dedup.Deduper
}

// NewService creates the ingestion service. deduper may be dedup.NoOp{} to
// disable replay detection.
func NewService(gate *webhook.Gate, adapter *parser.Adapter, c *correlator.Correlator, deduper dedup.Deduper) *Service {
	return &Service{
		gate:       gate,
		adapter:    adapter,
		correlator: c,
		deduper:    deduper,
	}
}

// CreateEvents handles one raw webhook delivery.
//
// Authorization failures return an error and process nothing. After the gate,
// the delivery always yields per-event results: parse failures degrade to a
// synthetic error event, and per-event correlation failures are isolated in
// their EventResult. A replayed delivery returns (nil, nil).
func (s *Service) CreateEvents(ctx context.Context, webhookID, accessKey, rawData string) ([]EventResult, error) {
	desc, err := s.gate.Authorize(ctx, webhookID, accessKey)
	if err != nil {
		return nil, err
	}

	seen, err := s.deduper.Seen(ctx, desc.WebhookID, rawData)
	if err != nil {
		slog.Warn("Delivery replay check failed, processing anyway",
			"webhook_id", desc.WebhookID,
			"error", err,
		)
	}
	if seen {
		slog.Info("Skipping replayed webhook delivery", "webhook_id", desc.WebhookID)
		return nil, nil
	}

	parsed := s.adapter.Parse(ctx, desc, rawData)

	results := make([]EventResult, 0, len(parsed))
	for _, event := range parsed {
		created, err := s.correlator.Ingest(ctx, event, rawData, desc)
		if err != nil {
			slog.Error("Event correlation failed",
				"webhook_id", desc.WebhookID,
				"event_key", event.EventKey,
				"error", err,
			)
			results = append(results, EventResult{Err: err})
			continue
		}
		results = append(results, EventResult{Event: created})
	}

	return results, nil
}

package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jean1042/monitoring/internal/escalation"
	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/ingest"
	"github.com/jean1042/monitoring/internal/webhook"
)

// maxPayloadBytes bounds a single webhook delivery body.
const maxPayloadBytes = 1 << 20 // 1MB

// EventReader reads persisted events for the GET endpoint.
type EventReader interface {
	GetEvent(ctx context.Context, eventID, domainID string) (*events.Event, error)
}

// EventResult is the per-event outcome reported to the webhook caller.
type EventResult struct {
	EventID  string `json:"event_id,omitempty"`
	EventKey string `json:"event_key,omitempty"`
	AlertID  string `json:"alert_id,omitempty"`
	Dropped  bool   `json:"dropped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CreateEventsResponse is the response to a webhook delivery.
type CreateEventsResponse struct {
	Results []EventResult `json:"results"`
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	ingest  *ingest.Service
	reader  EventReader
	limiter *webhookLimiter
}

// NewHandlers creates the API handlers. rps <= 0 disables per-webhook rate
// limiting.
func NewHandlers(service *ingest.Service, reader EventReader, rps float64, burst int) *Handlers {
	return &Handlers{
		ingest:  service,
		reader:  reader,
		limiter: newWebhookLimiter(rps, burst),
	}
}

// CreateEvents handles POST /monitoring/v1/webhook/{webhook_id}/{access_key}/events.
// The request body is the raw third-party payload, passed to the webhook's
// plugin untouched.
func (h *Handlers) CreateEvents(w http.ResponseWriter, r *http.Request) {
	webhookID := r.PathValue("webhook_id")
	accessKey := r.PathValue("access_key")

	if !h.limiter.Allow(webhookID) {
		respondError(w, http.StatusTooManyRequests, "Rate limit exceeded for webhook")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxPayloadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "Payload exceeds 1MB limit")
		return
	}

	results, err := h.ingest.CreateEvents(r.Context(), webhookID, accessKey, string(body))
	if err != nil {
		h.respondIngestError(w, webhookID, err)
		return
	}

	respondJSON(w, http.StatusOK, CreateEventsResponse{Results: toEventResults(results)})
}

// respondIngestError maps gate and configuration errors to HTTP statuses.
func (h *Handlers) respondIngestError(w http.ResponseWriter, webhookID string, err error) {
	var disabledErr *webhook.DisabledError
	switch {
	case errors.Is(err, webhook.ErrNotFound):
		respondError(w, http.StatusNotFound, "Webhook not found")
	case errors.Is(err, webhook.ErrPermissionDenied):
		respondError(w, http.StatusUnauthorized, "Permission denied")
	case errors.As(err, &disabledErr):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("Webhook delivery failed", "webhook_id", webhookID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toEventResults(results []ingest.EventResult) []EventResult {
	out := make([]EventResult, 0, len(results))
	for _, result := range results {
		switch {
		case result.Err != nil:
			out = append(out, EventResult{Error: resultErrorMessage(result.Err)})
		case result.Event == nil:
			out = append(out, EventResult{Dropped: true})
		default:
			out = append(out, EventResult{
				EventID:  result.Event.EventID,
				EventKey: result.Event.EventKey,
				AlertID:  result.Event.AlertID,
			})
		}
	}
	return out
}

// resultErrorMessage keeps store internals out of caller-visible errors.
func resultErrorMessage(err error) string {
	if errors.Is(err, escalation.ErrNotFound) {
		return "project alert config not found"
	}
	return "event processing failed"
}

// GetEvent handles GET /monitoring/v1/events/{event_id}?domain_id=...
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	domainID := r.URL.Query().Get("domain_id")
	if domainID == "" {
		respondError(w, http.StatusBadRequest, "domain_id is required")
		return
	}

	event, err := h.reader.GetEvent(r.Context(), eventID, domainID)
	if err != nil {
		slog.Error("Failed to get event", "event_id", eventID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "Event not found")
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// HandleHealth handles GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

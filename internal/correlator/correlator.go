// Package correlator implements event-to-alert correlation: it decides
// whether a normalized event attaches to an existing alert, auto-resolves
// one, seeds a new one, or is dropped as a health signal.
package correlator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/notifier"
	"github.com/jean1042/monitoring/internal/webhook"
)

// Correlator mutates alert state based on incoming normalized events.
type Correlator struct {
	events   EventStore
	alerts   AlertStore
	policies PolicyResolver
	notifier Notifier
	metrics  MetricsRecorder
	keys     *keyedMutex
}

// NewCorrelator creates a correlator with no-op metrics.
func NewCorrelator(eventStore EventStore, alertStore AlertStore, policies PolicyResolver, n Notifier) *Correlator {
	return NewCorrelatorWithMetrics(eventStore, alertStore, policies, n, nil)
}

// NewCorrelatorWithMetrics creates a correlator with the provided metrics recorder.
// If m is nil, a no-op implementation is used.
func NewCorrelatorWithMetrics(eventStore EventStore, alertStore AlertStore, policies PolicyResolver, n Notifier, m MetricsRecorder) *Correlator {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Correlator{
		events:   eventStore,
		alerts:   alertStore,
		policies: policies,
		notifier: n,
		metrics:  m,
		keys:     newKeyedMutex(),
	}
}

// Ingest correlates one normalized event and persists it.
//
// Returns the persisted event, or nil for a RECOVERY event whose key has no
// prior event stream (a health probe, not a problem report). Fails only when
// the store fails or the project has no escalation policy; malformed event
// content never fails ingestion.
func (c *Correlator) Ingest(ctx context.Context, event events.Event, rawData string, desc *webhook.Descriptor) (*events.Event, error) {
	start := time.Now()
	c.metrics.RecordReceived()

	// Stamp provenance before correlation; the stored event must be a full
	// audit record on its own.
	event.RawData = rawData
	event.WebhookID = desc.WebhookID
	event.ProjectID = desc.ProjectID
	event.DomainID = desc.DomainID

	// Serialize find-then-write per event key within the domain.
	unlock := c.keys.Lock(event.DomainID + "/" + event.EventKey)
	defer unlock()

	prior, err := c.events.FindEventByKey(ctx, event.EventKey, event.DomainID)
	if err != nil {
		c.metrics.RecordError()
		return nil, err
	}

	var alert *events.Alert
	if prior != nil {
		alert, err = c.alerts.GetAlert(ctx, prior.AlertID)
		if err != nil {
			c.metrics.RecordError()
			return nil, err
		}
	}

	// A recovery signal with nothing to recover is a health probe.
	if event.EventType == events.EventTypeRecovery && prior == nil {
		slog.Debug("Skipping health event",
			"event_key", event.EventKey,
			"title", event.Title,
		)
		c.metrics.IncrementCustom("events_recovery_dropped")
		return nil, nil
	}

	if alert != nil && alert.State.IsOpen() {
		if event.EventType == events.EventTypeRecovery {
			if err := c.resolveAlert(ctx, alert); err != nil {
				c.metrics.RecordError()
				return nil, err
			}
		}
		event.AlertID = alert.AlertID
	} else {
		// No attach target: either the key has never alerted, or its last
		// alert is already resolved.
		newAlert, err := c.createAlert(ctx, &event)
		if err != nil {
			c.metrics.RecordError()
			return nil, err
		}
		event.AlertID = newAlert.AlertID
	}

	if err := c.events.CreateEvent(ctx, &event); err != nil {
		c.metrics.RecordError()
		return nil, err
	}

	c.metrics.RecordProcessed(time.Since(start))
	return &event, nil
}

// resolveAlert applies the auto-recovery transition when policy allows it.
// Without auto-recovery the alert stays open: recovery is advisory until
// policy confirms it.
func (c *Correlator) resolveAlert(ctx context.Context, alert *events.Alert) error {
	autoRecovery, err := c.policies.IsAutoRecovery(ctx, alert.ProjectID, alert.DomainID)
	if err != nil {
		return err
	}
	if !autoRecovery || alert.State == events.AlertStateResolved {
		return nil
	}

	updated, err := c.alerts.UpdateAlertState(ctx, alert.AlertID, events.AlertStateResolved)
	if err != nil {
		return err
	}
	if !updated {
		// Lost the race to a concurrent resolution; nothing left to do.
		return nil
	}

	wasError := alert.State == events.AlertStateError
	alert.State = events.AlertStateResolved

	slog.Info("Alert auto-recovered",
		"alert_id", alert.AlertID,
		"project_id", alert.ProjectID,
	)
	c.metrics.IncrementCustom("alerts_auto_recovered")

	// Parse-failure alerts never notify, not even on resolution.
	if !wasError {
		c.notifier.Notify(ctx, alert, notifier.NotificationTypeSuccess)
		c.metrics.RecordPublished()
	}
	return nil
}

// createAlert seeds a new alert from the event. Urgency is derived from the
// triggering event's severity once, here, and never recomputed.
func (c *Correlator) createAlert(ctx context.Context, event *events.Event) (*events.Alert, error) {
	policy, err := c.policies.Resolve(ctx, event.ProjectID, event.DomainID)
	if err != nil {
		return nil, err
	}

	alert := &events.Alert{
		Title:              event.Title,
		Description:        event.Description,
		State:              events.AlertStateTriggered,
		Urgency:            events.UrgencyFromSeverity(event.Severity),
		Severity:           event.Severity,
		ResourceID:         event.ResourceID,
		EscalationPolicyID: policy.EscalationPolicyID,
		EscalationTTL:      policy.RepeatCount + 1,
		TriggeredBy:        event.WebhookID,
		WebhookID:          event.WebhookID,
		ProjectID:          event.ProjectID,
		DomainID:           event.DomainID,
	}

	// Parse-failure events produce an alert that is attach-eligible but
	// suppressed from notifications.
	if event.EventType == events.EventTypeError {
		alert.State = events.AlertStateError
	}

	if err := c.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	slog.Debug("Created new alert",
		"alert_id", alert.AlertID,
		"title", alert.Title,
		"event_type", event.EventType,
	)
	c.metrics.IncrementCustom("alerts_created")

	c.notifier.Notify(ctx, alert, "")
	if alert.State != events.AlertStateError {
		c.metrics.RecordPublished()
	}
	return alert, nil
}

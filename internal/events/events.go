// Package events defines the domain types shared by the ingestion pipeline:
// normalized events, alerts, and the severity to urgency mapping.
package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies what a normalized event reports about the monitored resource.
type EventType string

const (
	// EventTypeCreate reports a new or recurring problem occurrence.
	EventTypeCreate EventType = "CREATE"
	// EventTypeRecovery reports that the underlying problem cleared.
	EventTypeRecovery EventType = "RECOVERY"
	// EventTypeError marks a synthetic event manufactured on parse failure.
	EventTypeError EventType = "ERROR"
)

// Severity is the severity reported by the upstream monitoring tool.
// Plugins are untrusted, so any string may arrive here; unknown values are
// tolerated and map to low urgency.
type Severity string

const (
	SeverityCritical     Severity = "CRITICAL"
	SeverityError        Severity = "ERROR"
	SeverityWarning      Severity = "WARNING"
	SeverityInfo         Severity = "INFO"
	SeverityNotAvailable Severity = "NOT_AVAILABLE"
	SeverityNone         Severity = "NONE"
)

// Urgency is the derived alert priority used by downstream escalation.
type Urgency string

const (
	UrgencyHigh Urgency = "HIGH"
	UrgencyLow  Urgency = "LOW"
)

// UrgencyFromSeverity derives alert urgency from event severity.
// CRITICAL, ERROR and NOT_AVAILABLE page with high urgency; everything else,
// including severities this service has never heard of, stays low.
func UrgencyFromSeverity(severity Severity) Urgency {
	switch severity {
	case SeverityCritical, SeverityError, SeverityNotAvailable:
		return UrgencyHigh
	default:
		return UrgencyLow
	}
}

// AlertState is the lifecycle state of an alert.
type AlertState string

const (
	// AlertStateTriggered is the normal open state of a newly created alert.
	AlertStateTriggered AlertState = "TRIGGERED"
	// AlertStateAcknowledged is an open alert a responder has claimed.
	AlertStateAcknowledged AlertState = "ACKNOWLEDGED"
	// AlertStateResolved is the terminal recovered state.
	AlertStateResolved AlertState = "RESOLVED"
	// AlertStateError marks alerts created from parse-failure events.
	// Error alerts stay attach-eligible but never trigger notifications.
	AlertStateError AlertState = "ERROR"
)

// IsOpen reports whether new events may still attach to an alert in this state.
// Anything that is not RESOLVED is attach-eligible, including ERROR.
func (s AlertState) IsOpen() bool {
	return s != AlertStateResolved
}

// Event is a normalized monitoring event. It is created by the parser adapter
// (or synthesized on parse failure), stamped by the correlator, persisted once,
// and never mutated afterwards.
type Event struct {
	EventID     string    `json:"event_id"`
	EventKey    string    `json:"event_key"`
	EventType   EventType `json:"event_type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    Severity  `json:"severity"`
	ResourceID  string    `json:"resource_id,omitempty"`
	RawData     string    `json:"raw_data,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	AlertID     string    `json:"alert_id"`
	WebhookID   string    `json:"webhook_id"`
	ProjectID   string    `json:"project_id"`
	DomainID    string    `json:"domain_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Alert is the aggregate problem record one or more events attach to.
type Alert struct {
	AlertID            string     `json:"alert_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	State              AlertState `json:"state"`
	Urgency            Urgency    `json:"urgency"`
	Severity           Severity   `json:"severity"`
	ResourceID         string     `json:"resource_id,omitempty"`
	EscalationPolicyID string     `json:"escalation_policy_id"`
	EscalationTTL      int        `json:"escalation_ttl"`
	TriggeredBy        string     `json:"triggered_by"`
	WebhookID          string     `json:"webhook_id"`
	ProjectID          string     `json:"project_id"`
	DomainID           string     `json:"domain_id"`
	CreatedAt          time.Time  `json:"created_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
}

// GenerateID returns a prefixed random identifier, e.g. "event-3f2a1b9c0d4e".
func GenerateID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + hex[:12]
}

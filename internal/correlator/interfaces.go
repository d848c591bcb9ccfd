// Package correlator implements event-to-alert correlation.
package correlator

import (
	"context"

	"github.com/jean1042/monitoring/internal/escalation"
	"github.com/jean1042/monitoring/internal/events"
)

// EventStore persists events and serves the correlation lookup.
type EventStore interface {
	// FindEventByKey returns the most recent event with the given key in the
	// domain, or nil if none exists.
	FindEventByKey(ctx context.Context, eventKey, domainID string) (*events.Event, error)

	// CreateEvent persists a new event, assigning its id.
	CreateEvent(ctx context.Context, event *events.Event) error
}

// AlertStore persists alerts and their state transitions.
type AlertStore interface {
	// GetAlert returns the alert with the given id, or nil if none exists.
	GetAlert(ctx context.Context, alertID string) (*events.Alert, error)

	// CreateAlert persists a new alert, assigning its id.
	CreateAlert(ctx context.Context, alert *events.Alert) error

	// UpdateAlertState transitions the alert to newState only while it is
	// still open. Returns true if the transition applied.
	UpdateAlertState(ctx context.Context, alertID string, newState events.AlertState) (bool, error)
}

// PolicyResolver resolves escalation policy info for a project.
type PolicyResolver interface {
	// Resolve returns the escalation policy info for the project.
	// Returns escalation.ErrNotFound if the project has no alert configuration.
	Resolve(ctx context.Context, projectID, domainID string) (*escalation.PolicyInfo, error)

	// IsAutoRecovery reports whether RECOVERY events may auto-resolve alerts
	// for the project.
	IsAutoRecovery(ctx context.Context, projectID, domainID string) (bool, error)
}

// Notifier submits asynchronous notification jobs. Implementations must not
// block on or fail ingestion.
type Notifier interface {
	Notify(ctx context.Context, alert *events.Alert, notificationType string)
}

// Package database provides PostgreSQL persistence for webhooks, project
// alert configurations, events, and alerts.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/jean1042/monitoring/internal/escalation"
	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/webhook"
)

// DB wraps a database connection and provides persistence operations for the
// ingestion pipeline.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// GetWebhook returns the webhook descriptor for the given id.
// Returns webhook.ErrNotFound if no such webhook exists.
func (db *DB) GetWebhook(ctx context.Context, webhookID string) (*webhook.Descriptor, error) {
	query := `
		SELECT webhook_id, name, project_id, domain_id, state, access_key,
		       plugin_id, plugin_version, plugin_options
		FROM webhooks
		WHERE webhook_id = $1
	`

	var desc webhook.Descriptor
	var optionsJSON sql.NullString
	err := db.conn.QueryRowContext(ctx, query, webhookID).Scan(
		&desc.WebhookID,
		&desc.Name,
		&desc.ProjectID,
		&desc.DomainID,
		&desc.State,
		&desc.AccessKey,
		&desc.PluginID,
		&desc.PluginVersion,
		&optionsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("webhook %s: %w", webhookID, webhook.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get webhook %s: %w", webhookID, err)
	}

	if optionsJSON.Valid {
		if err := json.Unmarshal([]byte(optionsJSON.String), &desc.PluginOptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plugin options for webhook %s: %w", webhookID, err)
		}
	}

	return &desc, nil
}

// GetProjectAlertConfig returns the escalation policy info configured for the
// project. Returns escalation.ErrNotFound if the project has no configuration.
func (db *DB) GetProjectAlertConfig(ctx context.Context, projectID, domainID string) (*escalation.PolicyInfo, error) {
	query := `
		SELECT escalation_policy_id, repeat_count, auto_recovery
		FROM project_alert_configs
		WHERE project_id = $1 AND domain_id = $2
	`

	var info escalation.PolicyInfo
	err := db.conn.QueryRowContext(ctx, query, projectID, domainID).Scan(
		&info.EscalationPolicyID,
		&info.RepeatCount,
		&info.AutoRecovery,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("project %s in domain %s: %w", projectID, domainID, escalation.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project alert config: %w", err)
	}

	return &info, nil
}

const eventColumns = `
	event_id, event_key, event_type, title, description, severity, resource_id,
	raw_data, occurred_at, alert_id, webhook_id, project_id, domain_id, created_at
`

// FindEventByKey returns the most recent event with the given event key in the
// domain, or nil if none exists.
func (db *DB) FindEventByKey(ctx context.Context, eventKey, domainID string) (*events.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE event_key = $1 AND domain_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	event, err := db.scanEvent(db.conn.QueryRowContext(ctx, query, eventKey, domainID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find event by key %s: %w", eventKey, err)
	}
	return event, nil
}

// GetEvent returns a single event by id within the domain.
// Returns nil if no such event exists.
func (db *DB) GetEvent(ctx context.Context, eventID, domainID string) (*events.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE event_id = $1 AND domain_id = $2
	`

	event, err := db.scanEvent(db.conn.QueryRowContext(ctx, query, eventID, domainID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanEvent(row rowScanner) (*events.Event, error) {
	var event events.Event
	var description, resourceID, rawData sql.NullString
	err := row.Scan(
		&event.EventID,
		&event.EventKey,
		&event.EventType,
		&event.Title,
		&description,
		&event.Severity,
		&resourceID,
		&rawData,
		&event.OccurredAt,
		&event.AlertID,
		&event.WebhookID,
		&event.ProjectID,
		&event.DomainID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Description = description.String
	event.ResourceID = resourceID.String
	event.RawData = rawData.String
	return &event, nil
}

// CreateEvent persists a new event. The event id and creation timestamp are
// assigned here; the caller's struct is updated in place.
func (db *DB) CreateEvent(ctx context.Context, event *events.Event) error {
	event.EventID = events.GenerateID("event")
	event.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO events (event_id, event_key, event_type, title, description,
		                    severity, resource_id, raw_data, occurred_at, alert_id,
		                    webhook_id, project_id, domain_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := db.conn.ExecContext(ctx, query,
		event.EventID,
		event.EventKey,
		event.EventType,
		event.Title,
		nullable(event.Description),
		event.Severity,
		nullable(event.ResourceID),
		nullable(event.RawData),
		event.OccurredAt,
		event.AlertID,
		event.WebhookID,
		event.ProjectID,
		event.DomainID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	slog.Debug("Inserted event",
		"event_id", event.EventID,
		"event_key", event.EventKey,
		"alert_id", event.AlertID,
	)
	return nil
}

// GetAlert returns the alert with the given id, or nil if none exists.
func (db *DB) GetAlert(ctx context.Context, alertID string) (*events.Alert, error) {
	query := `
		SELECT alert_id, title, description, state, urgency, severity, resource_id,
		       escalation_policy_id, escalation_ttl, triggered_by, webhook_id,
		       project_id, domain_id, created_at, resolved_at
		FROM alerts
		WHERE alert_id = $1
	`

	var alert events.Alert
	var description, resourceID sql.NullString
	var resolvedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx, query, alertID).Scan(
		&alert.AlertID,
		&alert.Title,
		&description,
		&alert.State,
		&alert.Urgency,
		&alert.Severity,
		&resourceID,
		&alert.EscalationPolicyID,
		&alert.EscalationTTL,
		&alert.TriggeredBy,
		&alert.WebhookID,
		&alert.ProjectID,
		&alert.DomainID,
		&alert.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert %s: %w", alertID, err)
	}

	alert.Description = description.String
	alert.ResourceID = resourceID.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	return &alert, nil
}

// CreateAlert persists a new alert. The alert id and creation timestamp are
// assigned here; the caller's struct is updated in place.
func (db *DB) CreateAlert(ctx context.Context, alert *events.Alert) error {
	alert.AlertID = events.GenerateID("alert")
	alert.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO alerts (alert_id, title, description, state, urgency, severity,
		                    resource_id, escalation_policy_id, escalation_ttl,
		                    triggered_by, webhook_id, project_id, domain_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := db.conn.ExecContext(ctx, query,
		alert.AlertID,
		alert.Title,
		nullable(alert.Description),
		alert.State,
		alert.Urgency,
		alert.Severity,
		nullable(alert.ResourceID),
		alert.EscalationPolicyID,
		alert.EscalationTTL,
		alert.TriggeredBy,
		alert.WebhookID,
		alert.ProjectID,
		alert.DomainID,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	slog.Info("Created alert",
		"alert_id", alert.AlertID,
		"state", alert.State,
		"urgency", alert.Urgency,
		"project_id", alert.ProjectID,
	)
	return nil
}

// UpdateAlertState transitions an alert to newState with compare-and-swap
// semantics: the update applies only while the alert is still open. Returns
// true if a row was updated, false if the alert was already RESOLVED or gone.
func (db *DB) UpdateAlertState(ctx context.Context, alertID string, newState events.AlertState) (bool, error) {
	query := `
		UPDATE alerts
		SET state = $2,
		    resolved_at = CASE WHEN $2 = 'RESOLVED' THEN NOW() ELSE resolved_at END
		WHERE alert_id = $1 AND state <> 'RESOLVED'
	`

	result, err := db.conn.ExecContext(ctx, query, alertID, newState)
	if err != nil {
		return false, fmt.Errorf("failed to update alert %s state: %w", alertID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

// nullable converts an empty string to a SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

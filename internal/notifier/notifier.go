// Package notifier submits asynchronous notification jobs for alerts.
// Submission is fire-and-forget: the ingestion path never waits on, retries,
// or fails because of notification delivery.
package notifier

import (
	"context"
	"log/slog"

	"github.com/jean1042/monitoring/internal/events"
)

// Queue name and handler routing carried on every job. The worker consuming
// the jobs topic uses these to dispatch the task.
const (
	JobQueueName = "monitoring_alert_notification_from_webhook"
	JobService   = "JobService"
	JobMethod    = "create_notification"
)

// NotificationTypeSuccess marks resolved-alert notifications.
const NotificationTypeSuccess = "SUCCESS"

// JobParams is the payload handed to the notification worker.
type JobParams struct {
	AlertID          string `json:"alert_id"`
	DomainID         string `json:"domain_id"`
	NotificationType string `json:"notification_type,omitempty"`
}

// Job describes one notification task to execute asynchronously.
type Job struct {
	Queue   string    `json:"queue"`
	Service string    `json:"service"`
	Method  string    `json:"method"`
	Params  JobParams `json:"params"`
}

// JobQueue submits jobs to the asynchronous job layer.
type JobQueue interface {
	// Submit enqueues a job. At-least-once attempt; completion is not tracked.
	Submit(ctx context.Context, job *Job) error
}

// Dispatcher decides whether an alert state change warrants a notification
// job and submits it.
type Dispatcher struct {
	queue JobQueue
}

// NewDispatcher creates a dispatcher backed by the given job queue.
func NewDispatcher(queue JobQueue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Notify submits a notification job for the alert. notificationType may be
// empty for the default creation notification.
//
// Alerts in the ERROR state never notify: parse-failure alerts stay on record
// for diagnosis but must not page anyone. Submission failures are logged and
// swallowed so ingestion never fails on a queue outage.
func (d *Dispatcher) Notify(ctx context.Context, alert *events.Alert, notificationType string) {
	if alert.State == events.AlertStateError {
		slog.Debug("Suppressing notification for error-state alert", "alert_id", alert.AlertID)
		return
	}

	job := &Job{
		Queue:   JobQueueName,
		Service: JobService,
		Method:  JobMethod,
		Params: JobParams{
			AlertID:          alert.AlertID,
			DomainID:         alert.DomainID,
			NotificationType: notificationType,
		},
	}

	if err := d.queue.Submit(ctx, job); err != nil {
		slog.Error("Failed to submit notification job",
			"alert_id", alert.AlertID,
			"domain_id", alert.DomainID,
			"notification_type", notificationType,
			"error", err,
		)
		return
	}

	slog.Info("Submitted notification job",
		"alert_id", alert.AlertID,
		"notification_type", notificationType,
	)
}

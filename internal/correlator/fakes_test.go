package correlator

import (
	"context"
	"strconv"
	"time"

	"github.com/jean1042/monitoring/internal/escalation"
	"github.com/jean1042/monitoring/internal/events"
)

// FakeStore is an in-memory test fake implementing EventStore and AlertStore.
type FakeStore struct {
	Events []*events.Event
	Alerts map[string]*events.Alert

	nextID int

	FindErr         error
	CreateEventErr  error
	CreateAlertErr  error
	UpdateStateErr  error
	FindCalled      int
	CreateAlertSeen []*events.Alert
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Alerts: make(map[string]*events.Alert)}
}

func (f *FakeStore) FindEventByKey(ctx context.Context, eventKey, domainID string) (*events.Event, error) {
	f.FindCalled++
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	for i := len(f.Events) - 1; i >= 0; i-- {
		if f.Events[i].EventKey == eventKey && f.Events[i].DomainID == domainID {
			return f.Events[i], nil
		}
	}
	return nil, nil
}

func (f *FakeStore) CreateEvent(ctx context.Context, event *events.Event) error {
	if f.CreateEventErr != nil {
		return f.CreateEventErr
	}
	f.nextID++
	event.EventID = "event-" + strconv.Itoa(f.nextID)
	stored := *event
	f.Events = append(f.Events, &stored)
	return nil
}

func (f *FakeStore) GetAlert(ctx context.Context, alertID string) (*events.Alert, error) {
	alert, ok := f.Alerts[alertID]
	if !ok {
		return nil, nil
	}
	copied := *alert
	return &copied, nil
}

func (f *FakeStore) CreateAlert(ctx context.Context, alert *events.Alert) error {
	if f.CreateAlertErr != nil {
		return f.CreateAlertErr
	}
	f.nextID++
	alert.AlertID = "alert-" + strconv.Itoa(f.nextID)
	stored := *alert
	f.Alerts[alert.AlertID] = &stored
	f.CreateAlertSeen = append(f.CreateAlertSeen, &stored)
	return nil
}

func (f *FakeStore) UpdateAlertState(ctx context.Context, alertID string, newState events.AlertState) (bool, error) {
	if f.UpdateStateErr != nil {
		return false, f.UpdateStateErr
	}
	alert, ok := f.Alerts[alertID]
	if !ok || alert.State == events.AlertStateResolved {
		return false, nil
	}
	alert.State = newState
	return true, nil
}

// FakeResolver is a test fake for PolicyResolver with call counters.
type FakeResolver struct {
	Policy        *escalation.PolicyInfo
	ResolveErr    error
	ResolveCalled int
	AutoCalled    int
}

func (f *FakeResolver) Resolve(ctx context.Context, projectID, domainID string) (*escalation.PolicyInfo, error) {
	f.ResolveCalled++
	if f.ResolveErr != nil {
		return nil, f.ResolveErr
	}
	return f.Policy, nil
}

func (f *FakeResolver) IsAutoRecovery(ctx context.Context, projectID, domainID string) (bool, error) {
	f.AutoCalled++
	if f.ResolveErr != nil {
		return false, f.ResolveErr
	}
	return f.Policy.AutoRecovery, nil
}

// NotifyCall records one Notify invocation.
type NotifyCall struct {
	AlertID          string
	State            events.AlertState
	NotificationType string
}

// FakeMetrics is a test fake for MetricsRecorder that tracks calls.
type FakeMetrics struct {
	ReceivedCount    int
	ProcessedCount   int
	PublishedCount   int
	ErrorCount       int
	CustomIncrements map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{CustomIncrements: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived()                       { f.ReceivedCount++ }
func (f *FakeMetrics) RecordProcessed(_ time.Duration)       { f.ProcessedCount++ }
func (f *FakeMetrics) RecordPublished()                      { f.PublishedCount++ }
func (f *FakeMetrics) RecordError()                          { f.ErrorCount++ }
func (f *FakeMetrics) IncrementCustom(name string)           { f.CustomIncrements[name]++ }

// FakeNotifier is a test fake for Notifier.
type FakeNotifier struct {
	Calls []NotifyCall
}

func (f *FakeNotifier) Notify(ctx context.Context, alert *events.Alert, notificationType string) {
	// The real dispatcher suppresses error-state alerts; mirror that here so
	// tests observe what would actually be submitted.
	if alert.State == events.AlertStateError {
		return
	}
	f.Calls = append(f.Calls, NotifyCall{
		AlertID:          alert.AlertID,
		State:            alert.State,
		NotificationType: notificationType,
	})
}

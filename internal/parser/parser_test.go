package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jean1042/monitoring/internal/events"
	"github.com/jean1042/monitoring/internal/webhook"
)

// fakeRuntime is a test fake for PluginRuntime.
type fakeRuntime struct {
	results     []RawResult
	initErr     error
	parseErr    error
	parseCalled int
	slow        time.Duration
}

func (f *fakeRuntime) Initialize(ctx context.Context, pluginID, pluginVersion, domainID string) error {
	return f.initErr
}

func (f *fakeRuntime) ParseEvent(ctx context.Context, options map[string]string, rawData string) ([]RawResult, error) {
	f.parseCalled++
	if f.slow > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.slow):
		}
	}
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.results, nil
}

func testDescriptor() *webhook.Descriptor {
	return &webhook.Descriptor{
		WebhookID:     "webhook-aaaa",
		Name:          "Pager-X",
		ProjectID:     "project-1111",
		DomainID:      "domain-2222",
		State:         webhook.StateEnabled,
		AccessKey:     "k1",
		PluginID:      "plugin-grafana",
		PluginVersion: "1.0",
	}
}

func TestParseNormalizesResults(t *testing.T) {
	runtime := &fakeRuntime{
		results: []RawResult{
			{
				EventKey:   "host1-cpu",
				EventType:  "CREATE",
				Title:      "CPU usage high",
				Severity:   "CRITICAL",
				ResourceID: "host1",
				OccurredAt: "2024-05-01T12:00:00Z",
			},
			{
				EventKey:  "host1-cpu",
				EventType: "RECOVERY",
				Title:     "CPU usage normal",
				Severity:  "INFO",
			},
		},
	}
	adapter := NewAdapter(runtime)

	parsed := adapter.Parse(context.Background(), testDescriptor(), `{"alerts":[]}`)

	if len(parsed) != 2 {
		t.Fatalf("Parse() returned %d events, want 2", len(parsed))
	}
	if parsed[0].EventType != events.EventTypeCreate {
		t.Errorf("first event type = %q, want CREATE", parsed[0].EventType)
	}
	if parsed[1].EventType != events.EventTypeRecovery {
		t.Errorf("second event type = %q, want RECOVERY", parsed[1].EventType)
	}

	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !parsed[0].OccurredAt.Equal(want) {
		t.Errorf("occurred_at = %v, want %v", parsed[0].OccurredAt, want)
	}
	// Absent occurred_at defaults to ingestion time.
	if parsed[1].OccurredAt.IsZero() {
		t.Error("absent occurred_at was not defaulted")
	}
}

func TestParsePluginErrorFallsBackToSyntheticEvent(t *testing.T) {
	runtime := &fakeRuntime{parseErr: errors.New("unexpected token at line 3")}
	adapter := NewAdapter(runtime)

	parsed := adapter.Parse(context.Background(), testDescriptor(), "not json")

	if len(parsed) != 1 {
		t.Fatalf("Parse() returned %d events, want exactly 1 synthetic event", len(parsed))
	}

	event := parsed[0]
	if event.EventType != events.EventTypeError {
		t.Errorf("event type = %q, want ERROR", event.EventType)
	}
	if event.Severity != events.SeverityCritical {
		t.Errorf("severity = %q, want CRITICAL", event.Severity)
	}
	if event.Title != "Webhook Event Parsing Error - Pager-X" {
		t.Errorf("title = %q", event.Title)
	}
	if event.Description != "unexpected token at line 3" {
		t.Errorf("description = %q", event.Description)
	}
	if !strings.HasPrefix(event.EventKey, "error-") {
		t.Errorf("event key = %q, want generated error- prefix", event.EventKey)
	}
}

func TestParseInitErrorFallsBackToSyntheticEvent(t *testing.T) {
	runtime := &fakeRuntime{initErr: errors.New("plugin not installed")}
	adapter := NewAdapter(runtime)

	parsed := adapter.Parse(context.Background(), testDescriptor(), "{}")

	if len(parsed) != 1 || parsed[0].EventType != events.EventTypeError {
		t.Fatalf("Parse() = %+v, want single synthetic error event", parsed)
	}
	if runtime.parseCalled != 0 {
		t.Error("ParseEvent was called after Initialize failed")
	}
}

func TestParseSyntheticKeysAreUnique(t *testing.T) {
	runtime := &fakeRuntime{parseErr: errors.New("boom")}
	adapter := NewAdapter(runtime)
	desc := testDescriptor()

	first := adapter.Parse(context.Background(), desc, "x")
	second := adapter.Parse(context.Background(), desc, "x")

	if first[0].EventKey == second[0].EventKey {
		t.Error("synthetic error events share an event key; each must be unique")
	}
}

func TestParseTimeoutFallsBackToSyntheticEvent(t *testing.T) {
	runtime := &fakeRuntime{slow: time.Second}
	adapter := NewAdapter(runtime)
	adapter.SetTimeout(5 * time.Millisecond)

	parsed := adapter.Parse(context.Background(), testDescriptor(), "{}")

	if len(parsed) != 1 || parsed[0].EventType != events.EventTypeError {
		t.Fatalf("Parse() after timeout = %+v, want single synthetic error event", parsed)
	}
}

func TestParseDefaultsMissingFields(t *testing.T) {
	runtime := &fakeRuntime{
		results: []RawResult{{Title: "mystery record"}},
	}
	adapter := NewAdapter(runtime)

	parsed := adapter.Parse(context.Background(), testDescriptor(), "{}")

	if len(parsed) != 1 {
		t.Fatalf("Parse() returned %d events, want 1", len(parsed))
	}
	if parsed[0].EventKey == "" {
		t.Error("missing event key was not generated")
	}
	if parsed[0].EventType != events.EventTypeError {
		t.Errorf("missing event type defaulted to %q, want ERROR", parsed[0].EventType)
	}
}

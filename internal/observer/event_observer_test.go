package observer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestEventPublisher_DeliversInOrder(t *testing.T) {
	var got []EventType
	p := NewEventPublisher()
	p.Subscribe(ObserverFunc{Name: "recorder", Fn: func(ctx context.Context, e Event) {
		got = append(got, e.EventType)
	}})

	ctx := context.Background()
	p.NotifyObservers(ctx, Event{EventType: CritiqueStarted})
	p.NotifyObservers(ctx, Event{EventType: StateChanged})
	p.NotifyObservers(ctx, Event{EventType: CritiqueCompleted})

	want := []EventType{CritiqueStarted, StateChanged, CritiqueCompleted}
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestEventPublisher_PanickingObserverIsContained(t *testing.T) {
	delivered := false
	p := NewEventPublisher(
		ObserverFunc{Name: "panics", Fn: func(context.Context, Event) { panic("boom") }},
		ObserverFunc{Name: "after", Fn: func(context.Context, Event) { delivered = true }},
	)

	p.NotifyObservers(context.Background(), Event{EventType: StateChanged})

	if !delivered {
		t.Error("Expected observers after a panicking one to still be notified")
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	calls := 0
	obs := ObserverFunc{Name: "counter", Fn: func(context.Context, Event) { calls++ }}
	p := NewEventPublisher(obs)

	p.NotifyObservers(context.Background(), Event{EventType: StateChanged})
	p.Unsubscribe(obs)
	p.NotifyObservers(context.Background(), Event{EventType: StateChanged})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	m.OnEvent(ctx, Event{EventType: CritiqueStarted})
	m.OnEvent(ctx, Event{EventType: CritiqueCompleted, ProcessingTime: 2 * time.Second})
	m.OnEvent(ctx, Event{EventType: CritiqueStarted})
	m.OnEvent(ctx, Event{EventType: CritiqueCompleted, ProcessingTime: 4 * time.Second})
	m.OnEvent(ctx, Event{EventType: CritiqueStarted})
	m.OnEvent(ctx, Event{EventType: CritiqueFailed, ErrorType: "parse"})
	m.OnEvent(ctx, Event{EventType: UploadRejected})
	m.OnEvent(ctx, Event{EventType: UploadFailed, ErrorType: "encoding"})

	metrics := m.GetMetrics()
	if metrics["total_critiques"].(int64) != 3 {
		t.Errorf("Expected 3 critiques, got %v", metrics["total_critiques"])
	}
	if metrics["successful_critiques"].(int64) != 2 {
		t.Errorf("Expected 2 successes, got %v", metrics["successful_critiques"])
	}
	if metrics["failed_critiques"].(int64) != 1 {
		t.Errorf("Expected 1 failure, got %v", metrics["failed_critiques"])
	}
	if metrics["failed_uploads"].(int64) != 1 {
		t.Errorf("Expected 1 failed upload, got %v", metrics["failed_uploads"])
	}
	if metrics["failed_critiques"].(int64) > metrics["total_critiques"].(int64) {
		t.Error("Expected upload failures not to count as failed critiques")
	}
	if metrics["rejected_uploads"].(int64) != 1 {
		t.Errorf("Expected 1 rejection, got %v", metrics["rejected_uploads"])
	}
	if metrics["avg_processing_time_s"].(float64) != 3 {
		t.Errorf("Expected 3s average, got %v", metrics["avg_processing_time_s"])
	}
	if metrics["failures_by_type"].(map[string]int64)["parse"] != 1 {
		t.Errorf("Expected one parse failure, got %v", metrics["failures_by_type"])
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	obs := NewLoggingObserver(l)
	obs.OnEvent(context.Background(), Event{
		EventType:    CritiqueFailed,
		SessionID:    "abc",
		ErrorType:    "model_request",
		ErrorMessage: "upstream exploded",
	})

	out := buf.String()
	for _, want := range []string{"Critique failed", `"session_id":"abc"`, "upstream exploded", `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %q, got %s", want, out)
		}
	}
}

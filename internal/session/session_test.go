package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/pkg/models"
)

type recorder struct {
	mu     sync.Mutex
	events []observer.Event
}

func (r *recorder) OnEvent(_ context.Context, e observer.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) GetObserverName() string { return "recorder" }

func TestNewState_Initial(t *testing.T) {
	s := NewState("s1", nil)

	if s.Processing() {
		t.Error("Expected processing to be false initially")
	}
	if _, ok := s.Critique(); ok {
		t.Error("Expected no critique initially")
	}
	b := s.Image().Bounds()
	if b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("Expected 10x10 placeholder, got %dx%d", b.Dx(), b.Dy())
	}
	snap := s.Snapshot()
	if snap.Critique != nil || snap.LastError != nil || snap.SessionID != "s1" {
		t.Errorf("Unexpected initial snapshot %+v", snap)
	}
}

func TestState_MutationsPublishSnapshots(t *testing.T) {
	rec := &recorder{}
	s := NewState("s1", observer.NewEventPublisher(rec))

	s.SetImage(image.NewRGBA(image.Rect(0, 0, 40, 30)))
	s.SetProcessing(true)
	s.ApplyCritique(models.CritiqueResult{Design: 4, Usability: 3, Originality: 5, Overall: 2, Feedback: "Not bad."})
	s.SetProcessing(false)

	if len(rec.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(rec.events))
	}
	for _, e := range rec.events {
		if e.EventType != observer.StateChanged || e.Snapshot == nil {
			t.Fatalf("Expected state changed events with snapshots, got %+v", e)
		}
	}
	if !rec.events[1].Snapshot.Processing || rec.events[3].Snapshot.Processing {
		t.Error("Expected processing true then false in event order")
	}
	if rec.events[0].Snapshot.ImageWidth != 40 {
		t.Errorf("Expected image width 40, got %d", rec.events[0].Snapshot.ImageWidth)
	}
	last := rec.events[3].Snapshot
	if last.Critique == nil || last.Critique.Overall != 2 || last.CritiqueCount != 1 {
		t.Errorf("Unexpected final snapshot %+v", last)
	}
}

func TestState_ErrorKeepsPreviousCritique(t *testing.T) {
	s := NewState("s1", nil)
	first := models.CritiqueResult{Design: 1, Usability: 2, Originality: 3, Overall: 4, Feedback: "first"}
	s.ApplyCritique(first)

	s.SetError(apperrors.NewModelRequestError("model request failed", errors.New("503")))

	got, ok := s.Critique()
	if !ok || got != first {
		t.Errorf("Expected previous critique to be kept, got %+v", got)
	}
	le := s.LastError()
	if le == nil || le.Type != "model_request" || le.Message != "model request failed" {
		t.Errorf("Unexpected last error %+v", le)
	}

	s.ClearError()
	if s.LastError() != nil {
		t.Error("Expected error to be cleared")
	}

	s.SetError(errors.New("plain failure"))
	if le := s.LastError(); le == nil || le.Type != "internal" || le.Message != "plain failure" {
		t.Errorf("Unexpected last error for foreign error %+v", le)
	}
}

func TestState_SnapshotIsACopy(t *testing.T) {
	s := NewState("s1", nil)
	s.SetInspection(models.Inspection{Warnings: []string{"a"}})

	snap := s.Snapshot()
	snap.Inspection.Warnings[0] = "mutated"

	if s.Snapshot().Inspection.Warnings[0] != "a" {
		t.Error("Expected snapshot to be independent of state")
	}
}

func TestFlowMachine(t *testing.T) {
	m, err := NewFlowMachine("s1")
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if m.Current() != FlowIdle {
		t.Fatalf("Expected idle, got %s", m.Current())
	}

	if err := m.TryBegin(); err != nil {
		t.Fatalf("Expected first upload to begin, got %v", err)
	}
	if m.Current() != FlowProcessing {
		t.Errorf("Expected processing, got %s", m.Current())
	}

	err = m.TryBegin()
	if !apperrors.IsType(err, apperrors.ErrorTypeBusy) {
		t.Errorf("Expected busy error, got %v", err)
	}

	m.Finish()
	if m.Current() != FlowIdle {
		t.Errorf("Expected idle after finish, got %s", m.Current())
	}
	m.Finish()
	if m.Current() != FlowIdle {
		t.Errorf("Expected finish on idle to be a no-op, got %s", m.Current())
	}
	if err := m.TryBegin(); err != nil {
		t.Errorf("Expected upload after finish to begin, got %v", err)
	}
}

func TestFlowMachine_ConcurrentBeginsAdmitOne(t *testing.T) {
	m, err := NewFlowMachine("s1")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.TryBegin() == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("Expected exactly one admitted upload, got %d", admitted)
	}
}

func TestSession_Feedback(t *testing.T) {
	s, err := New("s1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.PreviousFeedback() != "" {
		t.Error("Expected no previous feedback")
	}
	s.RememberFeedback("ugly")
	if s.PreviousFeedback() != "ugly" {
		t.Errorf("Expected remembered feedback, got %q", s.PreviousFeedback())
	}
	before := s.LastActivity()
	s.Touch()
	if s.LastActivity().Before(before) {
		t.Error("Expected touch to move last activity forward")
	}
}

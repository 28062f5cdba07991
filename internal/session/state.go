// Package session holds the per-user application state and its upload flow machine.
package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/storage"
	"github.com/anime-shed/webcritic-go/pkg/models"
)

// State is the observable state of one session. Reads are safe from any
// goroutine; writes are expected to come from the upload flow.
type State struct {
	mu            sync.RWMutex
	sessionID     string
	img           image.Image
	processing    bool
	critique      models.CritiqueResult
	hasCritique   bool
	inspection    *models.Inspection
	lastErr       *models.ErrorInfo
	critiqueCount int
	updatedAt     time.Time

	events observer.Subject
}

// NewState returns a state holding the blank placeholder image
func NewState(sessionID string, events observer.Subject) *State {
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &State{
		sessionID: sessionID,
		img:       storage.Placeholder(),
		updatedAt: time.Now(),
		events:    events,
	}
}

// Events exposes the subject state changes are published on
func (s *State) Events() observer.Subject {
	return s.events
}

func (s *State) SetImage(img image.Image) {
	s.mutate(func() { s.img = img })
}

func (s *State) SetProcessing(processing bool) {
	s.mutate(func() { s.processing = processing })
}

// ApplyCritique replaces the previous critique wholesale
func (s *State) ApplyCritique(result models.CritiqueResult) {
	s.mutate(func() {
		s.critique = result
		s.hasCritique = true
		s.critiqueCount++
	})
}

func (s *State) SetInspection(inspection models.Inspection) {
	s.mutate(func() { s.inspection = &inspection })
}

// SetError records the user visible form of err. The previous critique is kept.
func (s *State) SetError(err error) {
	if err == nil {
		s.ClearError()
		return
	}
	info := &models.ErrorInfo{
		Type:    string(apperrors.TypeOf(err)),
		Message: userMessage(err),
	}
	s.mutate(func() { s.lastErr = info })
}

func (s *State) ClearError() {
	s.mutate(func() { s.lastErr = nil })
}

func (s *State) Image() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img
}

func (s *State) Processing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing
}

// Critique returns the last applied critique and whether one exists
func (s *State) Critique() (models.CritiqueResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.critique, s.hasCritique
}

func (s *State) LastError() *models.ErrorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr == nil {
		return nil
	}
	cp := *s.lastErr
	return &cp
}

// Snapshot returns a consistent copy of every field
func (s *State) Snapshot() models.StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() models.StateSnapshot {
	snap := models.StateSnapshot{
		SessionID:     s.sessionID,
		Processing:    s.processing,
		CritiqueCount: s.critiqueCount,
		UpdatedAt:     s.updatedAt,
	}
	if s.img != nil {
		b := s.img.Bounds()
		snap.ImageWidth, snap.ImageHeight = b.Dx(), b.Dy()
	}
	if s.hasCritique {
		c := s.critique
		snap.Critique = &c
	}
	if s.inspection != nil {
		in := *s.inspection
		in.ClicheHits = append([]string(nil), s.inspection.ClicheHits...)
		in.Warnings = append([]string(nil), s.inspection.Warnings...)
		snap.Inspection = &in
	}
	if s.lastErr != nil {
		e := *s.lastErr
		snap.LastError = &e
	}
	return snap
}

// mutate applies fn under the write lock, then publishes the resulting
// snapshot after the lock is released.
func (s *State) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.events.NotifyObservers(context.Background(), observer.Event{
		EventType: observer.StateChanged,
		Timestamp: snap.UpdatedAt,
		SessionID: s.sessionID,
		Snapshot:  &snap,
	})
}

func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	return err.Error()
}

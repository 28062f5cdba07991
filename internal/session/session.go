package session

import (
	"sync"
	"time"

	"github.com/anime-shed/webcritic-go/internal/observer"
)

// Session ties a user's state to its flow machine
type Session struct {
	ID        string
	CreatedAt time.Time
	State     *State
	Flow      *FlowMachine

	mu           sync.Mutex
	lastActivity time.Time
	lastFeedback string
}

// New creates a session whose state publishes on events
func New(id string, events observer.Subject) (*Session, error) {
	flow, err := NewFlowMachine(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		State:        NewState(id, events),
		Flow:         flow,
		lastActivity: now,
	}, nil
}

// Touch marks the session as used
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// PreviousFeedback returns the feedback of the critique before the current one
func (s *Session) PreviousFeedback() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFeedback
}

// RememberFeedback stores feedback for repeat detection on the next critique
func (s *Session) RememberFeedback(feedback string) {
	s.mu.Lock()
	s.lastFeedback = feedback
	s.mu.Unlock()
}

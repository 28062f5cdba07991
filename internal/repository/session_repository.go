package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/session"
)

// SessionRepository owns the in-memory sessions of the process
type SessionRepository interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
	Count() int
}

// MemorySessionRepository keeps sessions in a map behind a RWMutex.
// Nothing is persisted.
type MemorySessionRepository struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	observers []observer.Observer
	closed    bool
}

// NewMemorySessionRepository creates a repository whose sessions publish to observers
func NewMemorySessionRepository(observers ...observer.Observer) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:  make(map[string]*session.Session),
		observers: observers,
	}
}

// Create makes a session with a fresh state and an idle flow
func (r *MemorySessionRepository) Create(ctx context.Context) (*session.Session, error) {
	sess, err := session.New(uuid.NewString(), observer.NewEventPublisher(r.observers...))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRepositoryUnavailable
	}
	r.sessions[sess.ID] = sess

	logger.WithField("session_id", sess.ID).Debug("Session created")
	return sess, nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.Touch()
	return sess, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)

	logger.WithField("session_id", id).Debug("Session deleted")
	return nil
}

func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than ttl. Sessions with an upload
// or critique in flight are kept.
func (r *MemorySessionRepository) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if sess.State.Processing() || sess.Flow.Current() != session.FlowIdle || sess.LastActivity().After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		logger.WithField("removed", removed).Info("Swept idle sessions")
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done
func (r *MemorySessionRepository) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ttl)
		}
	}
}

// Close drops every session and refuses new ones
func (r *MemorySessionRepository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.sessions = make(map[string]*session.Session)
}

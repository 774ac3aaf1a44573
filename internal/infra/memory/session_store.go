package memory

import (
	"context"
	"sync"

	"livequiz-service/internal/domain"
)

// SessionStore is an in-process implementation of app.SessionStore.
// Updates are serialized per session id, so concurrent submissions to
// different sessions never wait on each other.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.GameSession
	codes    map[string]string // active join code -> session id
	locks    map[string]*sync.Mutex
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.GameSession),
		codes:    make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *SessionStore) Create(_ context.Context, session *domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[session.Code]; taken {
		return domain.ErrCodeTaken
	}
	s.sessions[session.ID] = session.Clone()
	s.codes[session.Code] = session.ID
	s.locks[session.ID] = &sync.Mutex{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) FindByCode(_ context.Context, code string) (*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session := s.sessions[id]
	if session == nil || session.Status == domain.StatusCompleted {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) AtomicUpdate(_ context.Context, id string, fn func(*domain.GameSession) error) (*domain.GameSession, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// fn mutates a private copy; nothing is visible until the commit below.
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1

	s.mu.Lock()
	s.sessions[id] = next
	if next.Status == domain.StatusCompleted {
		// Completed sessions release their join code for reuse.
		if s.codes[next.Code] == id {
			delete(s.codes, next.Code)
		}
	}
	s.mu.Unlock()
	return next.Clone(), nil
}

func (s *SessionStore) ListByHost(_ context.Context, hostID string, activeOnly bool) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := []domain.SessionSummary{}
	for _, session := range s.sessions {
		if session.HostID != hostID {
			continue
		}
		if activeOnly && session.Status == domain.StatusCompleted {
			continue
		}
		summaries = append(summaries, session.Summary())
	}
	return summaries, nil
}

package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/farmandfork/evelyn/companion"
)

// SessionList tracks live companion sessions by ID.
type SessionList struct {
	sessions map[uuid.UUID]*companion.Session
	mu       sync.RWMutex
}

func NewSessionList() *SessionList {
	return &SessionList{
		sessions: make(map[uuid.UUID]*companion.Session),
	}
}

func (sl *SessionList) Add(s *companion.Session) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.sessions[s.ID()] = s
}

// Remove drops and returns the session so the caller can close it.
func (sl *SessionList) Remove(id uuid.UUID) (*companion.Session, bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	s, ok := sl.sessions[id]
	if ok {
		delete(sl.sessions, id)
	}
	return s, ok
}

func (sl *SessionList) Get(id uuid.UUID) (*companion.Session, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	s, ok := sl.sessions[id]
	return s, ok
}

func (sl *SessionList) All() []*companion.Session {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	out := make([]*companion.Session, 0, len(sl.sessions))
	for _, s := range sl.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAll closes every session, typically at shutdown.
func (sl *SessionList) CloseAll() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for id, s := range sl.sessions {
		s.Close()
		delete(sl.sessions, id)
	}
}

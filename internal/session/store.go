package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// DefaultMaxSessions caps how many sessions a Store holds at once.
const DefaultMaxSessions = 10_000

type entry struct {
	state    *State
	lastSeen time.Time
}

// Store keeps one State per browser session in memory. Nothing outlives
// the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	max      int
	opts     Options
	now      func() time.Time
}

// NewStore returns a Store whose sessions are created with opts and expire
// after ttl of inactivity. ttl <= 0 uses DefaultTTL.
func NewStore(opts Options, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		max:      DefaultMaxSessions,
		opts:     opts,
		now:      time.Now,
	}
}

// Get returns the live session for id and marks it as used.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e.state, true
}

// SetMaxSessions changes the session cap. n <= 0 restores
// DefaultMaxSessions.
func (s *Store) SetMaxSessions(n int) {
	if n <= 0 {
		n = DefaultMaxSessions
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.max = n
}

// Create starts a new, empty session. When the store is full the least
// recently used session is dropped to make room.
func (s *Store) Create() (string, *State) {
	id := uuid.NewString()
	st := New(s.opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[id] = &entry{state: st, lastSeen: s.now()}
	return id, st
}

// Blank returns an empty session that is not stored, for read-only
// requests that arrive without a known session.
func (s *Store) Blank() *State {
	return New(s.opts)
}

// evictOldest must be called with mu held.
func (s *Store) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range s.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(s.sessions, oldestID)
}

// GetOrCreate returns the session for id, or a new one (with a new id) if
// id is unknown or expired.
func (s *Store) GetOrCreate(id string) (string, *State) {
	if id != "" {
		if st, ok := s.Get(id); ok {
			return id, st
		}
	}
	return s.Create()
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of sessions held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

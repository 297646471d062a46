// Package sessions holds the in-memory session store backing the dashboard
// API. Sessions are identified by opaque UUIDs and expire after a fixed TTL;
// they intentionally do not survive process restarts, forcing a fresh login.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a session stays valid after login.
const DefaultTTL = 7 * 24 * time.Hour

// Session is one authenticated dashboard login.
type Session struct {
	// ID is the opaque session identifier handed to the client.
	ID string

	// UserID is the authenticated user.
	UserID string

	// GuildID is the guild the session was established for.
	GuildID string

	// IsAdmin records the admin decision made at login time.
	IsAdmin bool

	// ExpiresAt is when the session stops being honoured.
	ExpiresAt time.Time
}

// Store is a concurrency-safe session store.
type Store struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*Session

	// now returns the current time.
	now func() time.Time
}

// NewStore creates a session store with the given TTL. A non-positive TTL
// falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create mints a new session for the given user.
func (s *Store) Create(userID, guildID string, isAdmin bool) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		GuildID:   guildID,
		IsAdmin:   isAdmin,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get returns the session for the given id. Expired sessions are removed on
// lookup and reported as absent.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, false
	}
	return session, true
}

// Delete removes the session for the given id. Deleting an unknown id is a
// no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

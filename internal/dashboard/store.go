package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurin/impact-dashboard/internal/domain"
)

// Store holds active sessions keyed by ID.
// All methods are thread-safe.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session in the awaiting-credential state and
// returns its ID.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sessions[id] = &Session{
		ID:        id,
		State:     StateAwaitingCredential,
		CreatedAt: s.now().UTC(),
	}
	return id
}

// Get returns a snapshot of the session, or ErrSessionNotFound.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Delete removes the session. Deleting an unknown ID returns
// ErrSessionNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// update applies fn to the session under the write lock and returns the
// resulting snapshot.
func (s *Store) update(id string, fn func(*Session) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if err := fn(session); err != nil {
		return Snapshot{}, err
	}
	return session.snapshot(), nil
}

// withRows reads the session's rows under the read lock and passes them to
// fn. The rows slice must not be retained beyond the call.
func (s *Store) withRows(id string, fn func(*Session)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	fn(session)
	return nil
}

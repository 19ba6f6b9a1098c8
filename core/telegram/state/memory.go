package state

import "sync"

// Memory keeps one session value of type S per user for the lifetime of the process.
// Sessions are created lazily and never expire.
type Memory[S any] struct {
	mu       sync.RWMutex
	sessions map[int64]S
	initial  func() S

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewMemory constructs a store; initial builds the session of a user seen for the first time.
// A nil initial yields the zero value of S.
func NewMemory[S any](initial func() S) *Memory[S] {
	if initial == nil {
		initial = func() S {
			var zero S
			return zero
		}
	}
	return &Memory[S]{
		sessions: make(map[int64]S),
		initial:  initial,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the session for a user, creating it on first access.
func (m *Memory[S]) Get(userID int64) S {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s = m.initial()
	m.sessions[userID] = s
	return s
}

// Peek returns the session without creating one.
func (m *Memory[S]) Peek(userID int64) (S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Set replaces the session of a user.
func (m *Memory[S]) Set(userID int64, s S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

// Update applies fn to the user's session and stores the result.
func (m *Memory[S]) Update(userID int64, fn func(*S)) S {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = m.initial()
	}
	fn(&s)
	m.sessions[userID] = s
	return s
}

// Clear removes the entire session for a user.
func (m *Memory[S]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len reports how many users currently hold a session.
func (m *Memory[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock serialises work for one user and returns the matching unlock.
// Different users never block each other.
func (m *Memory[S]) Lock(userID int64) (unlock func()) {
	m.locksMu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

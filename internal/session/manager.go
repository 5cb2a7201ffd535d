package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"chartdash/internal/logger"
)

// SeedFunc prepares the state of a freshly created session, e.g. to load a
// sample dataset in mockup mode
type SeedFunc func(st *State) error

// Manager owns the live sessions
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	seed     SeedFunc
	now      func() time.Time
	log      *logger.Logger
}

// NewManager creates a manager that expires sessions idle for longer than
// ttl. A zero ttl disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		log:      logger.Component("sessions"),
	}
}

// SetSeed installs fn to run on every new session
func (m *Manager) SetSeed(fn SeedFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed = fn
}

// Create starts a new session
func (m *Manager) Create() (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	m.mu.Lock()
	seed := m.seed
	s := newSession(id, m.now())
	m.sessions[id] = s
	total := len(m.sessions)
	m.mu.Unlock()

	if seed != nil {
		if err := s.Do(seed); err != nil {
			s.log.Warn("Failed to seed session", logger.Fields{"error": err.Error()})
		}
	}

	m.log.Info("Session created", logger.Fields{"session": shortID(id), "active": total})
	return s, nil
}

// Get returns the live session with id and marks it as used
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	now := m.now()
	if m.expired(s, now) {
		m.End(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session with id, or a new one when id is unknown
// or expired. created reports which happened.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false, nil
		}
	}
	s, err = m.Create()
	return s, err == nil, err
}

// End discards the session with id and reports whether it existed
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.log.Info("Session ended", logger.Fields{"session": shortID(id)})
	}
	return ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if m.expired(s, now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		m.log.Info("Expired sessions removed", logger.Fields{"count": len(expired)})
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.idleSince()) > m.ttl
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

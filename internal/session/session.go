package session

import (
	"sync"
	"sync/atomic"
	"time"

	"chartdash/internal/charts"
	"chartdash/internal/fetchers"
	"chartdash/internal/logger"
	"chartdash/internal/models"
)

// SourceInfo describes where the current dataset came from
type SourceInfo struct {
	Name        string          `json:"name"`
	Format      fetchers.Format `json:"format"`
	Fingerprint string          `json:"fingerprint"`
	LoadedAt    time.Time       `json:"loaded_at"`
}

// State is the per-session data a request works on: the loaded dataset (nil
// until the first successful load) and the chart store
type State struct {
	Data   *models.Dataset
	Source *SourceInfo
	Charts *charts.Store
}

// HasSource reports whether the dataset currently held was loaded from the
// source with this fingerprint
func (st *State) HasSource(fingerprint string) bool {
	return st.Source != nil && st.Source.Fingerprint == fingerprint
}

// Load replaces the dataset with src. A source whose fingerprint matches
// the current one is not applied again unless refresh is set; Load reports
// whether the dataset changed. Chart entries are kept: stale column
// references heal on the next evaluation.
func (st *State) Load(src *fetchers.Source, refresh bool) bool {
	if src == nil || src.Dataset == nil {
		return false
	}
	if !refresh && st.HasSource(src.Fingerprint) {
		return false
	}
	st.Data = src.Dataset
	st.Source = &SourceInfo{
		Name:        src.Name,
		Format:      src.Format,
		Fingerprint: src.Fingerprint,
		LoadedAt:    time.Now().UTC(),
	}
	return true
}

// Session is one user's dashboard. Interactions on a session are serialized.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	state    State
	lastSeen atomic.Int64
	log      *logger.Logger
}

func newSession(id string, now time.Time) *Session {
	s := &Session{
		ID:      id,
		Created: now,
		state:   State{Charts: charts.NewStore()},
		log:     logger.Component("session").With(logger.Fields{"session": shortID(id)}),
	}
	s.touch(now)
	return s
}

// Do runs fn with exclusive access to the session state. The state must not
// be retained after fn returns.
func (s *Session) Do(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// Logger returns the session's logger
func (s *Session) Logger() *logger.Logger {
	return s.log
}

// touch and idleSince do not take mu so sweeping never waits on a busy
// session
func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

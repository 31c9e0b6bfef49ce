package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// Key identifies a session slot: one active session per user and browser tab.
type Key struct {
	UserID string
	TabID  string
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Config    Config
	Provider  ResponseProvider
	Logger    *slog.Logger
	Retention time.Duration // How long an ended session stays queryable.
	OnEnd     func(Result)
	OnEvent   func(Event)
}

// Manager tracks active sessions per user and tab.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Session
	opts   ManagerOptions
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a new session manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	return &Manager{
		active: make(map[string]map[string]*Session),
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Start creates a session for key, closing any session already in that slot.
// provider overrides the manager's default provider when non-nil.
func (m *Manager) Start(key Key, profile domain.Profile, provider ResponseProvider) (*Session, error) {
	if provider == nil {
		provider = m.opts.Provider
	}
	s, err := Start(profile, Options{
		UserID:   key.UserID,
		Config:   m.opts.Config,
		Provider: provider,
		Logger:   m.logger,
		OnEnd:    m.opts.OnEnd,
		OnEvent:  m.opts.OnEvent,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.active[key.UserID]; !exists {
		m.active[key.UserID] = make(map[string]*Session)
	}
	existing := m.active[key.UserID][key.TabID]
	m.active[key.UserID][key.TabID] = s
	m.mu.Unlock()

	if existing != nil {
		existing.Close()
		m.logger.Info("Counseling session replaced", "user_id", key.UserID, "tab_id", key.TabID, "old_session_id", existing.ID())
	}
	m.logger.Info("Counseling session registered", "user_id", key.UserID, "tab_id", key.TabID, "session_id", s.ID())
	return s, nil
}

// Get returns the session in a slot.
func (m *Manager) Get(key Key) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[key.UserID]; ok {
		s, ok := sessions[key.TabID]
		return s, ok
	}
	return nil, false
}

// Close stops and removes the session in a slot.
func (m *Manager) Close(key Key) bool {
	m.mu.Lock()
	sessions, ok := m.active[key.UserID]
	var s *Session
	if ok {
		s = sessions[key.TabID]
		delete(sessions, key.TabID)
		if len(sessions) == 0 {
			delete(m.active, key.UserID)
		}
	}
	m.mu.Unlock()

	if s == nil {
		return false
	}
	s.Close()
	m.logger.Info("Counseling session closed", "user_id", key.UserID, "tab_id", key.TabID, "session_id", s.ID())
	return true
}

// CloseUser stops every session owned by a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	sessions := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for tab, s := range sessions {
		s.Close()
		m.logger.Info("Counseling session closed", "user_id", userID, "tab_id", tab, "session_id", s.ID())
	}
}

// CloseAll stops every session. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.active
	m.active = make(map[string]map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, sessions := range all {
		for _, s := range sessions {
			wg.Add(1)
			go func(s *Session) {
				defer wg.Done()
				s.Close()
			}(s)
		}
	}
	wg.Wait()
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// Reap closes and removes sessions that ended more than Retention ago.
func (m *Manager) Reap(ctx context.Context) int {
	cutoff := m.now().Add(-m.opts.Retention)

	type victim struct {
		key Key
		s   *Session
	}
	var victims []victim

	m.mu.RLock()
	for userID, sessions := range m.active {
		for tab, s := range sessions {
			victims = append(victims, victim{key: Key{UserID: userID, TabID: tab}, s: s})
		}
	}
	m.mu.RUnlock()

	reaped := 0
	for _, v := range victims {
		select {
		case <-v.s.Ended():
		default:
			continue
		}
		snap, err := v.s.Snapshot(ctx)
		if err != nil {
			return reaped
		}
		if snap.EndedAt.After(cutoff) {
			continue
		}

		m.mu.Lock()
		current := m.active[v.key.UserID][v.key.TabID]
		if current == v.s {
			delete(m.active[v.key.UserID], v.key.TabID)
			if len(m.active[v.key.UserID]) == 0 {
				delete(m.active, v.key.UserID)
			}
		}
		m.mu.Unlock()

		if current == v.s {
			v.s.Close()
			reaped++
		}
	}
	return reaped
}

// StartReaper runs Reap every interval until ctx is cancelled.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.logger.Info("Session reaper started", "interval", interval, "retention", m.opts.Retention)

		for {
			select {
			case <-ticker.C:
				if n := m.Reap(ctx); n > 0 {
					m.logger.Info("Session reaper removed ended sessions", "count", n)
				}
			case <-ctx.Done():
				m.logger.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

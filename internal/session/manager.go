package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/engine"
)

// ErrNotFound is returned for unknown or evicted sessions.
var ErrNotFound = errors.New("session not found")

// sweepInterval is how often Run looks for idle sessions.
const sweepInterval = time.Minute

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	clock    Clock
	idleTTL  time.Duration
	base     zerolog.Logger
	log      zerolog.Logger
}

// NewManager creates a Manager that evicts sessions idle for idleTTL.
func NewManager(clock Clock, idleTTL time.Duration, log zerolog.Logger) *Manager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		clock:    clock,
		idleTTL:  idleTTL,
		base:     log,
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Start registers and starts a session. A zero cfg.ID gets a fresh id and
// sessions log through the manager's logger.
func (m *Manager) Start(cfg Config) *Session {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.Clock == nil {
		cfg.Clock = m.clock
	}
	cfg.Log = m.base
	s := New(cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.log.Debug().Str("session_id", s.ID().String()).Msg("Session started")
	return s
}

// Get returns a live session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Exit stops a session and removes it from the registry.
func (m *Manager) Exit(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s.Exit(ctx)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep exits every session without player activity for the idle TTL and
// reports how many were evicted. Completed sessions get the same grace period
// so their result can still be fetched.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.clock.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		snap, err := s.Exit(ctx)
		if err != nil {
			m.log.Warn().Err(err).Str("session_id", s.ID().String()).Msg("Evict session failed")
			continue
		}
		m.log.Info().
			Str("session_id", s.ID().String()).
			Bool("completed", snap.Status == engine.StatusCompleted).
			Msg("Evicted idle session")
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is cancelled. Call in a goroutine.
func (m *Manager) Run(ctx context.Context) {
	m.log.Info().Dur("idle_ttl", m.idleTTL).Msg("Session sweeper started")

	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Session sweeper stopped")
			return
		case <-t.C:
			m.Sweep(ctx)
		}
	}
}

// Shutdown exits every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Exit(ctx); err != nil {
				m.log.Warn().Err(err).Str("session_id", s.ID().String()).Msg("Exit on shutdown failed")
			}
		}()
	}
	wg.Wait()
	m.log.Info().Int("count", len(all)).Msg("All sessions exited")
}

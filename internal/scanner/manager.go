package scanner

import (
	"sync"

	"github.com/wallet-finder/internal/logging"
	"github.com/wallet-finder/internal/types"
	"github.com/wallet-finder/internal/wallet"
)

// Manager owns one Scanner per user session
type Manager struct {
	adapters map[types.ChainID]BalanceLookup
	gen      wallet.Generator
	history  HistoryWriter
	cache    ResultCache
	logger   *logging.Logger

	mu       sync.Mutex
	scanners map[int64]*Scanner
}

// NewManager creates a scanner manager. history and cache may be nil.
func NewManager(adapters map[types.ChainID]BalanceLookup, gen wallet.Generator, history HistoryWriter, cache ResultCache, logger *logging.Logger) *Manager {
	return &Manager{
		adapters: adapters,
		gen:      gen,
		history:  history,
		cache:    cache,
		logger:   logger,
		scanners: make(map[int64]*Scanner),
	}
}

// get returns the user's scanner, creating it on first use
func (m *Manager) get(userID int64) *Scanner {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.scanners[userID]
	if !ok {
		s = New(m.adapters, m.gen, m.history, m.cache, m.logger)
		m.scanners[userID] = s
	}
	return s
}

// Start begins (or restarts) scanning for the config's user
func (m *Manager) Start(cfg Config) error {
	return m.get(cfg.UserID).Start(cfg)
}

// Stop halts the user's scanner if one exists
func (m *Manager) Stop(userID int64) {
	m.mu.Lock()
	s, ok := m.scanners[userID]
	m.mu.Unlock()

	if ok {
		s.Stop()
	}
}

// Status returns the user's scanner state; a user who never started gets
// the zero snapshot
func (m *Manager) Status(userID int64) Snapshot {
	m.mu.Lock()
	s, ok := m.scanners[userID]
	m.mu.Unlock()

	if !ok {
		return Snapshot{}
	}
	return s.Status()
}

// StopAll halts every scanner; used during shutdown
func (m *Manager) StopAll() {
	m.mu.Lock()
	scanners := make([]*Scanner, 0, len(m.scanners))
	for _, s := range m.scanners {
		scanners = append(scanners, s)
	}
	m.mu.Unlock()

	for _, s := range scanners {
		s.Stop()
	}
}

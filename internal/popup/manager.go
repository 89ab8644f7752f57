package popup

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"quickshop/internal/caps"
	"quickshop/internal/cart"
	"quickshop/internal/model"
	"quickshop/internal/storefront"
)

// DefaultTTL is how long an idle session lives. Access refreshes it.
const DefaultTTL = 30 * time.Minute

// DefaultMaxSessions limits the number of live sessions (LRU eviction).
const DefaultMaxSessions = 1000

// ManagerConfig contains configuration for the session registry.
type ManagerConfig struct {
	TTL         time.Duration // Idle expiry, refreshed on access (0 = default)
	MaxSessions int           // Max live sessions (0 = default)
}

// Manager is the session registry. Each created session gets its own
// submitter bound to the session's payload source, so page-embedded
// bundle payloads resolve against the right document set.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*sessionEntry
	accessList []string // LRU tracking: most recent at end
	config     ManagerConfig

	api    cart.API
	logger *slog.Logger
}

type sessionEntry struct {
	session   *Session
	expiresAt time.Time
}

// NewManager creates a session registry with default limits.
func NewManager(api cart.API, logger *slog.Logger) *Manager {
	return NewManagerWithConfig(api, logger, ManagerConfig{
		TTL:         DefaultTTL,
		MaxSessions: DefaultMaxSessions,
	})
}

// NewManagerWithConfig creates a session registry with custom limits.
func NewManagerWithConfig(api cart.API, logger *slog.Logger, config ManagerConfig) *Manager {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxSessions == 0 {
		config.MaxSessions = DefaultMaxSessions
	}

	return &Manager{
		sessions:   make(map[string]*sessionEntry),
		accessList: make([]string, 0, config.MaxSessions),
		config:     config,
		api:        api,
		logger:     logger,
	}
}

// newSessionID creates a random session id, "qs_" plus 16 hex characters.
func newSessionID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "qs_" + hex.EncodeToString(b)
}

// Create registers a new closed session bound to the given capabilities
// and payload source.
func (m *Manager) Create(capabilities caps.Capabilities, source storefront.Source) *Session {
	id := newSessionID()
	submitter := cart.NewSubmitter(m.api, source, m.logger)
	sess := newSession(id, capabilities, source, submitter, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		m.evictOldestLocked()
	}
	m.sessions[id] = &sessionEntry{
		session:   sess,
		expiresAt: time.Now().Add(m.config.TTL),
	}
	m.recordAccessLocked(id)
	return sess
}

// Get returns a live session and refreshes its expiry. Unknown and
// expired ids both surface as session-not-found.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, model.NewSessionError(id)
	}
	if time.Now().After(entry.expiresAt) {
		m.removeLocked(id)
		return nil, model.NewSessionError(id)
	}

	entry.expiresAt = time.Now().Add(m.config.TTL)
	m.recordAccessLocked(id)
	return entry.session, nil
}

// Delete drops a session. Unknown ids are a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id)
}

// Len reports the number of registered sessions. Expired sessions still
// count until something touches them.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) recordAccessLocked(id string) {
	// Remove existing occurrence
	for i, s := range m.accessList {
		if s == id {
			m.accessList = append(m.accessList[:i], m.accessList[i+1:]...)
			break
		}
	}
	// Add to end (most recent)
	m.accessList = append(m.accessList, id)
}

func (m *Manager) removeLocked(id string) {
	delete(m.sessions, id)
	for i, s := range m.accessList {
		if s == id {
			m.accessList = append(m.accessList[:i], m.accessList[i+1:]...)
			break
		}
	}
}

func (m *Manager) evictOldestLocked() {
	if len(m.accessList) == 0 {
		return
	}
	oldest := m.accessList[0]
	m.accessList = m.accessList[1:]
	delete(m.sessions, oldest)
	m.logger.Warn("session evicted", slog.String("session_id", oldest))
}

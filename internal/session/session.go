// Package session tracks per-session conversation history as plain text.
// The orchestration loop never sees sessions; it receives the formatted
// history string and the caller records the exchange afterwards.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petasbytes/course-agent/internal/metrics"
	"github.com/petasbytes/course-agent/memory"
)

// DefaultMaxHistory is how many (query, answer) exchanges are kept per
// session for the history text.
const DefaultMaxHistory = 2

// historyRuneBudget caps the formatted history block so the system content
// stays bounded regardless of answer sizes.
const historyRuneBudget = 4000

// Manager owns session histories. Safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	maxHistory  int
	sessions    map[string][]memory.Exchange
	persistPath string
	logger      zerolog.Logger
}

// NewManager creates a manager keeping maxHistory exchanges per session
// (<= 0 selects DefaultMaxHistory). persistPath optionally enables JSON
// persistence: prior sessions are loaded now and every AddExchange saves.
func NewManager(maxHistory int, persistPath string, logger zerolog.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	m := &Manager{
		maxHistory:  maxHistory,
		sessions:    map[string][]memory.Exchange{},
		persistPath: persistPath,
		logger:      logger,
	}
	if persistPath != "" {
		loaded, err := memory.LoadSessions(persistPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", persistPath).Msg("could not load persisted sessions")
		} else {
			m.sessions = loaded
		}
	}
	return m
}

// Create returns a fresh session id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange records one (query, answer) pair, trimming to the retention
// window.
func (m *Manager) AddExchange(id, query, answer string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	ex := append(m.sessions[id], memory.Exchange{Query: query, Answer: answer})
	if len(ex) > m.maxHistory {
		ex = ex[len(ex)-m.maxHistory:]
	}
	m.sessions[id] = ex
	var snapshot map[string][]memory.Exchange
	if m.persistPath != "" {
		snapshot = make(map[string][]memory.Exchange, len(m.sessions))
		for k, v := range m.sessions {
			snapshot[k] = v
		}
	}
	m.mu.Unlock()

	if snapshot != nil {
		if err := memory.SaveSessions(m.persistPath, snapshot); err != nil {
			m.logger.Warn().Err(err).Msg("could not persist sessions")
		}
	}
}

// History formats the retained exchanges as
//
//	User: <query>
//	Assistant: <answer>
//
// blocks joined by blank lines, oldest first. Returns "" for unknown or
// empty sessions. The result is clamped to a rune budget by dropping the
// oldest exchanges first.
func (m *Manager) History(id string) string {
	if id == "" {
		return ""
	}
	m.mu.Lock()
	ex := m.sessions[id]
	m.mu.Unlock()
	if len(ex) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(ex))
	for _, e := range ex {
		blocks = append(blocks, "User: "+e.Query+"\nAssistant: "+e.Answer)
	}
	out := strings.Join(blocks, "\n\n")
	for len(blocks) > 1 && metrics.CountFeatures(out).Runes > historyRuneBudget {
		blocks = blocks[1:]
		out = strings.Join(blocks, "\n\n")
	}
	return out
}

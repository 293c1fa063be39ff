// Package session keeps per-conversation message history in memory.
// Histories are append-only and isolated per session; appends within one
// session are serialized so turn order is total.
package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirutec/sage/internal/log"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// conversation holds one session's history. Its mutex serializes appends so
// two concurrent turns on the same session cannot interleave their messages.
type conversation struct {
	mu       sync.Mutex
	id       string
	messages []Message
	lastSeen time.Time
}

// Manager owns every active conversation. Safe for concurrent use.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	logger        log.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		conversations: make(map[string]*conversation),
		logger:        logger,
	}
}

// GetOrCreate returns the session for id, creating it transparently when id
// is blank or unknown. The returned string is the effective session ID.
func (m *Manager) GetOrCreate(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.New().String()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		m.conversations[id] = &conversation{id: id, lastSeen: time.Now()}
		m.logger.Debug("session created", "session_id", id)
	}
	return id
}

// Append records a message on the session, creating the session if needed,
// and returns the stored message.
func (m *Manager) Append(sessionID, role, content string) Message {
	sessionID = m.GetOrCreate(sessionID)

	m.mu.RLock()
	conv := m.conversations[sessionID]
	m.mu.RUnlock()

	conv.mu.Lock()
	defer conv.mu.Unlock()

	msg := Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	conv.messages = append(conv.messages, msg)
	conv.lastSeen = msg.CreatedAt
	return msg
}

// Messages returns a copy of the session's history in append order. Unknown
// sessions yield an empty slice.
func (m *Manager) Messages(sessionID string) []Message {
	m.mu.RLock()
	conv, ok := m.conversations[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	out := make([]Message, len(conv.messages))
	copy(out, conv.messages)
	return out
}

// Count reports the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// IDs returns all session IDs, sorted for deterministic output.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

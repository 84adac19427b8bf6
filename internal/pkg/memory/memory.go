// Package memory keeps bounded per-session conversation history.
//
// The whole session document is read, modified and written back on every
// mutation; concurrent writers follow last-writer-wins. A document that
// cannot be read resets the in-memory state to empty. Write failures are
// logged and never surface to callers.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/persona-assistant/pkg/errors"
)

// MaxHistory is the number of history entries kept per session.
const MaxHistory = 10

// Message roles in a chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionContext is the persisted state of one conversation.
type SessionContext struct {
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	ChatHistory []Message `json:"chat_history"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *SessionContext) clone() *SessionContext {
	cp := *s
	cp.ChatHistory = append([]Message(nil), s.ChatHistory...)
	return &cp
}

// Document is the full persisted state, keyed by session id.
type Document map[string]*SessionContext

// DocumentStore loads and saves the whole session document.
// Load on a store that has never been written returns an empty document.
type DocumentStore interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Memory is the conversation memory service.
type Memory struct {
	store DocumentStore

	mu       sync.Mutex
	sessions Document
	scratch  map[string]any
	now      func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithClock overrides the time source used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// New creates a Memory backed by store and loads the existing document.
// A nil store keeps everything in process.
func New(ctx context.Context, store DocumentStore, opts ...Option) *Memory {
	m := &Memory{
		store:   store,
		scratch: make(map[string]any),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sessions = make(Document)
	m.refresh(ctx)
	return m
}

// refresh reloads the document from the store. Without a store the
// in-process state is authoritative and left untouched.
func (m *Memory) refresh(ctx context.Context) {
	if m.store == nil {
		return
	}
	doc, err := m.store.Load(ctx)
	if err != nil {
		logger.Debugw("session document unreadable, starting empty", "error", err.Error())
		doc = nil
	}
	if doc == nil {
		doc = make(Document)
	}
	m.sessions = doc
}

// Store replaces the session's history with the last MaxHistory entries of
// history and persists the document.
func (m *Memory) Store(ctx context.Context, sessionID, role string, history []Message) {
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	session := &SessionContext{
		SessionID:   sessionID,
		Role:        role,
		ChatHistory: append([]Message(nil), history...),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session.UpdatedAt = m.now()
	m.refresh(ctx)
	m.sessions[sessionID] = session
	m.persist(ctx)
}

// Retrieve returns a copy of the session, or false if it does not exist.
func (m *Memory) Retrieve(_ context.Context, sessionID string) (*SessionContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s == nil {
		return nil, false
	}
	return s.clone(), true
}

// Clear removes the session and persists the document.
func (m *Memory) Clear(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh(ctx)
	delete(m.sessions, sessionID)
	m.persist(ctx)
}

// PutScratch stores a process-local value that is never persisted.
func (m *Memory) PutScratch(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scratch[key] = value
}

// GetScratch returns the scratch value for key, or def when unset.
func (m *Memory) GetScratch(key string, def any) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.scratch[key]; ok {
		return v
	}
	return def
}

func (m *Memory) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.sessions); err != nil {
		logger.Debugw("session persistence failed",
			"error", errors.ErrPersistenceFailure.WithCause(err).Error())
	}
}

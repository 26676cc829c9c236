// Package store provides storage backends for HealthAssist.
//
// It persists three collections: append-only conversation records,
// per-user topic memory, and the append-only AI response-time log. SQLite
// and PostgreSQL backends are selected by DSN detection; an in-memory store
// backs tests and credential-less development runs.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/swasthya/healthassist/internal/models"
)

// Store is the persistence contract consumed by the pipeline and the
// statistics aggregator. Conversations and AI logs are append-only; the
// topic memory is mutated in place with last-write-wins semantics.
type Store interface {
	// AddConversation persists a conversation record and returns its
	// generated key.
	AddConversation(c models.Conversation) (string, error)
	// GetConversations returns every conversation record.
	GetConversations() ([]models.Conversation, error)
	// GetLastTopic returns the remembered topic for a user, or "" when the
	// user has no memory record yet.
	GetLastTopic(userID string) (string, error)
	// SetLastTopic overwrites the remembered topic for a user.
	SetLastTopic(userID, topic string) error
	// AddAILog appends one response-time log entry.
	AddAILog(e models.AILogEntry) error
	// GetAILogs returns every response-time log entry.
	GetAILogs() ([]models.AILogEntry, error)
	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType determines whether a DSN refers to PostgreSQL or SQLite.
// Anything that is not recognizably Postgres is treated as a SQLite path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// newConversationID generates the auto key for a conversation record.
func newConversationID() string {
	return uuid.NewString()
}

// InMemoryStore is a mutex-guarded in-memory Store used by tests and as the
// fallback when no database DSN is configured.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations []models.Conversation
	topics        map[string]string
	aiLogs        []models.AILogEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{topics: make(map[string]string)}
}

// AddConversation appends a conversation record and returns its generated key.
func (s *InMemoryStore) AddConversation(c models.Conversation) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = newConversationID()
	s.conversations = append(s.conversations, c)
	return c.ID, nil
}

// GetConversations returns a copy of all conversation records in insertion order.
func (s *InMemoryStore) GetConversations() ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out, nil
}

// GetLastTopic returns the remembered topic for a user, "" when absent.
func (s *InMemoryStore) GetLastTopic(userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics[userID], nil
}

// SetLastTopic overwrites the remembered topic for a user.
func (s *InMemoryStore) SetLastTopic(userID, topic string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[userID] = topic
	return nil
}

// AddAILog appends one response-time log entry.
func (s *InMemoryStore) AddAILog(e models.AILogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiLogs = append(s.aiLogs, e)
	return nil
}

// GetAILogs returns a copy of all response-time log entries, oldest first.
func (s *InMemoryStore) GetAILogs() ([]models.AILogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AILogEntry, len(s.aiLogs))
	copy(out, s.aiLogs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

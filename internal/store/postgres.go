// Package store provides storage backends for HealthAssist.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/swasthya/healthassist/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversations, topic memory and AI logs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run PostgreSQL migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// AddConversation inserts a conversation record and returns its generated key.
func (s *PostgresStore) AddConversation(c models.Conversation) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id := newConversationID()
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, source, sender, recipient, query, intent, language, topic, reply_text, reply_type, reply_source, reply_sent_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, string(c.Source), c.From, c.To, c.Query, c.Intent, c.Language, c.Topic,
		c.Reply.FullAnswer, string(c.Reply.Type), c.Reply.Source, c.Reply.Timestamp, c.Timestamp)
	if err != nil {
		slog.Error("PostgresStore.AddConversation failed", "error", err, "from", c.From)
		return "", fmt.Errorf("failed to insert conversation from %s: %w", c.From, err)
	}
	slog.Debug("PostgresStore.AddConversation succeeded", "id", id, "source", c.Source)
	return id, nil
}

// GetConversations returns every conversation record, oldest first.
func (s *PostgresStore) GetConversations() ([]models.Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, source, sender, recipient, query, intent, language, topic, reply_text, reply_type, reply_source, reply_sent_at, created_at
		 FROM conversations ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore.GetConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			slog.Error("PostgresStore.GetConversations scan failed", "error", err)
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore.GetConversations rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	slog.Debug("PostgresStore.GetConversations succeeded", "count", len(conversations))
	return conversations, nil
}

// GetLastTopic returns the remembered topic for a user, "" when absent.
func (s *PostgresStore) GetLastTopic(userID string) (string, error) {
	var topic string
	err := s.db.QueryRow(`SELECT last_disease FROM user_topics WHERE user_id = $1`, userID).Scan(&topic)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetLastTopic failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to query last topic for %s: %w", userID, err)
	}
	return topic, nil
}

// SetLastTopic overwrites the remembered topic for a user (last-write-wins).
func (s *PostgresStore) SetLastTopic(userID, topic string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	_, err := s.db.Exec(
		`INSERT INTO user_topics (user_id, last_disease, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET last_disease = EXCLUDED.last_disease, updated_at = EXCLUDED.updated_at`,
		userID, topic, nowMillis())
	if err != nil {
		slog.Error("PostgresStore.SetLastTopic failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to upsert last topic for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore.SetLastTopic succeeded", "userID", userID, "topic", topic)
	return nil
}

// AddAILog appends one response-time log entry.
func (s *PostgresStore) AddAILog(e models.AILogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO ai_logs (channel, user_id, message, intent, topic, language, response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Channel, e.UserID, e.Message, e.Intent, e.Topic, e.Language, e.ResponseTimeMs, e.Timestamp)
	if err != nil {
		slog.Error("PostgresStore.AddAILog failed", "error", err, "channel", e.Channel)
		return fmt.Errorf("failed to insert AI log for %s: %w", e.Channel, err)
	}
	return nil
}

// GetAILogs returns every response-time log entry, oldest first.
func (s *PostgresStore) GetAILogs() ([]models.AILogEntry, error) {
	rows, err := s.db.Query(
		`SELECT channel, user_id, message, intent, topic, language, response_time_ms, created_at
		 FROM ai_logs ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore.GetAILogs query failed", "error", err)
		return nil, fmt.Errorf("failed to query AI logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AILogEntry
	for rows.Next() {
		e, err := scanAILog(rows)
		if err != nil {
			slog.Error("PostgresStore.GetAILogs scan failed", "error", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore.GetAILogs rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate AI log rows: %w", err)
	}
	slog.Debug("PostgresStore.GetAILogs succeeded", "count", len(entries))
	return entries, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}

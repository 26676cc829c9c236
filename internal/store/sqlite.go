// Package store provides storage backends for HealthAssist.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swasthya/healthassist/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversations, topic memory and AI logs in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddConversation inserts a conversation record and returns its generated key.
func (s *SQLiteStore) AddConversation(c models.Conversation) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id := newConversationID()
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, source, sender, recipient, query, intent, language, topic, reply_text, reply_type, reply_source, reply_sent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(c.Source), c.From, c.To, c.Query, c.Intent, c.Language, c.Topic,
		c.Reply.FullAnswer, string(c.Reply.Type), c.Reply.Source, c.Reply.Timestamp, c.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore.AddConversation failed", "error", err, "from", c.From)
		return "", fmt.Errorf("failed to insert conversation from %s: %w", c.From, err)
	}
	slog.Debug("SQLiteStore.AddConversation succeeded", "id", id, "source", c.Source)
	return id, nil
}

// GetConversations returns every conversation record, oldest first.
func (s *SQLiteStore) GetConversations() ([]models.Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, source, sender, recipient, query, intent, language, topic, reply_text, reply_type, reply_source, reply_sent_at, created_at
		 FROM conversations ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore.GetConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			slog.Error("SQLiteStore.GetConversations scan failed", "error", err)
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore.GetConversations rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	slog.Debug("SQLiteStore.GetConversations succeeded", "count", len(conversations))
	return conversations, nil
}

// GetLastTopic returns the remembered topic for a user, "" when absent.
func (s *SQLiteStore) GetLastTopic(userID string) (string, error) {
	var topic string
	err := s.db.QueryRow(`SELECT last_disease FROM user_topics WHERE user_id = ?`, userID).Scan(&topic)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetLastTopic failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to query last topic for %s: %w", userID, err)
	}
	return topic, nil
}

// SetLastTopic overwrites the remembered topic for a user. The upsert is a
// single statement; concurrent turns for the same user are last-write-wins.
func (s *SQLiteStore) SetLastTopic(userID, topic string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	_, err := s.db.Exec(
		`INSERT INTO user_topics (user_id, last_disease, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET last_disease = excluded.last_disease, updated_at = excluded.updated_at`,
		userID, topic, nowMillis())
	if err != nil {
		slog.Error("SQLiteStore.SetLastTopic failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to upsert last topic for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore.SetLastTopic succeeded", "userID", userID, "topic", topic)
	return nil
}

// AddAILog appends one response-time log entry.
func (s *SQLiteStore) AddAILog(e models.AILogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO ai_logs (channel, user_id, message, intent, topic, language, response_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Channel, e.UserID, e.Message, e.Intent, e.Topic, e.Language, e.ResponseTimeMs, e.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore.AddAILog failed", "error", err, "channel", e.Channel)
		return fmt.Errorf("failed to insert AI log for %s: %w", e.Channel, err)
	}
	return nil
}

// GetAILogs returns every response-time log entry, oldest first.
func (s *SQLiteStore) GetAILogs() ([]models.AILogEntry, error) {
	rows, err := s.db.Query(
		`SELECT channel, user_id, message, intent, topic, language, response_time_ms, created_at
		 FROM ai_logs ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore.GetAILogs query failed", "error", err)
		return nil, fmt.Errorf("failed to query AI logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AILogEntry
	for rows.Next() {
		e, err := scanAILog(rows)
		if err != nil {
			slog.Error("SQLiteStore.GetAILogs scan failed", "error", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore.GetAILogs rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate AI log rows: %w", err)
	}
	slog.Debug("SQLiteStore.GetAILogs succeeded", "count", len(entries))
	return entries, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

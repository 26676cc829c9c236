package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/swasthya/healthassist/internal/models"
)

// nowMillis returns the current time in epoch milliseconds, the timestamp
// unit used across all collections.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// scanConversation scans a Conversation from sql.Rows.
func scanConversation(rows *sql.Rows) (models.Conversation, error) {
	var c models.Conversation
	var source, replyType string
	var recipient, language, topic, replyText, replySource sql.NullString
	var replySentAt sql.NullInt64
	err := rows.Scan(
		&c.ID, &source, &c.From, &recipient, &c.Query, &c.Intent, &language, &topic,
		&replyText, &replyType, &replySource, &replySentAt, &c.Timestamp,
	)
	if err != nil {
		return c, fmt.Errorf("scan conversation failed: %w", err)
	}
	c.Source = models.Source(source)
	c.To = recipient.String
	c.Language = language.String
	c.Topic = topic.String
	c.Reply = models.Reply{
		FullAnswer: replyText.String,
		Type:       models.ReplyType(replyType),
		Source:     replySource.String,
		Timestamp:  replySentAt.Int64,
	}
	return c, nil
}

// scanAILog scans an AILogEntry from sql.Rows.
func scanAILog(rows *sql.Rows) (models.AILogEntry, error) {
	var e models.AILogEntry
	var userID, message, intent, topic, language sql.NullString
	err := rows.Scan(
		&e.Channel, &userID, &message, &intent, &topic, &language,
		&e.ResponseTimeMs, &e.Timestamp,
	)
	if err != nil {
		return e, fmt.Errorf("scan AI log failed: %w", err)
	}
	e.UserID = userID.String
	e.Message = message.String
	e.Intent = intent.String
	e.Topic = topic.String
	e.Language = language.String
	return e, nil
}

// Package models defines the core data structures for HealthAssist.
//
// It includes the conversation record, per-user topic memory, the AI
// response-time log entry, and the advanced statistics report shared across
// modules.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Source identifies the inbound channel a conversation arrived on.
type Source string

const (
	// SourceWebhook marks conversations from the generic webhook channel.
	SourceWebhook Source = "webhook"
	// SourceWhatsApp marks conversations from the WhatsApp channel.
	SourceWhatsApp Source = "whatsapp"
	// SourceSMS marks conversations from the SMS channel.
	SourceSMS Source = "sms"
)

// Channel labels used in AI response-time log entries.
const (
	ChannelWhatsApp = "WhatsApp"
	ChannelSMS      = "SMS"
	ChannelWebhook  = "Webhook"
)

// Intent sentinels assigned by the classifier.
const (
	// IntentUnknown is assigned when the classifier returns nothing usable.
	IntentUnknown = "Unknown"
	// IntentFallback is the classifier's sentinel for unmatched queries.
	IntentFallback = "Default Fallback Intent"
	// IntentWelcome greets first-time users on the webhook channel.
	IntentWelcome = "Default Welcome Intent"
	// IntentError is assigned when the classifier call itself failed.
	IntentError = "Error"
)

// Named intents the webhook channel builds dedicated prompts for.
const (
	IntentDiseaseInfo    = "Disease Info"
	IntentPreventionTips = "Prevention Tips"
	IntentVaccineCheck   = "Vaccine Check"
	IntentSymptomChecker = "Symptom Checker"
)

// ReplyType describes how a reply was (or should be) delivered.
type ReplyType string

const (
	// ReplyTypeText is a plain text reply.
	ReplyTypeText ReplyType = "text"
	// ReplyTypeVoice marks a reply the user asked to receive as voice.
	ReplyTypeVoice ReplyType = "voice"
	// ReplyTypeAudio marks a reply that actually went out as a media message.
	ReplyTypeAudio ReplyType = "audio"
)

// TopicUnknown is the sentinel for "no concrete health topic".
const TopicUnknown = "unknown"

// ReplySourceGenAI tags replies produced by the generative model.
const ReplySourceGenAI = "gemini_auto"

// Reply length limits applied before dispatch.
const (
	// MaxReplyLength is the longest reply sent through a gateway channel.
	MaxReplyLength = 1500
	// TruncatedReplyLength is the length kept before the "..." marker.
	TruncatedReplyLength = 1497
)

// Validation errors.
var (
	ErrInvalidSource = errors.New("invalid conversation source")
	ErrEmptyQuery    = errors.New("query cannot be empty")
	ErrEmptyUserID   = errors.New("user id cannot be empty")
)

// Reply is the nested outbound part of a conversation record.
type Reply struct {
	FullAnswer string    `json:"fullAnswer"`
	Type       ReplyType `json:"type"`
	Source     string    `json:"source"`
	Timestamp  int64     `json:"timestamp"` // epoch milliseconds
}

// Conversation is one inbound/outbound exchange. Records are append-only:
// once written they are never updated in place.
type Conversation struct {
	ID        string `json:"id,omitempty"`
	Source    Source `json:"source"`
	From      string `json:"from"`
	To        string `json:"to"`
	Query     string `json:"query"`
	Intent    string `json:"intent"`
	Language  string `json:"language"`
	Topic     string `json:"topic"`
	Reply     Reply  `json:"reply"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Validate checks the invariants a conversation record must satisfy before
// it is persisted.
func (c *Conversation) Validate() error {
	if !IsValidSource(c.Source) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, c.Source)
	}
	if strings.TrimSpace(c.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// IsValidSource checks if the given source is a known inbound channel.
func IsValidSource(s Source) bool {
	switch s {
	case SourceWebhook, SourceWhatsApp, SourceSMS:
		return true
	default:
		return false
	}
}

// AILogEntry records the latency of one generative call. Entries are
// append-only and only ever read back by the statistics aggregator.
type AILogEntry struct {
	Channel        string  `json:"channel"`
	UserID         string  `json:"userId"`
	Message        string  `json:"message"`
	Intent         string  `json:"intent"`
	Topic          string  `json:"topic"`
	Language       string  `json:"language"`
	ResponseTimeMs float64 `json:"responseTimeMs"`
	Timestamp      int64   `json:"timestamp"` // epoch milliseconds
}

// WebhookRequest is the Dialogflow-shaped body of POST /webhook.
type WebhookRequest struct {
	QueryResult struct {
		QueryText string `json:"queryText"`
		Intent    struct {
			DisplayName string `json:"displayName"`
		} `json:"intent"`
	} `json:"queryResult"`
}

// WebhookResponse is the fulfillment body returned to the webhook caller.
type WebhookResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
}

// UserCounts holds distinct-user counts per gateway channel.
type UserCounts struct {
	WhatsApp int `json:"whatsapp"`
	SMS      int `json:"sms"`
}

// VoiceTextSplit counts WhatsApp replies delivered as voice vs text.
type VoiceTextSplit struct {
	Voice int `json:"voice"`
	Text  int `json:"text"`
}

// StatsReport is the payload of GET /stats/advanced.
type StatsReport struct {
	TotalMessages        int               `json:"totalMessages"`
	LanguageDistribution map[string]string `json:"languageDistribution"`
	IntentDistribution   map[string]string `json:"intentDistribution"`
	Users                UserCounts        `json:"users"`
	WhatsAppVoiceText    VoiceTextSplit    `json:"whatsappVoiceText"`
	Last24hMessages      int               `json:"last24hMessages"`
	AvgResponseTimeMs    float64           `json:"avgResponseTimeMs"`
}

// APIError is the JSON error envelope for non-fulfillment endpoints.
type APIError struct {
	Error string `json:"error"`
}

// Error builds an APIError with the given message.
func Error(msg string) APIError {
	return APIError{Error: msg}
}

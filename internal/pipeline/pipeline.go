// Package pipeline orchestrates one conversation turn: medical gate,
// classification, topic memory, reply generation, formatting, persistence
// and dispatch.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/swasthya/healthassist/internal/genai"
	"github.com/swasthya/healthassist/internal/messaging"
	"github.com/swasthya/healthassist/internal/models"
	"github.com/swasthya/healthassist/internal/nlu"
	"github.com/swasthya/healthassist/internal/store"
)

// Canned reply texts.
const (
	whatsAppRefusal = "- I am a health assistant and cannot answer non-medical questions."
	smsRefusal      = "I am a health assistant and can only answer medical questions."
	webhookRefusal  = "⚕️ I'm HealthAssist — I can only answer health and medical awareness questions. Try asking about symptoms, diseases, prevention, or vaccines."
	welcomeText     = "👋 Hi! I'm HealthAssist — your AI health awareness assistant. Ask me about diseases, vaccines, symptoms, or prevention tips."
	learningText    = "Sorry, I'm still learning about that topic. Please ask about health, symptoms, or diseases."
	fetchErrorText  = "Sorry, I couldn't fetch that info right now."
	apologyText     = "Sorry, I'm having trouble right now. Please try again later or consult a healthcare provider."
)

// WebhookErrorText is the fulfillment text returned on a webhook failure.
const WebhookErrorText = "Error processing your request."

// VoiceDeliverer delivers a reply as a voice note.
type VoiceDeliverer interface {
	Send(ctx context.Context, to, text, language string) error
}

// Pipeline wires the per-turn components together.
type Pipeline struct {
	store      store.Store
	generator  genai.Generator
	classifier nlu.Classifier
	dispatcher messaging.Dispatcher
	voice      VoiceDeliverer
}

// New creates a pipeline. voice may be nil, in which case voice requests
// degrade to text replies.
func New(st store.Store, g genai.Generator, c nlu.Classifier, d messaging.Dispatcher, v VoiceDeliverer) *Pipeline {
	return &Pipeline{store: st, generator: g, classifier: c, dispatcher: d, voice: v}
}

// LogMeta identifies the channel context of one generative call for the
// latency log.
type LogMeta struct {
	Channel  string
	UserID   string
	Language string
}

// GenerateReply runs the reply state machine: the fallback prompt for
// unmatched intents, then one retry with the normal prompt when that
// produced nothing. The wall-clock duration of the whole call is written
// to the AI log on every exit path; log failures are swallowed.
func (p *Pipeline) GenerateReply(ctx context.Context, msg, intent, topic string, meta LogMeta) (reply string, err error) {
	start := time.Now()
	defer func() {
		elapsed := roundMillis(time.Since(start))
		logErr := p.store.AddAILog(models.AILogEntry{
			Channel:        meta.Channel,
			UserID:         meta.UserID,
			Message:        msg,
			Intent:         intent,
			Topic:          topic,
			Language:       meta.Language,
			ResponseTimeMs: elapsed,
			Timestamp:      time.Now().UnixMilli(),
		})
		if logErr != nil {
			slog.Error("Pipeline.GenerateReply: failed to log response time", "error", logErr, "channel", meta.Channel)
		}
		slog.Info("Pipeline.GenerateReply: completed", "channel", meta.Channel, "intent", intent, "responseTimeMs", elapsed)
	}()

	if intent == models.IntentFallback || intent == models.IntentUnknown {
		reply, err = p.generator.Query(ctx, BuildPrompt(msg, intent, topic, true))
		if err != nil {
			slog.Error("Pipeline.GenerateReply: fallback prompt failed", "error", err)
			reply = ""
		}
	}

	if strings.TrimSpace(reply) == "" {
		reply, err = p.generator.Query(ctx, BuildPrompt(msg, intent, topic, false))
		if err != nil {
			return "", err
		}
	}
	return reply, nil
}

// generateAnswer is the webhook-channel wrapper: a single prompt with a
// canned apology when the model returns nothing usable.
func (p *Pipeline) generateAnswer(ctx context.Context, prompt string) string {
	text, err := p.generator.Query(ctx, prompt)
	if err != nil {
		slog.Error("Pipeline.generateAnswer failed", "error", err)
		return fetchErrorText
	}
	if strings.TrimSpace(text) == "" {
		return fetchErrorText
	}
	return text
}

// resolveTopic picks the topic for this turn: the disease extracted from
// the current message, else the remembered one, else "unknown".
func (p *Pipeline) resolveTopic(currentDisease, userID string) string {
	if currentDisease != "" && currentDisease != models.TopicUnknown {
		return currentDisease
	}
	lastTopic, err := p.store.GetLastTopic(userID)
	if err != nil {
		slog.Error("Pipeline.resolveTopic: failed to read last topic", "error", err, "userID", userID)
	}
	if lastTopic == "" {
		return models.TopicUnknown
	}
	return lastTopic
}

// rememberTopic overwrites the stored topic only with concrete extractions.
func (p *Pipeline) rememberTopic(userID, currentDisease string) error {
	if currentDisease == "" || currentDisease == models.TopicUnknown {
		return nil
	}
	return p.store.SetLastTopic(userID, currentDisease)
}

func roundMillis(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*100) / 100
}

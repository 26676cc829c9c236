package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/swasthya/healthassist/internal/genai"
	"github.com/swasthya/healthassist/internal/models"
)

// HandleWebhook processes one Dialogflow-shaped webhook request and returns
// the fulfillment text. The channel carries no stable user identity, so
// topic memory is neither read nor written.
func (p *Pipeline) HandleWebhook(ctx context.Context, req models.WebhookRequest) (models.WebhookResponse, error) {
	queryText := req.QueryResult.QueryText
	if queryText == "" {
		queryText = "Hello!"
	}
	intent := req.QueryResult.Intent.DisplayName
	if intent == "" {
		intent = models.IntentUnknown
	}
	slog.Info("Pipeline.HandleWebhook: incoming", "intent", intent, "query", queryText)

	language := genai.DetectLanguage(ctx, p.generator, queryText)
	slog.Debug("Pipeline.HandleWebhook: language detected", "language", language)

	if !genai.CheckMedical(ctx, p.generator, queryText) {
		slog.Info("Pipeline.HandleWebhook: non-medical query refused")
		return models.WebhookResponse{FulfillmentText: webhookRefusal}, nil
	}

	currentDisease := genai.ExtractDisease(ctx, p.generator, queryText)
	topic := currentDisease
	if topic == "" {
		topic = models.TopicUnknown
	}

	start := time.Now()
	var answer string
	if prompt := webhookPrompt(intent, queryText, language); prompt != "" {
		answer = p.generateAnswer(ctx, prompt)
	} else if intent == models.IntentWelcome {
		answer = welcomeText
	} else {
		answer = learningText
	}
	elapsed := roundMillis(time.Since(start))

	if err := p.store.AddAILog(models.AILogEntry{
		Channel:        models.ChannelWebhook,
		Message:        queryText,
		Intent:         intent,
		Topic:          topic,
		Language:       language,
		ResponseTimeMs: elapsed,
		Timestamp:      time.Now().UnixMilli(),
	}); err != nil {
		slog.Error("Pipeline.HandleWebhook: failed to log response time", "error", err)
	}

	_, err := p.store.AddConversation(models.Conversation{
		Source:   models.SourceWebhook,
		Query:    queryText,
		Intent:   intent,
		Language: language,
		Topic:    topic,
		Reply: models.Reply{
			FullAnswer: answer,
			Type:       models.ReplyTypeText,
			Source:     models.ReplySourceGenAI,
			Timestamp:  time.Now().UnixMilli(),
		},
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return models.WebhookResponse{}, err
	}

	return models.WebhookResponse{FulfillmentText: answer}, nil
}

package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/swasthya/healthassist/internal/genai"
	"github.com/swasthya/healthassist/internal/models"
)

// HandleSMS processes one inbound SMS. The channel never produces voice
// replies and an empty body is acknowledged without any processing.
func (p *Pipeline) HandleSMS(ctx context.Context, from, to, rawBody string) error {
	msg := strings.TrimSpace(rawBody)
	slog.Info("Pipeline.HandleSMS: incoming", "from", from, "message", msg)
	if msg == "" {
		return nil
	}

	if !genai.CheckMedical(ctx, p.generator, msg) {
		slog.Info("Pipeline.HandleSMS: non-medical message refused", "from", from)
		return p.dispatcher.SendSMS(ctx, from, smsRefusal)
	}

	result := p.classifier.Classify(ctx, msg, from)
	intent := result.Intent
	if intent == "" {
		intent = models.IntentUnknown
	}
	language := result.Language

	currentDisease := genai.ExtractDisease(ctx, p.generator, msg)
	topic := p.resolveTopic(currentDisease, from)

	reply, err := p.GenerateReply(ctx, msg, intent, topic, LogMeta{
		Channel:  models.ChannelSMS,
		UserID:   from,
		Language: language,
	})
	if err != nil {
		return err
	}
	reply = Truncate(reply)

	_, err = p.store.AddConversation(models.Conversation{
		Source:   models.SourceSMS,
		From:     from,
		To:       to,
		Query:    msg,
		Intent:   intent,
		Language: language,
		Topic:    topic,
		Reply: models.Reply{
			FullAnswer: reply,
			Type:       models.ReplyTypeText,
			Source:     models.ReplySourceGenAI,
			Timestamp:  time.Now().UnixMilli(),
		},
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	if err := p.rememberTopic(from, currentDisease); err != nil {
		return err
	}

	return p.dispatcher.SendSMS(ctx, from, reply)
}

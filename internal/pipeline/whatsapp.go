package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/swasthya/healthassist/internal/genai"
	"github.com/swasthya/healthassist/internal/models"
	"github.com/swasthya/healthassist/internal/preprocess"
)

// HandleWhatsApp processes one inbound WhatsApp message end to end.
func (p *Pipeline) HandleWhatsApp(ctx context.Context, rawFrom, rawTo, rawBody string) error {
	from := preprocess.NormalizeWhatsAppNumber(rawFrom)
	to := preprocess.NormalizeWhatsAppNumber(rawTo)

	voiceReq := preprocess.DetectVoiceRequest(strings.TrimSpace(rawBody))
	msg := voiceReq.CleanedText
	wantsVoice := voiceReq.WantsVoice
	if msg == "" {
		msg = "Hello"
	}
	slog.Info("Pipeline.HandleWhatsApp: incoming", "from", from, "message", msg, "wantsVoice", wantsVoice)

	if !genai.CheckMedical(ctx, p.generator, msg) {
		slog.Info("Pipeline.HandleWhatsApp: non-medical message refused", "from", from)
		return p.dispatcher.SendWhatsAppText(ctx, from, whatsAppRefusal)
	}

	result := p.classifier.Classify(ctx, msg, from)
	intent := result.Intent
	if intent == "" {
		intent = models.IntentUnknown
	}
	language := result.Language
	slog.Info("Pipeline.HandleWhatsApp: classified", "intent", intent, "language", language)

	currentDisease := genai.ExtractDisease(ctx, p.generator, msg)
	topic := p.resolveTopic(currentDisease, from)
	slog.Debug("Pipeline.HandleWhatsApp: topic resolved", "current", currentDisease, "topic", topic)

	reply, err := p.GenerateReply(ctx, msg, intent, topic, LogMeta{
		Channel:  models.ChannelWhatsApp,
		UserID:   from,
		Language: language,
	})
	if err != nil {
		return err
	}
	reply = Truncate(CleanReply(reply))

	replyType := models.ReplyTypeText
	if wantsVoice {
		replyType = models.ReplyTypeVoice
	}
	_, err = p.store.AddConversation(models.Conversation{
		Source:   models.SourceWhatsApp,
		From:     from,
		To:       to,
		Query:    msg,
		Intent:   intent,
		Language: language,
		Topic:    topic,
		Reply: models.Reply{
			FullAnswer: reply,
			Type:       replyType,
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

	if wantsVoice && p.voice != nil && !p.dispatcher.DryRun() {
		return p.voice.Send(ctx, from, reply, language)
	}
	return p.dispatcher.SendWhatsAppText(ctx, from, reply)
}

// SendApology makes a best-effort attempt to tell a WhatsApp user the turn
// failed. Errors are swallowed; the caller is already on the error path.
func (p *Pipeline) SendApology(ctx context.Context, rawFrom string) {
	from := preprocess.NormalizeWhatsAppNumber(rawFrom)
	if err := p.dispatcher.SendWhatsAppText(ctx, from, apologyText); err != nil {
		slog.Error("Pipeline.SendApology failed", "error", err, "to", from)
	}
}

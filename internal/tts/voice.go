package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/swasthya/healthassist/internal/messaging"
	"github.com/swasthya/healthassist/internal/preprocess"
)

// maxSpeechLength is the longest text the synthesizer is asked to speak.
const maxSpeechLength = 2000

// VoiceSender turns a reply into a WhatsApp voice note: sanitize,
// synthesize, stage to a temp file, upload, dispatch the media URL. Any
// failure along the way degrades to a plain text send.
type VoiceSender struct {
	synth      Synthesizer
	uploader   Uploader
	dispatcher messaging.Dispatcher
	stateDir   string
}

// NewVoiceSender creates a voice sender staging temp audio under stateDir
// ("" means the OS temp directory).
func NewVoiceSender(synth Synthesizer, uploader Uploader, dispatcher messaging.Dispatcher, stateDir string) *VoiceSender {
	return &VoiceSender{synth: synth, uploader: uploader, dispatcher: dispatcher, stateDir: stateDir}
}

// Send delivers text to a WhatsApp user as a voice note, falling back to a
// text message when synthesis or upload fails.
func (v *VoiceSender) Send(ctx context.Context, to, text, language string) error {
	mediaURL, err := v.prepareVoiceNote(ctx, text, language)
	if err != nil {
		slog.Error("VoiceSender.Send: voice note failed, falling back to text", "error", err, "to", to)
		return v.dispatcher.SendWhatsAppText(ctx, to, text)
	}
	if err := v.dispatcher.SendWhatsAppMedia(ctx, to, mediaURL); err != nil {
		slog.Error("VoiceSender.Send: media dispatch failed, falling back to text", "error", err, "to", to)
		return v.dispatcher.SendWhatsAppText(ctx, to, text)
	}
	slog.Info("VoiceSender.Send: voice note delivered", "to", to, "mediaUrl", mediaURL)
	return nil
}

func (v *VoiceSender) prepareVoiceNote(ctx context.Context, text, language string) (string, error) {
	speech := preprocess.SanitizeForSpeech(text)
	if speech == "" {
		return "", fmt.Errorf("nothing speakable after sanitization")
	}
	if len(speech) > maxSpeechLength {
		return "", fmt.Errorf("speech text too long: %d chars", len(speech))
	}

	lang := MapLanguageToTTSCode(language)
	audio, err := v.synth.Synthesize(ctx, speech, lang)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(v.stateDir, "voice-*.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp audio file: %w", err)
	}

	staged, err := os.ReadFile(f.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read staged audio file: %w", err)
	}

	name := fmt.Sprintf("voice-%s.ogg", uuid.NewString())
	return v.uploader.Upload(ctx, name, staged)
}

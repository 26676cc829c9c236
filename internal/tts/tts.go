// Package tts synthesizes spoken replies and delivers them as WhatsApp
// voice notes.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	// Synthesize returns Opus audio bytes for the given text. lang is an
	// ISO 639-1 hint ("hi", "or", "en").
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// DefaultModel is the speech model used when none is configured.
const DefaultModel = openai.SpeechModelGPT4oMiniTTS

// Opts holds configuration options for the speech synthesizer.
type Opts struct {
	APIKey string
	Model  openai.SpeechModel
	Voice  openai.AudioSpeechNewParamsVoice
}

// Option defines a configuration option for the speech synthesizer.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the speech model.
func WithModel(model openai.SpeechModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithVoice sets the synthesis voice.
func WithVoice(voice openai.AudioSpeechNewParamsVoice) Option {
	return func(o *Opts) { o.Voice = voice }
}

// OpenAISynthesizer synthesizes speech through the OpenAI audio API.
type OpenAISynthesizer struct {
	client openai.Client
	model  openai.SpeechModel
	voice  openai.AudioSpeechNewParamsVoice
}

// NewOpenAISynthesizer creates a synthesizer. The API key falls back to
// the OPENAI_API_KEY environment variable.
func NewOpenAISynthesizer(opts ...Option) (*OpenAISynthesizer, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = openai.AudioSpeechNewParamsVoiceAlloy
	}
	slog.Debug("OpenAISynthesizer config loaded",
		"APIKey_set", cfg.APIKey != "",
		"model", cfg.Model)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not set")
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
		voice:  cfg.Voice,
	}, nil
}

// Synthesize renders text to Opus audio.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          s.model,
		Voice:          s.voice,
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatOpus,
	}
	if instr := speechInstructions(lang); instr != "" {
		params.Instructions = openai.String(instr)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		slog.Error("OpenAISynthesizer.Synthesize failed", "error", err, "lang", lang)
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	slog.Debug("OpenAISynthesizer.Synthesize succeeded", "bytes", len(audio), "lang", lang)
	return audio, nil
}

func speechInstructions(lang string) string {
	switch lang {
	case "hi":
		return "Speak in a natural Hindi accent."
	case "or":
		return "Speak in a natural Odia accent."
	default:
		return ""
	}
}

// MapLanguageToTTSCode maps a detected language name to the speech
// synthesis language code. Hindi and Hinglish share the Hindi voice.
func MapLanguageToTTSCode(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "hindi", "hinglish":
		return "hi"
	case "odia", "oriya":
		return "or"
	default:
		return "en"
	}
}

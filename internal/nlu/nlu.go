// Package nlu provides the intent and language classifier adapter.
//
// Classification is delegated to a chat-completion model behind the narrow
// Classifier interface; a rule-based Hinglish override is applied locally
// before the result is attached to any log or memory record.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/swasthya/healthassist/internal/models"
)

// Result is the structured classification outcome for one message.
type Result struct {
	Intent          string
	FulfillmentText string
	Language        string
}

// Classifier is the contract the pipeline consumes. Implementations must
// never propagate external failures: a failed call yields the degraded
// {Intent:"Error", Language:"English"} result.
type Classifier interface {
	Classify(ctx context.Context, text, sessionID string) Result
}

// knownIntents the classifier may assign, mirroring the agent definition.
var knownIntents = []string{
	models.IntentDiseaseInfo,
	models.IntentPreventionTips,
	models.IntentVaccineCheck,
	models.IntentSymptomChecker,
	models.IntentWelcome,
	models.IntentFallback,
}

// hinglishWords is the fixed lexicon of transliterated Hindi tokens. Two or
// more matches in the lowercased text force the Hinglish language label.
var hinglishWords = []string{
	"kya", "nahi", "hai", "tum", "mera", "tere", "mujhe", "acha", "theek",
	"kyun", "kab", "kaise", "ky", "nhi", "bukhar", "dawa", "khana", "dard",
	"doctor", "bimar",
}

// languageNames maps detected language codes to full names.
var languageNames = map[string]string{
	"hi": "Hindi",
	"bn": "Bengali",
	"ta": "Tamil",
	"te": "Telugu",
	"gu": "Gujarati",
	"mr": "Marathi",
}

// IsHinglish reports whether the text contains at least two tokens from the
// transliterated-Hindi lexicon (case-insensitive substring matches).
func IsHinglish(text string) bool {
	lower := strings.ToLower(text)
	count := 0
	for _, w := range hinglishWords {
		if strings.Contains(lower, w) {
			count++
		}
	}
	return count >= 2
}

// MapLanguageCodeToName maps a language code to a full language name. The
// Hinglish flag takes precedence over whatever the classifier reported.
func MapLanguageCodeToName(code string, hinglish bool) string {
	if hinglish {
		return "Hinglish"
	}
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

// Opts holds configuration options for the OpenAI classifier.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option defines a configuration option for the OpenAI classifier.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the classification model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// OpenAIClassifier implements Classifier over the OpenAI chat completions API.
type OpenAIClassifier struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIClassifier creates a classifier. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewOpenAIClassifier(opts ...Option) (*OpenAIClassifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	slog.Debug("OpenAI classifier config loaded", "APIKey_set", cfg.APIKey != "", "model", cfg.Model)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &OpenAIClassifier{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// classifierOutput is the strict JSON shape the model is asked to emit.
type classifierOutput struct {
	Intent          string `json:"intent"`
	FulfillmentText string `json:"fulfillmentText"`
	LanguageCode    string `json:"languageCode"`
}

func classifierSystemPrompt() string {
	return fmt.Sprintf(`You classify one user message for a health assistant.
Pick exactly one intent from this list, or "%s" if none fits:
%s
Also detect the language of the message as an ISO 639-1 code (e.g. "en", "hi", "ta").
Reply ONLY with JSON: {"intent":"...","fulfillmentText":"","languageCode":"..."}`,
		models.IntentFallback, strings.Join(knownIntents, "\n"))
}

// Classify runs intent and language detection for one message. Transport or
// parse failures are degraded to {Intent:"Error", Language:"English"}; the
// Hinglish override runs last and takes precedence over the detected code.
func (c *OpenAIClassifier) Classify(ctx context.Context, text, sessionID string) Result {
	hinglish := IsHinglish(text)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifierSystemPrompt()),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		slog.Error("OpenAIClassifier.Classify: completion failed", "error", err, "session", sessionID)
		return Result{Intent: models.IntentError, FulfillmentText: "", Language: MapLanguageCodeToName("", hinglish)}
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAIClassifier.Classify: no choices returned", "session", sessionID)
		return Result{Intent: models.IntentError, FulfillmentText: "", Language: MapLanguageCodeToName("", hinglish)}
	}

	out, err := parseClassifierOutput(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Error("OpenAIClassifier.Classify: failed to parse model output", "error", err, "session", sessionID)
		return Result{Intent: models.IntentError, FulfillmentText: "", Language: MapLanguageCodeToName("", hinglish)}
	}

	intent := out.Intent
	if intent == "" {
		intent = models.IntentUnknown
	}
	return Result{
		Intent:          intent,
		FulfillmentText: out.FulfillmentText,
		Language:        MapLanguageCodeToName(out.LanguageCode, hinglish),
	}
}

// parseClassifierOutput decodes the model's JSON answer, tolerating markdown
// code fences around the object.
func parseClassifierOutput(content string) (classifierOutput, error) {
	var out classifierOutput
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return out, fmt.Errorf("classifier output is not valid JSON: %w", err)
	}
	return out, nil
}

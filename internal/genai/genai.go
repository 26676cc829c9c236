// Package genai provides the Gemini generative-text client used for reply
// generation, the medical-relevance gate, disease extraction, and language
// detection.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
)

// Default client configuration.
const (
	// DefaultBaseURL is the Gemini generative language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
)

// unknownDiseaseRegex normalizes ambiguous extraction answers to "unknown".
var unknownDiseaseRegex = regexp.MustCompile(`(?i)unknown|unclear|not mentioned|unspecified`)

// Generator is the narrow text-generation contract the pipeline consumes.
// The real implementation is the Gemini Client; tests substitute fakes.
type Generator interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Opts holds configuration options for the Gemini client.
type Opts struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the Gemini client.
type Option func(*Opts)

// WithAPIKey sets the Gemini API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Gemini client. The API key falls back to the
// GEMINI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	slog.Debug("Gemini client config loaded", "APIKey_set", cfg.APIKey != "", "model", cfg.Model)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key must be provided")
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
	}, nil
}

// request/response wire shapes for generateContent.

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
	Role  string         `json:"role,omitempty"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Query sends a single text prompt to Gemini and returns the first candidate
// text, trimmed. An API error object in the response body becomes an error.
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		slog.Error("Client.Query: gemini request failed", "error", err)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if parsed.Error != nil {
		slog.Error("Client.Query: gemini API error", "code", parsed.Error.Code, "message", parsed.Error.Message)
		return "", fmt.Errorf("gemini API error: %d - %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		slog.Debug("Client.Query: gemini returned no candidates")
		return "", nil
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// CheckMedical asks Gemini whether the query is health-related. The answer
// is matched with a case-insensitive substring check for "true"; a failed
// call counts as non-medical.
func CheckMedical(ctx context.Context, g Generator, query string) bool {
	prompt := fmt.Sprintf("Is this query health-related (disease, symptoms, medicine, first aid, vaccines)? Reply only \"true\" or \"false\".\n%q", query)
	text, err := g.Query(ctx, prompt)
	if err != nil {
		slog.Error("CheckMedical: gemini call failed", "error", err)
		return false
	}
	return strings.Contains(strings.ToLower(text), "true")
}

// ExtractDisease asks Gemini for the main disease or health condition in the
// message. The result is either a concrete condition name or exactly
// "unknown": empty responses and anything matching unclear/not mentioned/
// unspecified are normalized to "unknown".
func ExtractDisease(ctx context.Context, g Generator, text string) string {
	prompt := fmt.Sprintf("Extract the main disease or health condition from the message below. Return ONLY the disease name. If none is clearly mentioned, return \"unknown\".\nMessage:\n%q", text)
	result, err := g.Query(ctx, prompt)
	if err != nil {
		slog.Error("ExtractDisease: gemini call failed", "error", err)
		return "unknown"
	}
	if result == "" || unknownDiseaseRegex.MatchString(result) {
		return "unknown"
	}
	return result
}

// DetectLanguage asks Gemini to name the language of the text. Returns the
// first trimmed line of the answer, or "Unknown" when detection fails.
func DetectLanguage(ctx context.Context, g Generator, text string) string {
	prompt := fmt.Sprintf("Detect the language of this text and reply with only the language name (e.g. \"English\", \"Hindi\", \"Tamil\"): %s", text)
	detected, err := g.Query(ctx, prompt)
	if err != nil {
		slog.Error("DetectLanguage: gemini call failed", "error", err)
		return "Unknown"
	}
	first := strings.TrimSpace(strings.SplitN(detected, "\n", 2)[0])
	if first == "" {
		return "Unknown"
	}
	return first
}

package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/swasthya/healthassist/internal/util"
)

// Uploader publishes an audio artifact and returns a public URL for it.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// DefaultUploadBaseURL is the GitHub REST API endpoint.
const DefaultUploadBaseURL = "https://api.github.com"

// UploadOpts holds configuration options for the GitHub uploader.
type UploadOpts struct {
	Token      string
	Owner      string
	Repo       string
	Branch     string
	BaseURL    string
	RawBaseURL string
	HTTPClient *http.Client
}

// UploadOption defines a configuration option for the GitHub uploader.
type UploadOption func(*UploadOpts)

// WithToken sets the GitHub access token.
func WithToken(token string) UploadOption {
	return func(o *UploadOpts) { o.Token = token }
}

// WithRepository sets the owner, repository and branch to upload into.
func WithRepository(owner, repo, branch string) UploadOption {
	return func(o *UploadOpts) {
		o.Owner = owner
		o.Repo = repo
		o.Branch = branch
	}
}

// WithUploadBaseURL overrides the API and raw-content base URLs (tests).
func WithUploadBaseURL(apiBase, rawBase string) UploadOption {
	return func(o *UploadOpts) {
		o.BaseURL = apiBase
		o.RawBaseURL = rawBase
	}
}

// WithUploadHTTPClient sets the HTTP client used for uploads.
func WithUploadHTTPClient(c *http.Client) UploadOption {
	return func(o *UploadOpts) { o.HTTPClient = c }
}

// GitHubUploader stores voice notes in a public GitHub repository through
// the contents API, so Twilio can fetch them from raw.githubusercontent.com.
type GitHubUploader struct {
	token      string
	owner      string
	repo       string
	branch     string
	baseURL    string
	rawBaseURL string
	httpClient *http.Client
}

// NewGitHubUploader creates an uploader. Configuration falls back to the
// GITHUB_TOKEN, GITHUB_USERNAME, GITHUB_REPO and GITHUB_BRANCH environment
// variables; the branch defaults to main.
func NewGitHubUploader(opts ...UploadOption) (*GitHubUploader, error) {
	var cfg UploadOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.Owner == "" {
		cfg.Owner = os.Getenv("GITHUB_USERNAME")
	}
	if cfg.Repo == "" {
		cfg.Repo = os.Getenv("GITHUB_REPO")
	}
	if cfg.Branch == "" {
		cfg.Branch = util.GetenvDefault("GITHUB_BRANCH", "main")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultUploadBaseURL
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = "https://raw.githubusercontent.com"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	slog.Debug("GitHubUploader config loaded",
		"Token_set", cfg.Token != "",
		"owner", cfg.Owner,
		"repo", cfg.Repo,
		"branch", cfg.Branch)

	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("token, owner and repo must be provided")
	}
	return &GitHubUploader{
		token:      cfg.Token,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		baseURL:    cfg.BaseURL,
		rawBaseURL: cfg.RawBaseURL,
		httpClient: cfg.HTTPClient,
	}, nil
}

type uploadRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// Upload commits the audio bytes under the given name and returns the
// raw-content URL Twilio can fetch.
func (u *GitHubUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	body, err := json.Marshal(uploadRequest{
		Message: fmt.Sprintf("Add voice note %s", name),
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  u.branch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode upload request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", u.baseURL, u.owner, u.repo, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		slog.Error("GitHubUploader.Upload request failed", "error", err, "name", name)
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("GitHubUploader.Upload rejected", "status", resp.StatusCode, "name", name)
		return "", fmt.Errorf("upload of %s rejected with status %d: %s", name, resp.StatusCode, msg)
	}

	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", u.rawBaseURL, u.owner, u.repo, u.branch, name)
	slog.Debug("GitHubUploader.Upload succeeded", "name", name, "url", rawURL)
	return rawURL, nil
}

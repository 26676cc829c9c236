// Package twilioclient wraps the Twilio REST API used to deliver SMS and
// WhatsApp replies.
package twilioclient

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageSender is the outbound gateway contract. The real implementation is
// Client; tests use MockClient.
type MessageSender interface {
	SendText(ctx context.Context, from, to, body string) error
	SendMedia(ctx context.Context, from, to, mediaURL string) error
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// Client wraps the Twilio REST API.
type Client struct {
	client *twilio.RestClient
}

// NewClient creates a Twilio client. Credentials fall back to the
// TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN environment variables.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{client: client}, nil
}

// SendText sends a plain text message through Twilio. The from/to addresses
// carry the channel prefix already ("whatsapp:+..." or a bare number for SMS).
func (c *Client) SendText(ctx context.Context, from, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendText failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Twilio message sent", "to", to, "sid", sid)
	return nil
}

// SendMedia sends a message carrying a single media URL (used for voice notes).
func (c *Client) SendMedia(ctx context.Context, from, to, mediaURL string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(from)
	params.SetTo(to)
	params.SetMediaUrl([]string{mediaURL})

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendMedia failed", "to", to, "error", err)
		return fmt.Errorf("failed to send media to %s: %w", to, err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Twilio media message sent", "to", to, "sid", sid, "mediaUrl", mediaURL)
	return nil
}

// MockClient records outbound messages for tests.
type MockClient struct {
	SentMessages  []SentMessage
	MediaMessages []SentMessage
	FailSends     bool
}

// SentMessage is one captured outbound message.
type SentMessage struct {
	From string
	To   string
	Body string
	URL  string
}

// NewMockClient creates an empty capture client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SendText records a text send, failing when FailSends is set.
func (m *MockClient) SendText(ctx context.Context, from, to, body string) error {
	if m.FailSends {
		return fmt.Errorf("mock send failure")
	}
	m.SentMessages = append(m.SentMessages, SentMessage{From: from, To: to, Body: body})
	return nil
}

// SendMedia records a media send, failing when FailSends is set.
func (m *MockClient) SendMedia(ctx context.Context, from, to, mediaURL string) error {
	if m.FailSends {
		return fmt.Errorf("mock send failure")
	}
	m.MediaMessages = append(m.MediaMessages, SentMessage{From: from, To: to, URL: mediaURL})
	return nil
}

package twilioclient

import (
	"context"
	"testing"
)

func TestNewClientMissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when credentials are missing")
	}
}

func TestNewClientWithOptions(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected client")
	}
}

func TestMockClientCaptures(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()
	if err := m.SendText(ctx, "+15550001111", "+15552223333", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SendMedia(ctx, "whatsapp:+15550001111", "whatsapp:+15552223333", "https://example.com/v.ogg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.SentMessages) != 1 || m.SentMessages[0].Body != "hello" {
		t.Error("text message not captured")
	}
	if len(m.MediaMessages) != 1 || m.MediaMessages[0].URL != "https://example.com/v.ogg" {
		t.Error("media message not captured")
	}
}

func TestMockClientFailSends(t *testing.T) {
	m := NewMockClient()
	m.FailSends = true
	if err := m.SendText(context.Background(), "a", "b", "c"); err == nil {
		t.Error("expected failure")
	}
}

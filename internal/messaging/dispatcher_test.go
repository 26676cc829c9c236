package messaging

import (
	"context"
	"testing"

	"github.com/swasthya/healthassist/internal/twilioclient"
)

func TestDispatcherRoutesPerChannelFromNumbers(t *testing.T) {
	mock := twilioclient.NewMockClient()
	d := NewTwilioDispatcher(mock,
		WithWhatsAppFrom("whatsapp:+15550001111"),
		WithSMSFrom("+15550002222"),
		WithDryRun(false))
	ctx := context.Background()

	if err := d.SendWhatsAppText(ctx, "whatsapp:+15559998888", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.SendSMS(ctx, "+15557776666", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].From != "whatsapp:+15550001111" {
		t.Errorf("WhatsApp send used wrong from-number: %q", mock.SentMessages[0].From)
	}
	if mock.SentMessages[1].From != "+15550002222" {
		t.Errorf("SMS send used wrong from-number: %q", mock.SentMessages[1].From)
	}
}

func TestDispatcherSendsMedia(t *testing.T) {
	mock := twilioclient.NewMockClient()
	d := NewTwilioDispatcher(mock, WithWhatsAppFrom("whatsapp:+15550001111"), WithDryRun(false))
	if err := d.SendWhatsAppMedia(context.Background(), "whatsapp:+15559998888", "https://example.com/v.ogg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.MediaMessages) != 1 || mock.MediaMessages[0].URL != "https://example.com/v.ogg" {
		t.Error("media message not dispatched")
	}
}

func TestDispatcherDryRunSuppressesSends(t *testing.T) {
	mock := twilioclient.NewMockClient()
	d := NewTwilioDispatcher(mock, WithWhatsAppFrom("whatsapp:+1"), WithSMSFrom("+1"), WithDryRun(true))
	ctx := context.Background()

	if !d.DryRun() {
		t.Fatal("expected DryRun() to report true")
	}
	if err := d.SendWhatsAppText(ctx, "whatsapp:+2", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.SendWhatsAppMedia(ctx, "whatsapp:+2", "https://example.com/v.ogg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.SendSMS(ctx, "+2", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 0 || len(mock.MediaMessages) != 0 {
		t.Error("dry-run dispatcher must not reach the gateway")
	}
}

func TestDispatcherDryRunFromEnv(t *testing.T) {
	t.Setenv("DRY_RUN", "true")
	d := NewTwilioDispatcher(twilioclient.NewMockClient())
	if !d.DryRun() {
		t.Error("expected DRY_RUN env var to enable dry-run")
	}
}

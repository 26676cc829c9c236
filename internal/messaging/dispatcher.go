// Package messaging provides the outbound message dispatcher.
//
// The dispatcher owns the per-channel from-numbers and the process-wide
// dry-run switch: with dry-run enabled every send is logged and suppressed
// while the rest of the pipeline (persistence, latency logging) runs
// unchanged.
package messaging

import (
	"context"
	"log/slog"
	"os"

	"github.com/swasthya/healthassist/internal/twilioclient"
	"github.com/swasthya/healthassist/internal/util"
)

// Dispatcher sends the final reply through the originating channel.
type Dispatcher interface {
	// SendWhatsAppText sends a text reply to a "whatsapp:+..." address.
	SendWhatsAppText(ctx context.Context, to, body string) error
	// SendWhatsAppMedia sends a media (voice note) reply.
	SendWhatsAppMedia(ctx context.Context, to, mediaURL string) error
	// SendSMS sends a text reply to a bare phone number.
	SendSMS(ctx context.Context, to, body string) error
	// DryRun reports whether outbound sends are suppressed.
	DryRun() bool
}

// Opts holds configuration options for the Twilio dispatcher.
type Opts struct {
	WhatsAppFrom string
	SMSFrom      string
	DryRun       bool
	DryRunSet    bool
}

// Option defines a configuration option for the Twilio dispatcher.
type Option func(*Opts)

// WithWhatsAppFrom sets the WhatsApp from-number ("whatsapp:+...").
func WithWhatsAppFrom(from string) Option {
	return func(o *Opts) { o.WhatsAppFrom = from }
}

// WithSMSFrom sets the SMS from-number.
func WithSMSFrom(from string) Option {
	return func(o *Opts) { o.SMSFrom = from }
}

// WithDryRun sets the dry-run switch explicitly, overriding $DRY_RUN.
func WithDryRun(dryRun bool) Option {
	return func(o *Opts) {
		o.DryRun = dryRun
		o.DryRunSet = true
	}
}

// TwilioDispatcher delivers replies over the Twilio gateway.
type TwilioDispatcher struct {
	client       twilioclient.MessageSender
	whatsAppFrom string
	smsFrom      string
	dryRun       bool
}

// NewTwilioDispatcher creates a dispatcher around the given gateway client.
// From-numbers fall back to TWILIO_WHATSAPP_NUMBER and TWILIO_SMS_NUMBER;
// the dry-run switch falls back to $DRY_RUN.
func NewTwilioDispatcher(client twilioclient.MessageSender, opts ...Option) *TwilioDispatcher {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.WhatsAppFrom == "" {
		cfg.WhatsAppFrom = os.Getenv("TWILIO_WHATSAPP_NUMBER")
	}
	if cfg.SMSFrom == "" {
		cfg.SMSFrom = os.Getenv("TWILIO_SMS_NUMBER")
	}
	if !cfg.DryRunSet {
		cfg.DryRun = util.ParseBoolEnv("DRY_RUN", false)
	}
	slog.Debug("TwilioDispatcher config loaded",
		"whatsAppFrom_set", cfg.WhatsAppFrom != "",
		"smsFrom_set", cfg.SMSFrom != "",
		"dryRun", cfg.DryRun)

	return &TwilioDispatcher{
		client:       client,
		whatsAppFrom: cfg.WhatsAppFrom,
		smsFrom:      cfg.SMSFrom,
		dryRun:       cfg.DryRun,
	}
}

// DryRun reports whether outbound sends are suppressed.
func (d *TwilioDispatcher) DryRun() bool {
	return d.dryRun
}

// SendWhatsAppText sends a WhatsApp text reply, or logs it in dry-run mode.
func (d *TwilioDispatcher) SendWhatsAppText(ctx context.Context, to, body string) error {
	if d.dryRun {
		slog.Info("TwilioDispatcher.SendWhatsAppText: DRY_RUN enabled, message not sent", "to", to, "reply", body)
		return nil
	}
	return d.client.SendText(ctx, d.whatsAppFrom, to, body)
}

// SendWhatsAppMedia sends a WhatsApp media reply, or logs it in dry-run mode.
func (d *TwilioDispatcher) SendWhatsAppMedia(ctx context.Context, to, mediaURL string) error {
	if d.dryRun {
		slog.Info("TwilioDispatcher.SendWhatsAppMedia: DRY_RUN enabled, media not sent", "to", to, "mediaUrl", mediaURL)
		return nil
	}
	return d.client.SendMedia(ctx, d.whatsAppFrom, to, mediaURL)
}

// SendSMS sends an SMS reply, or logs it in dry-run mode.
func (d *TwilioDispatcher) SendSMS(ctx context.Context, to, body string) error {
	if d.dryRun {
		slog.Info("TwilioDispatcher.SendSMS: DRY_RUN enabled, SMS not sent", "to", to, "reply", body)
		return nil
	}
	return d.client.SendText(ctx, d.smsFrom, to, body)
}

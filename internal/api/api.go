// Package api provides the HTTP surface of HealthAssist.
//
// It exposes the inbound webhook, WhatsApp and SMS routes, the statistics
// endpoint, and the Run bootstrap that wires every component together.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/swasthya/healthassist/internal/genai"
	"github.com/swasthya/healthassist/internal/messaging"
	"github.com/swasthya/healthassist/internal/nlu"
	"github.com/swasthya/healthassist/internal/pipeline"
	"github.com/swasthya/healthassist/internal/store"
	"github.com/swasthya/healthassist/internal/tts"
	"github.com/swasthya/healthassist/internal/twilioclient"
	"github.com/swasthya/healthassist/internal/util"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr      string
	DSN       string
	StateDir  string
	DryRun    bool
	DryRunSet bool
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithDatabaseDSN sets the store DSN (SQLite path or Postgres URL).
func WithDatabaseDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithStateDir sets the directory used to stage temporary voice files.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// WithDryRun sets the outbound dry-run switch explicitly, overriding $DRY_RUN.
func WithDryRun(dryRun bool) Option {
	return func(o *Opts) {
		o.DryRun = dryRun
		o.DryRunSet = true
	}
}

// Server routes HTTP traffic to the conversation pipeline and the
// statistics aggregator.
type Server struct {
	addr     string
	pipeline *pipeline.Pipeline
	store    store.Store
	mux      *http.ServeMux
}

// NewServer creates a server around an assembled pipeline and store.
func NewServer(addr string, p *pipeline.Pipeline, st store.Store) *Server {
	s := &Server{addr: addr, pipeline: p, store: st, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.rootHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/webhook", s.webhookHandler)
	s.mux.HandleFunc("/whatsapp", s.whatsAppHandler)
	s.mux.HandleFunc("/sms", s.smsHandler)
	s.mux.HandleFunc("/stats/advanced", s.statsHandler)
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens on the configured address until the listener fails.
func (s *Server) Serve() error {
	slog.Info("Server.Serve: HealthAssist API listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// Run assembles every component from options and the environment, then
// serves the API until the listener fails.
func Run(opts ...Option) error {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = util.GetenvDefault("API_ADDR", DefaultAddr)
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}

	st, err := openStore(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	generator, err := genai.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	classifier, err := nlu.NewOpenAIClassifier()
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	var dispatcherOpts []messaging.Option
	if cfg.DryRunSet {
		dispatcherOpts = append(dispatcherOpts, messaging.WithDryRun(cfg.DryRun))
	}
	dispatcher, err := buildDispatcher(dispatcherOpts)
	if err != nil {
		return err
	}
	voice := buildVoiceSender(dispatcher, cfg.StateDir)

	p := pipeline.New(st, generator, classifier, dispatcher, voice)
	return NewServer(cfg.Addr, p, st).Serve()
}

func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("Run: no database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildDispatcher creates the Twilio-backed dispatcher. When dry-run is on
// and credentials are absent, a capture client stands in so the process can
// still start.
func buildDispatcher(opts []messaging.Option) (messaging.Dispatcher, error) {
	client, err := twilioclient.NewClient()
	if err == nil {
		return messaging.NewTwilioDispatcher(client, opts...), nil
	}
	fallback := messaging.NewTwilioDispatcher(twilioclient.NewMockClient(), opts...)
	if fallback.DryRun() {
		slog.Warn("Run: Twilio credentials missing, dry-run dispatcher active", "error", err)
		return fallback, nil
	}
	return nil, fmt.Errorf("failed to create Twilio client: %w", err)
}

// buildVoiceSender creates the voice delivery chain when its configuration
// is present; voice requests degrade to text otherwise.
func buildVoiceSender(dispatcher messaging.Dispatcher, stateDir string) pipeline.VoiceDeliverer {
	synth, err := tts.NewOpenAISynthesizer()
	if err != nil {
		slog.Warn("Run: speech synthesis unavailable, voice requests fall back to text", "error", err)
		return nil
	}
	uploader, err := tts.NewGitHubUploader()
	if err != nil {
		slog.Warn("Run: voice note hosting unavailable, voice requests fall back to text", "error", err)
		return nil
	}
	return tts.NewVoiceSender(synth, uploader, dispatcher, stateDir)
}

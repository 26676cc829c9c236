package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/swasthya/healthassist/internal/api"
	"github.com/swasthya/healthassist/internal/store"
	"github.com/swasthya/healthassist/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for HealthAssist state data
	DefaultStateDir = "/var/lib/healthassist"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "healthassist.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Required credentials are fatal at startup, not at first request
	if err := validateRequiredConfig(config, flags); err != nil {
		slog.Error("Missing required configuration", "error", err)
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping HealthAssist with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"dry_run", *flags.dryRun)
	if err := api.Run(apiOpts...); err != nil {
		slog.Error("HealthAssist failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("HealthAssist exited successfully")
}

// Config holds environment configuration
type Config struct {
	GeminiKey      string
	OpenAIKey      string
	TwilioSID      string
	TwilioToken    string
	TwilioWhatsApp string
	TwilioSMS      string
	GitHubToken    string
	GitHubUser     string
	GitHubRepo     string
	DatabaseURL    string
	StateDir       string
	APIAddr        string
	DryRun         bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir *string
	dbDSN    *string
	apiAddr  *string
	dryRun   *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		TwilioSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsApp: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		TwilioSMS:      os.Getenv("TWILIO_SMS_NUMBER"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		GitHubUser:     os.Getenv("GITHUB_USERNAME"),
		GitHubRepo:     os.Getenv("GITHUB_REPO"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("HEALTHASSIST_STATE_DIR"),
		APIAddr:        os.Getenv("API_ADDR"),
		DryRun:         util.ParseBoolEnv("DRY_RUN", false),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No HEALTHASSIST_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("HEALTHASSIST_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"TWILIO_AUTH_TOKEN_SET", config.TwilioToken != "",
		"TWILIO_WHATSAPP_NUMBER_SET", config.TwilioWhatsApp != "",
		"TWILIO_SMS_NUMBER_SET", config.TwilioSMS != "",
		"GITHUB_TOKEN_SET", config.GitHubToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"HEALTHASSIST_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"DRY_RUN", config.DryRun)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir: flag.String("state-dir", config.StateDir, "state directory for HealthAssist data (overrides $HEALTHASSIST_STATE_DIR)"),
		dbDSN:    flag.String("db-dsn", config.DatabaseURL, "database DSN for the conversation store (overrides $DATABASE_URL)"),
		apiAddr:  flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		dryRun:   flag.Bool("dry-run", config.DryRun, "log outbound messages instead of sending them (overrides $DRY_RUN)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"dryRun", *flags.dryRun)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// validateRequiredConfig checks the credentials the service cannot start
// without: the Gemini and classifier keys always, and the Twilio
// credentials unless running in dry-run mode.
func validateRequiredConfig(config Config, flags Flags) error {
	if config.GeminiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if config.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if !*flags.dryRun && (config.TwilioSID == "" || config.TwilioToken == "") {
		return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are not set")
	}
	return nil
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		return err
	}
	return nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.dbDSN != "" {
		apiOpts = append(apiOpts, api.WithDatabaseDSN(*flags.dbDSN))
	}
	if *flags.stateDir != "" {
		apiOpts = append(apiOpts, api.WithStateDir(*flags.stateDir))
	}
	apiOpts = append(apiOpts, api.WithDryRun(*flags.dryRun))
	return apiOpts
}

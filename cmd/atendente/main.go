package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/seguroscampos/atendente/internal/api"
	"github.com/seguroscampos/atendente/internal/genai"
	"github.com/seguroscampos/atendente/internal/intake"
	"github.com/seguroscampos/atendente/internal/messaging"
	"github.com/seguroscampos/atendente/internal/store"
	"github.com/seguroscampos/atendente/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for atendente state data
	DefaultStateDir = "/var/lib/atendente"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "atendente.db"
	// ProviderZAPI selects the Z-API WhatsApp sender.
	ProviderZAPI = "zapi"
	// ProviderTwilio selects the Twilio WhatsApp sender.
	ProviderTwilio = "twilio"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	responder, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Error("Failed to initialize LLM responder", "error", err)
		os.Exit(1)
	}

	sender, err := buildSender(flags)
	if err != nil {
		slog.Error("Failed to initialize messaging sender", "error", err)
		os.Exit(1)
	}

	machine := intake.NewMachine(st, responder)
	server := api.NewServer(st, machine, responder, sender, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping atendente", "provider", *flags.provider, "dsn_set", *flags.dbDSN != "")
	if err := server.Run(ctx); err != nil {
		slog.Error("atendente failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("atendente exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	GroqKey       string
	APIAddr       string
	AssistantName string
	Provider      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	groqKey       *string
	apiAddr       *string
	assistantName *string
	provider      *string
}

// initializeLogger sets up structured logging. Debug level is the
// default; set ATENDENTE_DEBUG=false to quiet it down.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("ATENDENTE_DEBUG", true) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("ATENDENTE_STATE_DIR"),
		GroqKey:       os.Getenv("GROQ_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		AssistantName: os.Getenv("ASSISTANT_NAME"),
		Provider:      os.Getenv("MESSAGING_PROVIDER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ATENDENTE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Without a DATABASE_URL the service runs on SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.Provider == "" {
		config.Provider = ProviderZAPI
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ATENDENTE_STATE_DIR", config.StateDir,
		"GROQ_API_KEY_SET", config.GroqKey != "",
		"API_ADDR", config.APIAddr,
		"ASSISTANT_NAME", config.AssistantName,
		"MESSAGING_PROVIDER", config.Provider)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for atendente data (overrides $ATENDENTE_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		groqKey:       flag.String("groq-api-key", config.GroqKey, "Groq API key (overrides $GROQ_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		assistantName: flag.String("assistant-name", config.AssistantName, "assistant persona name (overrides $ASSISTANT_NAME)"),
		provider:      flag.String("messaging-provider", config.Provider, "outbound WhatsApp provider, zapi or twilio (overrides $MESSAGING_PROVIDER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"groqKeySet", *flags.groqKey != "",
		"apiAddr", *flags.apiAddr,
		"assistantName", *flags.assistantName,
		"provider", *flags.provider)

	// Follow a changed state directory when the DSN was left at its default.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// openStore picks the storage backend from the DSN shape.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildGenAIOptions constructs LLM responder configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.groqKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.groqKey))
	}
	if *flags.assistantName != "" {
		opts = append(opts, genai.WithAssistantName(*flags.assistantName))
	}
	return opts
}

// buildSender constructs the outbound WhatsApp sender for the configured provider
func buildSender(flags Flags) (messaging.Sender, error) {
	if *flags.provider == ProviderTwilio {
		return messaging.NewTwilioClient()
	}
	return messaging.NewZAPIClient()
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}

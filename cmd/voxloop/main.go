package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/voxloop/voxloop/internal/agi"
	"github.com/voxloop/voxloop/internal/api"
	"github.com/voxloop/voxloop/internal/classify"
	"github.com/voxloop/voxloop/internal/dialer"
	"github.com/voxloop/voxloop/internal/flow"
	"github.com/voxloop/voxloop/internal/genai"
	"github.com/voxloop/voxloop/internal/models"
	"github.com/voxloop/voxloop/internal/session"
	"github.com/voxloop/voxloop/internal/speech"
	"github.com/voxloop/voxloop/internal/store"
	"github.com/voxloop/voxloop/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for voxloop state data
	DefaultStateDir = "/var/lib/voxloop"
	// DefaultSoundsDir is where Asterisk resolves sound file names
	DefaultSoundsDir = "/var/lib/asterisk/sounds"
	// DefaultCompanyName seeds the built-in screening script
	DefaultCompanyName = "the company"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("voxloop failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("voxloop exited successfully")
}

// Config holds environment configuration
type Config struct {
	AGIAddr     string
	APIAddr     string
	StoreDriver string
	DatabaseURL string
	StateDir    string
	SoundsDir   string
	OpenAIKey   string
	TTSProvider string
	ScriptPath  string
	CompanyName string
}

// Flags holds command line flag values
type Flags struct {
	agiAddr     *string
	apiAddr     *string
	storeDriver *string
	dbDSN       *string
	stateDir    *string
	soundsDir   *string
	openaiKey   *string
	ttsProvider *string
	scriptPath  *string
	companyName *string
	enableDial  *bool
}

// initializeLogger sets up structured logging. VOXLOOP_DEBUG turns on debug
// level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("VOXLOOP_DEBUG", false) {
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
		AGIAddr:     os.Getenv("AGI_ADDR"),
		APIAddr:     os.Getenv("API_ADDR"),
		StoreDriver: os.Getenv("STORE_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetEnvOrDefault("VOXLOOP_STATE_DIR", DefaultStateDir),
		SoundsDir:   util.GetEnvOrDefault("ASTERISK_SOUNDS_DIR", DefaultSoundsDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		TTSProvider: util.GetEnvOrDefault("TTS_PROVIDER", "openai"),
		ScriptPath:  os.Getenv("SCRIPT_PATH"),
		CompanyName: util.GetEnvOrDefault("COMPANY_NAME", DefaultCompanyName),
	}

	slog.Debug("environment variables loaded",
		"AGI_ADDR", config.AGIAddr,
		"API_ADDR", config.APIAddr,
		"STORE_DRIVER", config.StoreDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"VOXLOOP_STATE_DIR", config.StateDir,
		"ASTERISK_SOUNDS_DIR", config.SoundsDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TTS_PROVIDER", config.TTSProvider,
		"SCRIPT_PATH", config.ScriptPath,
		"COMPANY_NAME", config.CompanyName)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		agiAddr:     flag.String("agi-addr", config.AGIAddr, "FastAGI listen address (overrides $AGI_ADDR)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "admin API listen address (overrides $API_ADDR)"),
		storeDriver: flag.String("store-driver", config.StoreDriver, "call record store: memory, file, sqlite, postgres, mongo (overrides $STORE_DRIVER)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the call record store (overrides $DATABASE_URL)"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for voxloop data (overrides $VOXLOOP_STATE_DIR)"),
		soundsDir:   flag.String("sounds-dir", config.SoundsDir, "Asterisk sounds directory (overrides $ASTERISK_SOUNDS_DIR)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		ttsProvider: flag.String("tts-provider", config.TTSProvider, "speech synthesis provider: openai or google (overrides $TTS_PROVIDER)"),
		scriptPath:  flag.String("script", config.ScriptPath, "path to a JSON question script (overrides $SCRIPT_PATH)"),
		companyName: flag.String("company-name", config.CompanyName, "company name used by the built-in script (overrides $COMPANY_NAME)"),
		enableDial:  flag.Bool("enable-dialer", false, "enable outbound dialing via Twilio"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"agiAddr", *flags.agiAddr,
		"apiAddr", *flags.apiAddr,
		"storeDriver", *flags.storeDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"soundsDir", *flags.soundsDir,
		"openaiKeySet", *flags.openaiKey != "",
		"ttsProvider", *flags.ttsProvider,
		"scriptPath", *flags.scriptPath,
		"enableDial", *flags.enableDial)

	return flags
}

// run wires all modules together and serves until the context is canceled.
func run(ctx context.Context, flags Flags) error {
	questions, err := loadQuestions(flags)
	if err != nil {
		return fmt.Errorf("failed to load question script: %w", err)
	}
	slog.Info("question script loaded", "questions", len(questions))

	st, err := buildStore(flags)
	if err != nil {
		return fmt.Errorf("failed to open call record store: %w", err)
	}
	defer st.Close()

	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	synth, err := buildSynthesizer(ctx, flags)
	if err != nil {
		return fmt.Errorf("failed to create speech synthesizer: %w", err)
	}
	stt, err := speech.NewWhisper(speech.WhisperConfig{APIKey: *flags.openaiKey})
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	var d dialer.Dialer
	if *flags.enableDial {
		client, err := dialer.NewClient()
		if err != nil {
			return fmt.Errorf("failed to create dialer: %w", err)
		}
		d = client
	}

	classifier := classify.NewClassifier(genaiClient)
	deps := flow.Deps{
		Classifier:   classifier,
		Clarifier:    classifier,
		ExitDetector: classifier,
	}

	handler := func(callCtx context.Context, s *agi.Session) {
		channel := session.NewPhoneChannel(s, synth, stt, session.PhoneChannelConfig{
			SoundsDir: *flags.soundsDir,
		})
		driver := session.NewDriver(deps, channel, st, s.UniqueID(), s.CallerID())
		outcome, err := driver.Run(callCtx, questions)
		if err != nil {
			slog.Error("call handler: session failed", "uniqueid", s.UniqueID(), "error", err)
		} else {
			slog.Info("call handler: session done", "uniqueid", s.UniqueID(), "status", outcome.Status)
		}
		if err := s.Hangup(); err != nil {
			slog.Warn("call handler: hangup failed", "uniqueid", s.UniqueID(), "error", err)
		}
	}

	agiServer := agi.NewServer(*flags.agiAddr, handler)
	apiServer := api.NewServer(*flags.apiAddr, st, d)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return agiServer.ListenAndServe(gctx) })
	g.Go(func() error { return apiServer.Run(gctx) })
	return g.Wait()
}

// loadQuestions returns the scripted questions, from file when configured.
func loadQuestions(flags Flags) ([]models.QuestionSpec, error) {
	if *flags.scriptPath != "" {
		return models.LoadScript(*flags.scriptPath)
	}
	return models.DefaultScript(*flags.companyName), nil
}

// buildStore selects the call record store from the configured driver.
func buildStore(flags Flags) (store.Store, error) {
	driver := *flags.storeDriver
	dsn := *flags.dbDSN
	switch driver {
	case "", "memory":
		slog.Info("using in-memory call record store")
		return store.NewInMemoryStore(), nil
	case "file":
		dir := dsn
		if dir == "" {
			dir = *flags.stateDir
		}
		return store.NewFileStore(store.WithDSN(dir))
	case "sqlite":
		if dsn == "" {
			dsn = *flags.stateDir + "/voxloop.db"
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	case "mongo":
		return store.NewMongoStore(store.WithDSN(dsn))
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// buildSynthesizer selects the TTS provider.
func buildSynthesizer(ctx context.Context, flags Flags) (speech.Synthesizer, error) {
	switch *flags.ttsProvider {
	case "", "openai":
		cfg := speech.DefaultOpenAITTSConfig()
		cfg.APIKey = *flags.openaiKey
		cfg.Timeout = util.ParseDurationEnv("TTS_TIMEOUT", 30*time.Second)
		return speech.NewOpenAITTS(cfg)
	case "google":
		return speech.NewGoogleTTS(ctx, speech.GoogleTTSConfig{
			LanguageCode: util.GetEnvOrDefault("TTS_LANGUAGE", "en-US"),
			VoiceName:    os.Getenv("TTS_VOICE"),
		})
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", *flags.ttsProvider)
	}
}

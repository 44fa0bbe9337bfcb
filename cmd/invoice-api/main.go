package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/ledger"
	"github.com/zombor/invoice-review/internal/middleware"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	flags := ff.NewFlagSet("invoice-api")
	var (
		port          = flags.IntLong("port", 5000, "HTTP server port")
		dbPath        = flags.StringLong("db", "invoices.db", "Database file path")
		storagePath   = flags.StringLong("storage", "./uploads", "Upload storage directory path")
		extractorType = flags.StringLong("extractor", "mock", "Extractor type: 'mock', 'gemini' or 'ollama'")
		geminiKey     = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = flags.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		ollamaURL     = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = flags.StringLong("ollama-model", "llava", "Ollama model name")
		ratePerMinute = flags.IntLong("rate-per-minute", 0, "Maximum extraction calls per minute, 0 for unlimited")
		burst         = flags.IntLong("burst", 1, "Extraction calls allowed at once")
		maxFailures   = flags.IntLong("max-failures", 5, "Consecutive extraction failures before calls are paused")
		logLevel      = flags.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_             = flags.StringLong("config", "", "Config file path (optional)")
		showVersion   = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_API"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := ledger.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize extractor based on type
	var model extraction.Extractor
	switch *extractorType {
	case "mock":
		slog.Info("Using mock extractor")
		model = extraction.NewMock()
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		model, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		model, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "mock, gemini or ollama")
		os.Exit(1)
	}
	if *maxFailures < 1 {
		slog.Error("Invalid max failures", "max_failures", *maxFailures)
		os.Exit(1)
	}
	extractor := extraction.NewGuarded(model, extraction.GuardConfig{
		RatePerMinute: *ratePerMinute,
		Burst:         *burst,
		MaxFailures:   uint32(*maxFailures),
		OpenTimeout:   30 * time.Second,
	})
	defer extractor.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	storage, err := ledger.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	metrics := middleware.NewMetrics("invoice_api").WithRoutes(
		middleware.Route{Prefix: "/invoice/", Suffix: "/download", Label: "/invoice/{id}/download"},
	)
	service := ledger.NewService(db, extractor, storage, metrics)
	server := ledger.NewServer(service, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

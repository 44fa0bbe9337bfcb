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

	"github.com/zombor/invoice-review/internal/backend"
	"github.com/zombor/invoice-review/internal/middleware"
	"github.com/zombor/invoice-review/internal/web"
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

	flags := ff.NewFlagSet("invoice-review")
	var (
		port        = flags.IntLong("port", 8080, "HTTP server port")
		apiURL      = flags.StringLong("api-url", "http://localhost:5000", "Invoice API base URL")
		dbPath      = flags.StringLong("db", "invoice-review.db", "Session database file path")
		apiTimeout  = flags.IntLong("api-timeout", 120, "Invoice API request timeout in seconds")
		logLevel    = flags.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_           = flags.StringLong("config", "", "Config file path (optional)")
		showVersion = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_REVIEW"),
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

	// Initialize session store
	slog.Info("Initializing session store...", "path", *dbPath)
	store, err := web.NewBoltStore(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize API client
	client, err := backend.NewClient(*apiURL, time.Duration(*apiTimeout)*time.Second)
	if err != nil {
		slog.Error("Failed to initialize invoice API client", "error", err)
		os.Exit(1)
	}
	slog.Info("Using invoice API", "url", *apiURL)

	metrics := middleware.NewMetrics("invoice_review").WithRoutes(
		middleware.Route{Prefix: "/history/", Suffix: "/download", Label: "/history/{id}/download"},
		middleware.Route{Prefix: "/api/draft/items/", Label: "/api/draft/items/{index}"},
		middleware.Route{Prefix: "/static/", Label: "/static"},
	)
	service := web.NewService(client, store, metrics)
	server := web.NewServer(service, metrics)

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
